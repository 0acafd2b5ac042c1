/*
Package models defines shared data structures for the learning-events system.

This package contains the Event type captured for every learner interaction,
together with the Severity, Category, Verb and ObjectType enumerations used to
classify it. Events are produced by the eventlog package, persisted by the
collector and read back by the viewer.
*/
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors
var (
	ErrEmptyEventID     = errors.New("id is required")
	ErrEmptyVerb        = errors.New("verb is required")
	ErrEmptyObjectType  = errors.New("object_type is required")
	ErrMissingTimestamp = errors.New("timestamp is required")
	ErrInvalidSeverity  = errors.New("severity is out of range")
	ErrInvalidCategory  = errors.New("category is unknown")
	ErrNegativeDuration = errors.New("duration_ms must be positive or zero")
	ErrUnknownSeverity  = errors.New("unknown severity")
	ErrEmptyBatch       = errors.New("batch must contain at least one event")
)

// Severity is the importance of an event. Values are totally ordered:
// DEBUG < INFO < ACTION < IMPORTANT < CRITICAL. The zero value means
// "unspecified" and is never carried by a constructed event.
type Severity int

const (
	SeverityUnspecified Severity = iota
	SeverityDebug
	SeverityInfo
	SeverityAction
	SeverityImportant
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityDebug:     "DEBUG",
	SeverityInfo:      "INFO",
	SeverityAction:    "ACTION",
	SeverityImportant: "IMPORTANT",
	SeverityCritical:  "CRITICAL",
}

// Severities lists every valid severity in ascending order.
func Severities() []Severity {
	return []Severity{SeverityDebug, SeverityInfo, SeverityAction, SeverityImportant, SeverityCritical}
}

// String returns the upper-case name of the severity.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "UNSPECIFIED"
}

// Valid reports whether s is one of the five defined levels.
func (s Severity) Valid() bool {
	return s >= SeverityDebug && s <= SeverityCritical
}

// ParseSeverity converts a case-insensitive name to a Severity.
//
// Returns:
//   - Severity: The parsed level.
//   - error: ErrUnknownSeverity if the name is not recognised.
func ParseSeverity(name string) (Severity, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range severityNames {
		if n == upper {
			return s, nil
		}
	}
	return SeverityUnspecified, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
}

// MarshalJSON encodes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the severity name. Unknown names and null decode to
// SeverityUnspecified rather than failing, so one odd row never breaks a
// whole response.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		*s = SeverityUnspecified
		return nil
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		*s = SeverityUnspecified
		return nil
	}
	*s = parsed
	return nil
}

// Category is a coarse domain grouping of verbs.
type Category string

const (
	CategorySession       Category = "SESSION"
	CategoryNavigation    Category = "NAVIGATION"
	CategoryClinical      Category = "CLINICAL"
	CategoryCommunication Category = "COMMUNICATION"
	CategoryMonitoring    Category = "MONITORING"
	CategoryConfiguration Category = "CONFIGURATION"
	CategoryAssessment    Category = "ASSESSMENT"
	CategoryError         Category = "ERROR"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategorySession, CategoryNavigation, CategoryClinical, CategoryCommunication,
		CategoryMonitoring, CategoryConfiguration, CategoryAssessment, CategoryError,
	}
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Verb names the action that happened, e.g. ORDERED_LAB.
type Verb string

// ObjectType names the kind of entity acted upon.
type ObjectType string

// Message roles carried by communication events.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Event is the atomic unit of learning telemetry.
// Once constructed an Event is treated as immutable; the Context map is copied
// on construction and must not be mutated by consumers.
type Event struct {
	ID              string         `json:"id"`                         // Client-generated UUID, used for dedupe.
	Timestamp       time.Time      `json:"timestamp"`                  // Creation instant (RFC3339).
	SessionID       string         `json:"session_id,omitempty"`       // Correlation key, may be empty.
	UserID          string         `json:"user_id,omitempty"`          // Learner identity.
	CaseID          string         `json:"case_id,omitempty"`          // Clinical case identity.
	Verb            Verb           `json:"verb"`                       // What happened.
	ObjectType      ObjectType     `json:"object_type"`                // What it happened to.
	Severity        Severity       `json:"severity"`                   // Resolved severity.
	Category        Category       `json:"category"`                   // Resolved category.
	ObjectID        string         `json:"object_id,omitempty"`        // Acted-upon entity id.
	ObjectName      string         `json:"object_name,omitempty"`      // Acted-upon entity label.
	Component       string         `json:"component,omitempty"`        // Originating UI component.
	ParentComponent string         `json:"parent_component,omitempty"` // Enclosing UI component.
	Result          string         `json:"result,omitempty"`           // Free-text outcome.
	DurationMs      *int64         `json:"duration_ms,omitempty"`      // Elapsed time, >= 0 when present.
	Context         map[string]any `json:"context,omitempty"`          // Arbitrary extra data.
	MessageContent  string         `json:"message_content,omitempty"`  // Communication events only.
	MessageRole     string         `json:"message_role,omitempty"`     // "user" or "assistant".
	Username        string         `json:"username,omitempty"`         // Read-side label.
	CaseName        string         `json:"case_name,omitempty"`        // Read-side label.
}

// HasDuration reports whether the event carries a duration.
func (e *Event) HasDuration() bool {
	return e.DurationMs != nil
}

// Validate checks the invariants a stored event must satisfy.
//
// Returns:
//   - error: The first violated invariant, or nil.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyEventID
	}
	if strings.TrimSpace(string(e.Verb)) == "" {
		return ErrEmptyVerb
	}
	if strings.TrimSpace(string(e.ObjectType)) == "" {
		return ErrEmptyObjectType
	}
	if e.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	if !e.Severity.Valid() {
		return ErrInvalidSeverity
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if e.DurationMs != nil && *e.DurationMs < 0 {
		return ErrNegativeDuration
	}
	return nil
}

// Batch is the wire envelope exchanged with the event sink and the read API.
type Batch struct {
	Events []Event `json:"events"`
}

// Validate checks that the batch is non-empty and every event is valid.
//
// Returns:
//   - error: An error naming the offending event index, or nil.
func (b *Batch) Validate() error {
	if len(b.Events) == 0 {
		return ErrEmptyBatch
	}
	for i := range b.Events {
		if err := b.Events[i].Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

// Int64 returns a pointer to v. Handy for optional durations.
func Int64(v int64) *int64 {
	return &v
}
