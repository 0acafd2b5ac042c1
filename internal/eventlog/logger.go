/*
Package eventlog captures learner interactions as classified Events and ships
them in batches to a remote sink.

A Logger is built once per process with New and handed to every call site.
Each Log call resolves severity and category through the taxonomy, applies the
minimum-severity filter, stamps the current session context and appends the
event to an in-memory queue. The queue is flushed periodically (Start), when it
reaches the batch size, or in beacon mode when the host is going away (Close).
*/
package eventlog

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/internal/retry"
	"github.com/agbruneau/learning-events/internal/taxonomy"
	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/google/uuid"
)

// Context holds the correlation keys stamped on every event. Username and
// CaseName are display labels for the read side.
type Context struct {
	SessionID string
	UserID    string
	Username  string
	CaseID    string
	CaseName  string
}

// DeadLetter receives batches that could not be delivered before shutdown.
type DeadLetter interface {
	Send(events []models.Event, attempts int, lastErr error) error
}

// Option configures a Logger.
type Option func(*Logger)

// WithBatchSize sets the queue length that triggers a flush. Default: 10.
func WithBatchSize(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithFlushInterval sets the period of the background flush loop. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.flushInterval = d
		}
	}
}

// WithMinimumSeverity sets the initial severity filter. Default: DEBUG.
func WithMinimumSeverity(s models.Severity) Option {
	return func(l *Logger) {
		if s.Valid() {
			l.minSeverity = s
		}
	}
}

// WithEnabled sets the initial state of the kill-switch. Default: true.
func WithEnabled(enabled bool) Option {
	return func(l *Logger) { l.enabled.Store(enabled) }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithIDFunc replaces the event id generator. Default: random UUID.
func WithIDFunc(f func() string) Option {
	return func(l *Logger) { l.newID = f }
}

// WithDeadLetter sets where Shutdown spools batches it could not deliver.
func WithDeadLetter(d DeadLetter) Option {
	return func(l *Logger) { l.deadLetter = d }
}

// WithRetryConfig sets the backoff used by Shutdown.
func WithRetryConfig(cfg retry.Config) Option {
	return func(l *Logger) { l.retryCfg = cfg }
}

// WithDrainTimeout bounds how long Close waits for in-flight flushes and
// beacons. Default: config.BeaconDrainMax.
func WithDrainTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.drainTimeout = d
		}
	}
}

// Logger is the event logger and batch dispatcher. It is safe for concurrent use.
type Logger struct {
	sink          Sink
	batchSize     int
	flushInterval time.Duration
	now           func() time.Time
	newID         func() string
	deadLetter    DeadLetter
	retryCfg      retry.Config
	drainTimeout  time.Duration

	enabled atomic.Bool

	mu          sync.Mutex
	context     Context
	minSeverity models.Severity
	marks       map[string]time.Time
	counts      map[string]int
	queue       queue

	flushing atomic.Bool
	flushes  sync.WaitGroup

	baseCtx    context.Context
	cancelBase context.CancelFunc
	startOnce  sync.Once
	stopOnce   sync.Once
	stop       chan struct{}
	loopDone   chan struct{}
}

// New creates a Logger delivering to sink.
func New(sink Sink, opts ...Option) *Logger {
	l := &Logger{
		sink:          sink,
		batchSize:     config.LoggerBatchSize,
		flushInterval: config.LoggerFlushInterval,
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
		retryCfg:      retry.DefaultConfig(),
		drainTimeout:  config.BeaconDrainMax,
		minSeverity:   models.SeverityDebug,
		marks:         make(map[string]time.Time),
		counts:        make(map[string]int),
		stop:          make(chan struct{}),
		loopDone:      make(chan struct{}),
	}
	l.enabled.Store(true)
	for _, opt := range opts {
		opt(l)
	}
	l.baseCtx, l.cancelBase = context.WithCancel(context.Background())
	return l
}

// SetContext updates the correlation keys. Empty fields keep their prior value.
func (l *Logger) SetContext(c Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c.SessionID != "" {
		l.context.SessionID = c.SessionID
	}
	if c.UserID != "" {
		l.context.UserID = c.UserID
	}
	if c.Username != "" {
		l.context.Username = c.Username
	}
	if c.CaseID != "" {
		l.context.CaseID = c.CaseID
	}
	if c.CaseName != "" {
		l.context.CaseName = c.CaseName
	}
}

// ClearContext forgets the session and case. The user identity is kept.
func (l *Logger) ClearContext() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.context.SessionID = ""
	l.context.CaseID = ""
	l.context.CaseName = ""
}

// CurrentContext returns the correlation keys in effect.
func (l *Logger) CurrentContext() Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.context
}

// SetEnabled flips the kill-switch. A disabled Logger ignores Log calls.
func (l *Logger) SetEnabled(enabled bool) {
	l.enabled.Store(enabled)
}

// Enabled reports the kill-switch state.
func (l *Logger) Enabled() bool {
	return l.enabled.Load()
}

// SetMinimumSeverity drops future events below s. Invalid levels are ignored.
func (l *Logger) SetMinimumSeverity(s models.Severity) {
	if !s.Valid() {
		return
	}
	l.mu.Lock()
	l.minSeverity = s
	l.mu.Unlock()
}

// MinimumSeverity returns the active severity filter.
func (l *Logger) MinimumSeverity() models.Severity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minSeverity
}

// Log records one learner action. It never fails: unusable options are
// dropped from the event. The returned bool is false when the logger is
// disabled or the event was filtered out by severity.
func (l *Logger) Log(verb models.Verb, objectType models.ObjectType, opts Options) (models.Event, bool) {
	if !l.enabled.Load() {
		return models.Event{}, false
	}

	severity, category := taxonomy.Resolve(verb)
	if opts.Severity.Valid() {
		severity = opts.Severity
	}
	if opts.Category.Valid() {
		category = opts.Category
	}

	l.mu.Lock()
	if severity < l.minSeverity {
		l.mu.Unlock()
		return models.Event{}, false
	}

	var duration *int64
	if opts.TimingMark != "" {
		if ms, ok := l.endTimingLocked(opts.TimingMark); ok {
			duration = models.Int64(ms)
		}
	}
	if duration == nil && opts.DurationMs != nil && *opts.DurationMs >= 0 {
		duration = models.Int64(*opts.DurationMs)
	}

	l.counts[countKey(verb, objectType)]++

	event := models.Event{
		ID:              l.newID(),
		Timestamp:       l.now().UTC(),
		SessionID:       l.context.SessionID,
		UserID:          l.context.UserID,
		CaseID:          l.context.CaseID,
		Verb:            verb,
		ObjectType:      objectType,
		Severity:        severity,
		Category:        category,
		ObjectID:        opts.ObjectID,
		ObjectName:      opts.ObjectName,
		Component:       opts.Component,
		ParentComponent: opts.ParentComponent,
		Result:          opts.Result,
		DurationMs:      duration,
		MessageContent:  opts.MessageContent,
		MessageRole:     opts.MessageRole,
		Username:        l.userLabelLocked(),
		CaseName:        l.context.CaseName,
	}
	if len(opts.Context) > 0 {
		// A context that cannot be encoded would poison every later flush.
		if _, err := json.Marshal(opts.Context); err == nil {
			event.Context = maps.Clone(opts.Context)
		}
	}

	// The caller and the queue each own their Context map.
	queued := event
	queued.Context = maps.Clone(event.Context)
	l.queue.push(queued)
	full := l.queue.len() >= l.batchSize
	l.mu.Unlock()

	if full {
		l.triggerFlush()
	}
	return event, true
}

// Counts returns a copy of the per "VERB:OBJECT_TYPE" counters.
func (l *Logger) Counts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.counts)
}

// QueueLen returns the number of events waiting to be flushed.
func (l *Logger) QueueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.len()
}

// Pending returns a copy of the queued events in flush order.
func (l *Logger) Pending() []models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.snapshot()
}

func (l *Logger) userLabelLocked() string {
	if l.context.Username != "" {
		return l.context.Username
	}
	return l.context.UserID
}

func countKey(verb models.Verb, objectType models.ObjectType) string {
	return string(verb) + ":" + string(objectType)
}
