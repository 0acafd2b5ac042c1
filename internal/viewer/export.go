package viewer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/pkg/models"
)

// CSVHeader est la ligne d'en-tête de l'export tabulaire.
var CSVHeader = []string{
	"Timestamp",
	"Verb",
	"Object Type",
	"Object Name",
	"Component",
	"Result",
	"Duration (ms)",
	"Message Content",
}

// ExportDocument est le document JSON exporté.
type ExportDocument struct {
	ExportedAt  time.Time      `json:"exportedAt"`
	SessionID   string         `json:"sessionId"`
	UserID      string         `json:"userId"`
	TotalEvents int            `json:"totalEvents"`
	Events      []models.Event `json:"events"`
}

// NewExportDocument construit le document. Sans session sélectionnée, la
// session et l'utilisateur sont repris des événements quand ils sont uniques.
func NewExportDocument(events []models.Event, sessionID string, now time.Time) ExportDocument {
	if events == nil {
		events = []models.Event{}
	}
	if sessionID == "" {
		sessionID = common(events, func(e *models.Event) string { return e.SessionID })
	}
	return ExportDocument{
		ExportedAt:  now.UTC(),
		SessionID:   sessionID,
		UserID:      common(events, func(e *models.Event) string { return e.UserID }),
		TotalEvents: len(events),
		Events:      events,
	}
}

// ExportJSON écrit le document JSON indenté.
func ExportJSON(w io.Writer, doc ExportDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export JSON: %w", err)
	}
	return nil
}

// ExportCSV écrit une ligne d'en-tête puis une ligne par événement.
// La durée est en millisecondes brutes, vide en l'absence de durée.
func ExportCSV(w io.Writer, events []models.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("export CSV: %w", err)
	}
	for i := range events {
		if err := cw.Write(csvRecord(&events[i])); err != nil {
			return fmt.Errorf("export CSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export CSV: %w", err)
	}
	return nil
}

func csvRecord(e *models.Event) []string {
	duration := ""
	if e.DurationMs != nil {
		duration = strconv.FormatInt(*e.DurationMs, 10)
	}
	return []string{
		e.Timestamp.UTC().Format(time.RFC3339),
		string(e.Verb),
		string(e.ObjectType),
		e.ObjectName,
		e.Component,
		e.Result,
		duration,
		e.MessageContent,
	}
}

// ClipboardSummary produit un résumé texte, une ligne par événement:
// heure, verbe, nom d'objet et composant éventuels, aperçu du message.
func ClipboardSummary(events []models.Event) string {
	var b strings.Builder
	for i := range events {
		e := &events[i]
		fmt.Fprintf(&b, "[%s] %s", e.Timestamp.Local().Format("15:04:05"), e.Verb)
		if e.ObjectName != "" {
			fmt.Fprintf(&b, " - %s", e.ObjectName)
		}
		if e.Component != "" {
			fmt.Fprintf(&b, " (%s)", e.Component)
		}
		if e.MessageContent != "" {
			fmt.Fprintf(&b, ": %q", preview(e.MessageContent, config.ViewerPreviewRunes))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// preview coupe s à n runes, sur une seule ligne.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + config.ViewerTruncateSuffix
}

func common(events []models.Event, field func(*models.Event) string) string {
	value := ""
	for i := range events {
		v := field(&events[i])
		if v == "" {
			continue
		}
		if value != "" && v != value {
			return ""
		}
		value = v
	}
	return value
}

// Exported contient les chemins des fichiers écrits par SaveExports.
type Exported struct {
	JSON string
	CSV  string
	Text string
}

// SaveExports écrit le document JSON, le CSV et le résumé texte dans dir.
// Les noms portent la session (ou "all") et l'heure de l'export.
func SaveExports(dir, prefix string, events []models.Event, sessionID string, now time.Time) (Exported, error) {
	scope := sessionID
	if scope == "" {
		scope = "all"
	}
	base := filepath.Join(dir, fmt.Sprintf("%s-%s-%s", prefix, sanitize(scope), now.Format("20060102-150405")))
	out := Exported{JSON: base + ".json", CSV: base + ".csv", Text: base + ".txt"}

	doc := NewExportDocument(events, sessionID, now)
	if err := writeFile(out.JSON, func(w io.Writer) error { return ExportJSON(w, doc) }); err != nil {
		return out, err
	}
	if err := writeFile(out.CSV, func(w io.Writer) error { return ExportCSV(w, events) }); err != nil {
		return out, err
	}
	if err := writeFile(out.Text, func(w io.Writer) error {
		_, err := io.WriteString(w, ClipboardSummary(events))
		return err
	}); err != nil {
		return out, err
	}
	return out, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// sanitize garde un nom de fichier sûr.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
