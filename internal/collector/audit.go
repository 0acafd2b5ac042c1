package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/agbruneau/learning-events/pkg/models"
)

// AuditLogger manages concurrent and safe writing of the audit trail.
type AuditLogger struct {
	w       io.Writer
	closer  io.Closer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewAuditLogger opens (in append mode) the audit trail file.
func NewAuditLogger(filename string) (*AuditLogger, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to open file %s: %w", filename, err)
	}
	l := newAuditWriter(file)
	l.closer = file
	return l, nil
}

func newAuditWriter(w io.Writer) *AuditLogger {
	return &AuditLogger{w: w, encoder: json.NewEncoder(w)}
}

// Log writes one entry. The timestamp is filled in when empty.
func (l *AuditLogger) Log(entry models.AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if err := l.encoder.Encode(entry); err != nil {
		fmt.Fprintf(os.Stderr, "Audit encoding error: %v\n", err)
	}
}

// LogBatch records the outcome of one received batch.
// It is called for EVERY batch, stored or not, so the trail explains the store.
func (l *AuditLogger) LogBatch(remoteAddr string, bodySize int, batch *models.Batch, out Outcome, err error) {
	entry := models.AuditEntry{
		EventType:  models.AuditBatchStored,
		RemoteAddr: remoteAddr,
		BodySize:   bodySize,
		Stored:     out.Stored,
		Duplicates: out.Duplicates,
	}
	if batch != nil {
		entry.BatchSize = len(batch.Events)
		entry.SessionIDs = sessionIDs(batch.Events)
	}
	if err != nil {
		entry.EventType = models.AuditBatchFailed
		if isBadRequest(err) {
			entry.EventType = models.AuditBatchRejected
		}
		entry.Error = err.Error()
	}
	l.Log(entry)
}

// Close closes the underlying file, if any.
func (l *AuditLogger) Close() {
	if l == nil || l.closer == nil {
		return
	}
	if err := l.closer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing audit file: %v\n", err)
	}
}

// sessionIDs returns the distinct, sorted session ids of the events.
func sessionIDs(events []models.Event) []string {
	var ids []string
	for i := range events {
		if id := events[i].SessionID; id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
