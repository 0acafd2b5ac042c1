package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/agbruneau/learning-events/internal/retry"
	"github.com/agbruneau/learning-events/internal/taxonomy"
	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func testRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

// newTestCollector wires an in-memory store and an in-memory audit trail.
func newTestCollector(t *testing.T, opts ...func(*Config)) (*Collector, *bytes.Buffer) {
	t.Helper()
	cfg := &Config{DBPath: ":memory:", MaxBodyBytes: 1 << 20, Retry: testRetry()}
	for _, opt := range opts {
		opt(cfg)
	}

	c := New(cfg)
	store, err := OpenStore(context.Background(), cfg.DBPath, cfg.Retry)
	require.NoError(t, err)
	c.store = store

	var buf bytes.Buffer
	c.audit = newAuditWriter(&buf)
	t.Cleanup(c.Close)
	return c, &buf
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(context.Background(), ":memory:", testRetry())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// event builds a valid event offset seconds after baseTime.
func event(id, session string, offset int) models.Event {
	return models.Event{
		ID:         id,
		Timestamp:  baseTime.Add(time.Duration(offset) * time.Second),
		SessionID:  session,
		UserID:     "learner-" + session,
		Verb:       taxonomy.OrderedLab,
		ObjectType: taxonomy.ObjectLabTest,
		Severity:   models.SeverityAction,
		Category:   models.CategoryClinical,
		Component:  "InvestigationPanel",
	}
}

func events(session string, n int) []models.Event {
	out := make([]models.Event, n)
	for i := range out {
		out[i] = event(fmt.Sprintf("%s-%d", session, i), session, i)
	}
	return out
}

func batchBody(t *testing.T, evs ...models.Event) []byte {
	t.Helper()
	body, err := json.Marshal(models.Batch{Events: evs})
	require.NoError(t, err)
	return body
}

func eventIDs(evs []models.Event) []string {
	ids := make([]string, len(evs))
	for i := range evs {
		ids[i] = evs[i].ID
	}
	return ids
}

// auditEntries decodes the JSON lines written to buf.
func auditEntries(t *testing.T, buf *bytes.Buffer) []models.AuditEntry {
	t.Helper()
	var entries []models.AuditEntry
	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	for dec.More() {
		var e models.AuditEntry
		require.NoError(t, dec.Decode(&e))
		entries = append(entries, e)
	}
	return entries
}
