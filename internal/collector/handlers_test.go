package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agbruneau/learning-events/internal/eventlog"
	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postBatch(c *Collector, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/learning-events/batch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)
	return rec
}

func get(c *Collector, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) Outcome {
	t.Helper()
	var out Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeEvents(t *testing.T, rec *httptest.ResponseRecorder) []models.Event {
	t.Helper()
	var b models.Batch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b.Events
}

func TestHandleBatchStores(t *testing.T) {
	c, audit := newTestCollector(t)

	rec := postBatch(c, batchBody(t, event("a", "42", 0), event("b", "7", 1)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, Outcome{Stored: 2}, decodeOutcome(t, rec))

	entries := auditEntries(t, audit)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditBatchStored, entries[0].EventType)
	assert.Equal(t, 2, entries[0].BatchSize)
	assert.Equal(t, []string{"42", "7"}, entries[0].SessionIDs)
	assert.NotEmpty(t, entries[0].Timestamp)
}

func TestHandleBatchRetriedBatchIsDeduplicated(t *testing.T) {
	c, _ := newTestCollector(t)
	body := batchBody(t, events("42", 3)...)

	require.Equal(t, http.StatusCreated, postBatch(c, body).Code)
	rec := postBatch(c, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, Outcome{Duplicates: 3}, decodeOutcome(t, rec))

	snap := c.metrics.Snapshot()
	assert.Equal(t, int64(2), snap.BatchesReceived)
	assert.Equal(t, int64(3), snap.EventsStored)
	assert.Equal(t, int64(3), snap.EventsDuplicated)
}

func TestHandleBatchRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated", `{"events": [`},
		{"empty batch", `{"events": []}`},
		{"missing events", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, audit := newTestCollector(t)

			rec := postBatch(c, []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			entries := auditEntries(t, audit)
			require.Len(t, entries, 1)
			assert.Equal(t, models.AuditBatchRejected, entries[0].EventType)
			assert.NotEmpty(t, entries[0].Error)
			assert.Equal(t, int64(1), c.metrics.Snapshot().BatchesRejected)
		})
	}
}

func TestHandleBatchCountsInvalidEvents(t *testing.T) {
	c, _ := newTestCollector(t)

	bad := event("bad", "42", 1)
	bad.Verb = ""
	rec := postBatch(c, batchBody(t, event("good", "42", 0), bad))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, Outcome{Stored: 1, Rejected: 1}, decodeOutcome(t, rec))

	got, err := c.store.SessionEvents(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, eventIDs(got))
}

func TestHandleBatchTooLarge(t *testing.T) {
	c, audit := newTestCollector(t, func(cfg *Config) { cfg.MaxBodyBytes = 16 })

	rec := postBatch(c, batchBody(t, events("42", 2)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Len(t, auditEntries(t, audit), 1)
}

func TestHandleBatchWrongMethod(t *testing.T) {
	c, _ := newTestCollector(t)
	rec := get(c, "/api/learning-events/batch", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessionEndpoint(t *testing.T) {
	c, _ := newTestCollector(t)
	postBatch(c, batchBody(t, event("b", "42", 2), event("x", "7", 1), event("a", "42", 1)))

	rec := get(c, "/api/learning-events/session/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"a", "b"}, eventIDs(decodeEvents(t, rec)))

	rec = get(c, "/api/learning-events/session/none", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events": []}`, rec.Body.String())
}

func TestAllEndpointHonoursLimit(t *testing.T) {
	c, _ := newTestCollector(t)
	postBatch(c, batchBody(t, events("42", 4)...))

	rec := get(c, "/api/learning-events/all?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"42-2", "42-3"}, eventIDs(decodeEvents(t, rec)))

	rec = get(c, "/api/learning-events/all", "")
	assert.Len(t, decodeEvents(t, rec), 4)
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 500},
		{"abc", 500},
		{"0", 500},
		{"-3", 500},
		{"10", 10},
		{"5000", 5000},
		{"99999", 5000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLimit(tt.raw), "limit=%q", tt.raw)
	}
}

func TestReadEndpointsRequireToken(t *testing.T) {
	c, _ := newTestCollector(t, func(cfg *Config) { cfg.Token = "s3cret" })

	// Ingest stays open
	require.Equal(t, http.StatusCreated, postBatch(c, batchBody(t, event("a", "42", 0))).Code)

	for _, target := range []string{"/api/learning-events/session/42", "/api/learning-events/all"} {
		rec := get(c, target, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Bearer"))

		assert.Equal(t, http.StatusUnauthorized, get(c, target, "wrong").Code, target)
		assert.Equal(t, http.StatusOK, get(c, target, "s3cret").Code, target)
	}
}

func TestHealthEndpoint(t *testing.T) {
	c, _ := newTestCollector(t)
	postBatch(c, batchBody(t, events("42", 2)...))

	rec := get(c, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status  string          `json:"status"`
		Events  int64           `json:"events"`
		Metrics MetricsSnapshot `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, int64(2), body.Events)
	assert.Equal(t, int64(2), body.Metrics.EventsStored)
}

func TestLoggerToCollectorEndToEnd(t *testing.T) {
	c, _ := newTestCollector(t)
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	l := eventlog.New(eventlog.NewHTTPSink(srv.URL), eventlog.WithBatchSize(100))
	l.SessionStarted(eventlog.Context{SessionID: "42", UserID: "learner-1"})
	l.LabOrdered("lab-1", "Troponin")
	l.MessageSent("Any chest pain?")
	require.NoError(t, l.Flush(context.Background()))

	rec := get(c, "/api/learning-events/session/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decodeEvents(t, rec)
	require.Len(t, stored, 3)
	assert.Equal(t, "learner-1", stored[1].UserID)
	assert.Equal(t, "learner-1", stored[1].Username, "labels survive storage")
	assert.Equal(t, models.RoleUser, stored[2].MessageRole)

	// The same batch again, as after a lost acknowledgement
	rec = postBatch(c, batchBody(t, stored...))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, Outcome{Duplicates: 3}, decodeOutcome(t, rec))
}
