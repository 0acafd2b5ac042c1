package collector

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLoggerClassifiesOutcomes(t *testing.T) {
	var buf bytes.Buffer
	l := newAuditWriter(&buf)
	batch := &models.Batch{Events: []models.Event{event("a", "7", 0), event("b", "42", 1), event("c", "7", 2)}}

	l.LogBatch("10.0.0.1:5000", 321, batch, Outcome{Stored: 2, Duplicates: 1}, nil)
	l.LogBatch("10.0.0.1:5000", 3, nil, Outcome{}, &badRequestError{errors.New("invalid batch")})
	l.LogBatch("10.0.0.1:5000", 321, batch, Outcome{}, errors.New("disk full"))

	entries := auditEntries(t, &buf)
	require.Len(t, entries, 3)

	assert.Equal(t, models.AuditBatchStored, entries[0].EventType)
	assert.Equal(t, 3, entries[0].BatchSize)
	assert.Equal(t, 2, entries[0].Stored)
	assert.Equal(t, 1, entries[0].Duplicates)
	assert.Equal(t, 321, entries[0].BodySize)
	assert.Equal(t, []string{"42", "7"}, entries[0].SessionIDs)

	assert.Equal(t, models.AuditBatchRejected, entries[1].EventType)
	assert.Equal(t, "invalid batch", entries[1].Error)
	assert.Zero(t, entries[1].BatchSize)

	assert.Equal(t, models.AuditBatchFailed, entries[2].EventType)
	assert.Equal(t, "disk full", entries[2].Error)
}

func TestAuditLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.audit")

	for i := 0; i < 2; i++ {
		l, err := NewAuditLogger(path)
		require.NoError(t, err)
		l.Log(models.AuditEntry{EventType: models.AuditBatchStored, BatchSize: i + 1})
		l.Close()
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := auditEntries(t, bytes.NewBuffer(data))
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].BatchSize)
	assert.Equal(t, 2, entries[1].BatchSize)
}

func TestNewAuditLoggerBadPath(t *testing.T) {
	_, err := NewAuditLogger(filepath.Join(t.TempDir(), "missing", "collector.audit"))
	assert.Error(t, err)
}

func TestAuditLoggerNilClose(t *testing.T) {
	var l *AuditLogger
	assert.NotPanics(t, l.Close)
}

func TestSystemMetricsSnapshot(t *testing.T) {
	sm := newSystemMetrics()
	sm.recordBatch(Outcome{Stored: 3, Duplicates: 1})
	sm.recordBatch(Outcome{Stored: 1, Rejected: 2})
	sm.recordFailure(true)
	sm.recordFailure(false)

	s := sm.Snapshot()
	assert.Equal(t, int64(4), s.BatchesReceived)
	assert.Equal(t, int64(1), s.BatchesRejected)
	assert.Equal(t, int64(1), s.BatchesFailed)
	assert.Equal(t, int64(4), s.EventsStored)
	assert.Equal(t, int64(1), s.EventsDuplicated)
	assert.Equal(t, int64(2), s.EventsRejected)
	assert.GreaterOrEqual(t, s.UptimeSeconds, 0.0)
}

func TestLogPeriodicMetricsStops(t *testing.T) {
	sm := newSystemMetrics()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		sm.logPeriodicMetrics(time.Millisecond, stop)
		close(done)
	}()
	close(stop)
	<-done

	// A zero interval disables the loop
	sm.logPeriodicMetrics(0, nil)
}
