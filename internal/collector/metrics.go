package collector

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SystemMetrics collects ingest counters.
// Access to this structure is protected by a mutex for thread safety.
type SystemMetrics struct {
	mu               sync.RWMutex
	StartTime        time.Time
	BatchesReceived  int64
	BatchesRejected  int64
	BatchesFailed    int64
	EventsStored     int64
	EventsDuplicated int64
	EventsRejected   int64
	LastBatchTime    time.Time
}

// MetricsSnapshot is a point-in-time copy of SystemMetrics, served by /healthz.
type MetricsSnapshot struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	BatchesReceived  int64   `json:"batches_received"`
	BatchesRejected  int64   `json:"batches_rejected"`
	BatchesFailed    int64   `json:"batches_failed"`
	EventsStored     int64   `json:"events_stored"`
	EventsDuplicated int64   `json:"events_duplicated"`
	EventsRejected   int64   `json:"events_rejected"`
	EventsPerSecond  float64 `json:"events_per_second"`
}

func newSystemMetrics() *SystemMetrics {
	return &SystemMetrics{StartTime: time.Now()}
}

// recordBatch updates counters for a batch that reached the store.
func (sm *SystemMetrics) recordBatch(out Outcome) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.BatchesReceived++
	sm.EventsStored += int64(out.Stored)
	sm.EventsDuplicated += int64(out.Duplicates)
	sm.EventsRejected += int64(out.Rejected)
	sm.LastBatchTime = time.Now()
}

// recordFailure updates counters for a batch that was rejected or lost.
func (sm *SystemMetrics) recordFailure(rejected bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.BatchesReceived++
	if rejected {
		sm.BatchesRejected++
	} else {
		sm.BatchesFailed++
	}
	sm.LastBatchTime = time.Now()
}

// Snapshot returns a consistent copy of the counters.
func (sm *SystemMetrics) Snapshot() MetricsSnapshot {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	uptime := time.Since(sm.StartTime)
	var perSecond float64
	if uptime.Seconds() > 0 {
		perSecond = float64(sm.EventsStored) / uptime.Seconds()
	}
	return MetricsSnapshot{
		UptimeSeconds:    uptime.Seconds(),
		BatchesReceived:  sm.BatchesReceived,
		BatchesRejected:  sm.BatchesRejected,
		BatchesFailed:    sm.BatchesFailed,
		EventsStored:     sm.EventsStored,
		EventsDuplicated: sm.EventsDuplicated,
		EventsRejected:   sm.EventsRejected,
		EventsPerSecond:  perSecond,
	}
}

// logPeriodicMetrics writes metrics until stop is closed.
func (sm *SystemMetrics) logPeriodicMetrics(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sm.log("Periodic system metrics")
		}
	}
}

func (sm *SystemMetrics) log(msg string) {
	s := sm.Snapshot()
	var successRate float64
	if s.BatchesReceived > 0 {
		successRate = float64(s.BatchesReceived-s.BatchesRejected-s.BatchesFailed) / float64(s.BatchesReceived) * 100
	}
	slog.Info(msg,
		"uptime_seconds", s.UptimeSeconds,
		"batches_received", s.BatchesReceived,
		"batches_rejected", s.BatchesRejected,
		"batches_failed", s.BatchesFailed,
		"events_stored", s.EventsStored,
		"events_duplicated", s.EventsDuplicated,
		"events_rejected", s.EventsRejected,
		"success_rate_percent", fmt.Sprintf("%.2f", successRate),
		"events_per_second", fmt.Sprintf("%.2f", s.EventsPerSecond),
	)
}

func logRetry(attempt int, err error, next time.Duration) {
	slog.Warn("store write retry", "attempt", attempt, "error", err, "next_delay", next)
}
