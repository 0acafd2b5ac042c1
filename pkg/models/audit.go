package models

// AuditEventType identifies what happened to a batch at the collector.
type AuditEventType string

const (
	// AuditBatchStored is written when a batch was accepted and persisted.
	AuditBatchStored AuditEventType = "batch.stored"
	// AuditBatchRejected is written when a batch failed decoding or validation.
	AuditBatchRejected AuditEventType = "batch.rejected"
	// AuditBatchFailed is written when storage failed after retries.
	AuditBatchFailed AuditEventType = "batch.failed"
)

// AuditEntry is one line of the collector's audit trail.
// Every batch that reaches the collector produces exactly one entry, whether
// it was stored, rejected or lost, so the trail can be replayed to explain the
// contents of the store.
type AuditEntry struct {
	Timestamp  string         `json:"timestamp"`             // Reception time, RFC3339.
	EventType  AuditEventType `json:"event_type"`            // batch.stored, batch.rejected, batch.failed.
	RemoteAddr string         `json:"remote_addr,omitempty"` // Sender address.
	BatchSize  int            `json:"batch_size"`            // Number of events in the batch.
	Stored     int            `json:"stored"`                // Newly persisted events.
	Duplicates int            `json:"duplicates"`            // Events already present (retried batches).
	SessionIDs []string       `json:"session_ids,omitempty"` // Distinct sessions in the batch.
	BodySize   int            `json:"body_size"`             // Request body size in bytes.
	Error      string         `json:"error,omitempty"`       // Failure reason, if any.
}
