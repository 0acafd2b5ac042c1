package collector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agbruneau/learning-events/internal/retry"
	"github.com/agbruneau/learning-events/pkg/models"
	_ "modernc.org/sqlite"
)

// Fixed-width UTC layout so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS learning_events (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	session_id TEXT,
	user_id TEXT,
	case_id TEXT,
	verb TEXT NOT NULL,
	object_type TEXT NOT NULL,
	severity INTEGER NOT NULL,
	category TEXT NOT NULL,
	component TEXT,
	payload TEXT NOT NULL,
	received_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_session ON learning_events(session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON learning_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_verb ON learning_events(verb);
CREATE INDEX IF NOT EXISTS idx_events_severity ON learning_events(severity);
`

const insertEvent = `
INSERT OR IGNORE INTO learning_events
	(id, timestamp, session_id, user_id, case_id, verb, object_type, severity, category, component, payload, received_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Store persists learning events in SQLite. Event ids are unique, so a batch
// delivered twice is stored once.
type Store struct {
	db       *sql.DB
	retryCfg retry.Config
	now      func() time.Time
}

// OpenStore opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func OpenStore(ctx context.Context, path string, retryCfg retry.Config) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database %s: %w", path, err)
	}
	// One connection: SQLite has a single writer, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range append(pragmas, schema) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("unable to initialize database: %w", err)
		}
	}

	return &Store{db: db, retryCfg: retryCfg, now: time.Now}, nil
}

// Insert stores the events in one transaction. It returns how many were new
// and how many were already present.
func (s *Store) Insert(ctx context.Context, events []models.Event) (stored, duplicates int, err error) {
	if len(events) == 0 {
		return 0, 0, nil
	}

	res := retry.DoWithCallback(ctx, s.retryCfg, func(ctx context.Context) error {
		var txErr error
		stored, txErr = s.insertTx(ctx, events)
		return classify(txErr)
	}, func(attempt int, err error, next time.Duration) {
		logRetry(attempt, err, next)
	})
	if res.Err != nil {
		return 0, 0, fmt.Errorf("unable to store %d events after %d attempts: %w", len(events), res.Attempts, res.Err)
	}
	return stored, len(events) - stored, nil
}

func (s *Store) insertTx(ctx context.Context, events []models.Event) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertEvent)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	receivedAt := s.now().UTC().Format(timestampLayout)
	stored := 0
	for i := range events {
		e := &events[i]
		payload, err := json.Marshal(e)
		if err != nil {
			return 0, retry.Permanent(fmt.Errorf("event %s: %w", e.ID, err))
		}
		res, err := stmt.ExecContext(ctx,
			e.ID,
			e.Timestamp.UTC().Format(timestampLayout),
			nullable(e.SessionID),
			nullable(e.UserID),
			nullable(e.CaseID),
			string(e.Verb),
			string(e.ObjectType),
			int(e.Severity),
			string(e.Category),
			nullable(e.Component),
			string(payload),
			receivedAt,
		)
		if err != nil {
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stored++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stored, nil
}

// SessionEvents returns every event of the session in time order.
func (s *Store) SessionEvents(ctx context.Context, sessionID string) ([]models.Event, error) {
	return s.query(ctx, `
		SELECT payload FROM learning_events
		WHERE session_id = ?
		ORDER BY timestamp, rowid`, sessionID)
}

// RecentEvents returns the newest limit events across sessions, in time order.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	return s.query(ctx, `
		SELECT payload FROM (
			SELECT payload, timestamp, rowid AS rid FROM learning_events
			ORDER BY timestamp DESC, rowid DESC
			LIMIT ?
		) ORDER BY timestamp, rid`, limit)
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM learning_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("unable to count events: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("unable to read event row: %w", err)
		}
		var e models.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("corrupt event payload: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to iterate events: %w", err)
	}
	return events, nil
}

// classify marks everything except lock contention as permanent.
func classify(err error) error {
	if err == nil || retry.IsPermanent(err) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return err
	}
	return retry.Permanent(err)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
