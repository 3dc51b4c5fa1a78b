package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	audit "nameguard/pkg/platform/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id           UUID PRIMARY KEY,
	category     TEXT NOT NULL,
	timestamp    TIMESTAMPTZ NOT NULL,
	action       TEXT NOT NULL,
	decision     TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	reason       TEXT NOT NULL DEFAULT '',
	confidence   INTEGER,
	subject_hash TEXT NOT NULL DEFAULT '',
	request_id   TEXT NOT NULL DEFAULT '',
	actor_id     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_timestamp_idx ON audit_events (timestamp DESC);
CREATE INDEX IF NOT EXISTS audit_events_subject_hash_idx ON audit_events (subject_hash);
`

// Store implements audit.Store on the audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the audit table and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Append inserts an event. Idempotent via ON CONFLICT DO NOTHING, so a retried
// write of the same event ID is harmless.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, action, decision, source,
			reason, confidence, subject_hash, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	var confidence sql.NullInt32
	if event.Confidence != nil {
		confidence = sql.NullInt32{Int32: int32(*event.Confidence), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		event.Action,
		event.Decision,
		event.Source,
		event.Reason,
		confidence,
		event.SubjectHash,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, action, decision, source,
			   reason, confidence, subject_hash, request_id, actor_id
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListBySubject returns every event for one name pair hash, newest first.
func (s *Store) ListBySubject(ctx context.Context, subjectHash string) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, action, decision, source,
			   reason, confidence, subject_hash, request_id, actor_id
		FROM audit_events
		WHERE subject_hash = $1
		ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query, subjectHash)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category   string
			confidence sql.NullInt32
			event      audit.Event
		)

		err := rows.Scan(
			&event.ID,
			&category,
			&event.Timestamp,
			&event.Action,
			&event.Decision,
			&event.Source,
			&event.Reason,
			&confidence,
			&event.SubjectHash,
			&event.RequestID,
			&event.ActorID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if confidence.Valid {
			c := int(confidence.Int32)
			event.Confidence = &c
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
