package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists events to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite event store.
// The path should be a file path (e.g., "./events.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection: sqlite has one writer, and this keeps
	// ":memory:" databases coherent across the pool.
	db.SetMaxOpenConns(1)

	// Enable WAL mode so aggregation reads don't block appends
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ab_events (
			id TEXT NOT NULL PRIMARY KEY,
			experiment_id TEXT NOT NULL,
			variant_index INTEGER NOT NULL DEFAULT 0,
			kind TEXT NOT NULL,
			name TEXT,
			target TEXT,
			identity TEXT,
			user_agent TEXT,
			referer TEXT,
			timestamp TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ab_events_experiment
		ON ab_events(experiment_id, variant_index)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ab_events_kind
		ON ab_events(kind)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, evt Event) error {
	if err := evt.Validate(); err != nil {
		return err
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ab_events
			(id, experiment_id, variant_index, kind, name, target, identity, user_agent, referer, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, evt.ID, evt.ExperimentID, evt.VariantIndex, string(evt.Kind), evt.Name,
		evt.Target, evt.Identity, evt.UserAgent, evt.Referer,
		evt.Timestamp.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Query implements Store. Events are returned in rowid order, which
// callers must not rely on.
func (s *SQLiteStore) Query(ctx context.Context, experimentID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT id, experiment_id, variant_index, kind, name, target, identity, user_agent, referer, timestamp
		FROM ab_events
	`
	args := []any{}
	if experimentID != "" {
		query += " WHERE experiment_id = ?"
		args = append(args, experimentID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var evt Event
		var kind, timestamp string
		if err := rows.Scan(&evt.ID, &evt.ExperimentID, &evt.VariantIndex, &kind,
			&evt.Name, &evt.Target, &evt.Identity, &evt.UserAgent, &evt.Referer,
			&timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Kind = Kind(kind)
		evt.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		events = append(events, evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// ExperimentIDs implements Store.
func (s *SQLiteStore) ExperimentIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT experiment_id FROM ab_events ORDER BY experiment_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query experiment ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan experiment id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate experiment ids: %w", err)
	}

	return ids, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
