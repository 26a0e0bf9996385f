// SQLite transcript storage.
//
// Information Hiding:
// - SQLite connection management hidden behind SqliteStore
// - Schema details encapsulated
// - Event sequence numbering hidden in RunSink

package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore persists runs and their transcript events.
type SqliteStore struct {
	db *sql.DB
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	Title    string
	Provider string
	Model    string
	Usecase  string
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	ID         string
	Title      string
	Provider   string
	Model      string
	Usecase    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Reason     string
	Turns      int
	Events     int
}

// EventRecord is one stored transcript entry.
type EventRecord struct {
	Seq     int
	Kind    string
	Message string
	Fields  map[string]any
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqliteStore(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	return newSqliteStore(db)
}

func newSqliteStore(db *sql.DB) (*SqliteStore, error) {
	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			usecase TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER,
			reason TEXT NOT NULL DEFAULT '',
			turns INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			message TEXT NOT NULL,
			fields TEXT,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
			UNIQUE(run_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_events_run
		ON events(run_id, seq);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// StartRun inserts a run row and returns a sink that appends its events.
func (s *SqliteStore) StartRun(ctx context.Context, info RunInfo) (*RunSink, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, title, provider, model, usecase, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, info.Title, info.Provider, info.Model, info.Usecase, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return &RunSink{db: s.db, runID: id}, nil
}

// ListRuns returns all runs, newest first.
func (s *SqliteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.title, r.provider, r.model, r.usecase, r.started_at,
		       r.finished_at, r.reason, r.turns,
		       (SELECT COUNT(*) FROM events e WHERE e.run_id = r.run_id)
		FROM runs r
		ORDER BY r.started_at DESC, r.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r        RunSummary
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Provider, &r.Model, &r.Usecase, &started,
			&finished, &r.Reason, &r.Turns, &r.Events); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			t := time.Unix(finished.Int64, 0)
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Events returns the events of a run in sequence order.
func (s *SqliteStore) Events(ctx context.Context, runID string) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, kind, message, fields FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var (
			e      EventRecord
			fields sql.NullString
		)
		if err := rows.Scan(&e.Seq, &e.Kind, &e.Message, &fields); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to decode event fields: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RunSink appends events for one run. It implements Sink.
type RunSink struct {
	db    *sql.DB
	runID string
	seq   int
}

// RunID returns the UUID of the run.
func (r *RunSink) RunID() string {
	return r.runID
}

// Record appends one event.
func (r *RunSink) Record(kind, message string, fields map[string]any) error {
	var encoded sql.NullString
	if len(fields) > 0 {
		data, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to encode event fields: %w", err)
		}
		encoded = sql.NullString{String: string(data), Valid: true}
	}

	r.seq++
	_, err := r.db.Exec(
		`INSERT INTO events (run_id, seq, kind, message, fields, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.runID, r.seq, kind, message, encoded, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Finish stores how the run ended.
func (r *RunSink) Finish(ctx context.Context, reason string, turns int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, reason = ?, turns = ? WHERE run_id = ?`,
		time.Now().Unix(), reason, turns, r.runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// Verify RunSink implements Sink
var _ Sink = (*RunSink)(nil)
