// ABOUTME: SQLite implementation of the Store interface.
// ABOUTME: Opens the database, creates the schema, and implements session-state persistence.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL for concurrent readers while a writer is active
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS session_states (
			session_id TEXT PRIMARY KEY,
			state BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS slots (
			id TEXT PRIMARY KEY,
			location_id TEXT NOT NULL,
			program TEXT NOT NULL,
			at DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'free',

			CHECK (status IN ('free', 'reserved'))
		);

		CREATE INDEX IF NOT EXISTS idx_slots_location_program
			ON slots(location_id, program);

		CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			slot_id TEXT NOT NULL UNIQUE,
			person_id TEXT NOT NULL,
			case_id TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (slot_id) REFERENCES slots(id)
		);

		CREATE TABLE IF NOT EXISTS cases (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			program TEXT NOT NULL,
			subtype TEXT,
			status TEXT NOT NULL,
			person_json TEXT NOT NULL,
			application_json TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_cases_session
			ON cases(session_id);

		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			assignee TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (case_id) REFERENCES cases(id),

			CHECK (status IN ('open', 'claimed', 'done', 'cancelled'))
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_case_id ON tasks(case_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

		CREATE TABLE IF NOT EXISTS operators (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// SaveSessionState upserts the serialized state for a session.
func (s *SQLiteStore) SaveSessionState(ctx context.Context, sessionID string, state []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_states (session_id, state, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`, sessionID, state)
	if err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}
	return nil
}

// GetSessionState returns the serialized state for a session.
func (s *SQLiteStore) GetSessionState(ctx context.Context, sessionID string) ([]byte, error) {
	var state []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM session_states WHERE session_id = ?`, sessionID,
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session state: %w", err)
	}
	return state, nil
}

// DeleteSessionState removes a session's state. Deleting an absent session is
// not an error; reset must be idempotent.
func (s *SQLiteStore) DeleteSessionState(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_states WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session state: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
