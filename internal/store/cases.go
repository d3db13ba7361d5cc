// ABOUTME: Case persistence for SQLiteStore.
// ABOUTME: The unique session index backs idempotent case creation.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateCase inserts a new case. Returns ErrDuplicateCase if the session
// already has one; callers are expected to look up first and treat the
// duplicate as a retry.
func (s *SQLiteStore) CreateCase(ctx context.Context, c *Case) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (id, session_id, program, subtype, status, person_json, application_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.SessionID, c.Program, c.Subtype, c.Status, c.PersonJSON, c.ApplicationJSON, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateCase
		}
		return fmt.Errorf("creating case: %w", err)
	}
	return nil
}

// GetCase returns a case by id.
func (s *SQLiteStore) GetCase(ctx context.Context, id string) (*Case, error) {
	return s.scanCase(s.db.QueryRowContext(ctx, `
		SELECT id, session_id, program, subtype, status, person_json, application_json, created_at, updated_at
		FROM cases WHERE id = ?
	`, id))
}

// GetCaseBySession returns the case created for a session, if any.
func (s *SQLiteStore) GetCaseBySession(ctx context.Context, sessionID string) (*Case, error) {
	return s.scanCase(s.db.QueryRowContext(ctx, `
		SELECT id, session_id, program, subtype, status, person_json, application_json, created_at, updated_at
		FROM cases WHERE session_id = ?
	`, sessionID))
}

func (s *SQLiteStore) scanCase(row *sql.Row) (*Case, error) {
	c := &Case{}
	var subtype sql.NullString
	err := row.Scan(&c.ID, &c.SessionID, &c.Program, &subtype, &c.Status,
		&c.PersonJSON, &c.ApplicationJSON, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning case: %w", err)
	}
	c.Subtype = subtype.String
	return c, nil
}

// ListCases returns cases matching the filter, newest first.
func (s *SQLiteStore) ListCases(ctx context.Context, filter CaseFilter) ([]*Case, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, program, subtype, status, person_json, application_json, created_at, updated_at
		FROM cases
		WHERE (? = '' OR program = ?)
		  AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC
	`, filter.Program, filter.Program, filter.Status, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	defer rows.Close()

	var cases []*Case
	for rows.Next() {
		c := &Case{}
		var subtype sql.NullString
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Program, &subtype, &c.Status,
			&c.PersonJSON, &c.ApplicationJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning case: %w", err)
		}
		c.Subtype = subtype.String
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// UpdateCaseStatus sets a case's status. Transition legality is enforced one
// layer up, in the case lifecycle manager.
func (s *SQLiteStore) UpdateCaseStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cases SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, id)
	if err != nil {
		return fmt.Errorf("updating case status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
