// ABOUTME: Operator account and audit-event persistence for SQLiteStore.
// ABOUTME: Operators hold bcrypt hashes; audit events are append-only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateOperator inserts a console user.
func (s *SQLiteStore) CreateOperator(ctx context.Context, op *Operator) error {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operators (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, op.ID, op.Username, op.PasswordHash, op.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating operator: %w", err)
	}
	return nil
}

// GetOperatorByUsername returns an operator for login verification.
func (s *SQLiteStore) GetOperatorByUsername(ctx context.Context, username string) (*Operator, error) {
	op := &Operator{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM operators WHERE username = ?
	`, username).Scan(&op.ID, &op.Username, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting operator: %w", err)
	}
	return op, nil
}

// AppendAudit records an audit event.
func (s *SQLiteStore) AppendAudit(ctx context.Context, ev *AuditEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	details := ev.Details
	if details == "" {
		details = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (actor, action, entity_type, entity_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.Actor, ev.Action, ev.EntityType, ev.EntityID, details, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	return nil
}

// ListAudit returns the most recent audit events, newest first.
func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]*AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, entity_type, entity_id, details, created_at
		FROM audit_events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var events []*AuditEvent
	for rows.Next() {
		ev := &AuditEvent{}
		if err := rows.Scan(&ev.ID, &ev.Actor, &ev.Action, &ev.EntityType, &ev.EntityID, &ev.Details, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
