// ABOUTME: Human-review task persistence for SQLiteStore.
// ABOUTME: Claim and complete are conditional updates so concurrent operators cannot both win.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateTask inserts a task and returns its generated id.
func (s *SQLiteStore) CreateTask(ctx context.Context, t *Task) (int64, error) {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = t.CreatedAt
	if t.Status == "" {
		t.Status = TaskOpen
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (case_id, kind, status, assignee, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.CaseID, t.Kind, t.Status, t.Assignee, t.Notes, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("creating task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading task id: %w", err)
	}
	t.ID = id
	return id, nil
}

// GetTask returns a task by id.
func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*Task, error) {
	t := &Task{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, case_id, kind, status, assignee, notes, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id).Scan(&t.ID, &t.CaseID, &t.Kind, &t.Status, &t.Assignee, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks matching the filter, oldest first so operators work
// the queue in arrival order.
func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, kind, status, assignee, notes, created_at, updated_at
		FROM tasks
		WHERE (? = '' OR status = ?)
		  AND (? = '' OR kind = ?)
		  AND (? = '' OR case_id = ?)
		ORDER BY created_at ASC, id ASC
	`, filter.Status, filter.Status, filter.Kind, filter.Kind, filter.CaseID, filter.CaseID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		if err := rows.Scan(&t.ID, &t.CaseID, &t.Kind, &t.Status, &t.Assignee, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClaimTask moves a task open->claimed for assignee. A re-claim by the same
// assignee is an idempotent no-op; a claim on a task held by someone else
// returns ErrTaskConflict with no state change.
func (s *SQLiteStore) ClaimTask(ctx context.Context, id int64, assignee string) (*Task, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'claimed', assignee = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		  AND (status = 'open' OR (status = 'claimed' AND assignee = ?))
	`, assignee, id, assignee)
	if err != nil {
		return nil, fmt.Errorf("claiming task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading claim result: %w", err)
	}
	if affected == 0 {
		// Either the task doesn't exist or someone else holds it.
		t, getErr := s.GetTask(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if t.Status == TaskClaimed && t.Assignee != assignee {
			return nil, ErrTaskConflict
		}
		return nil, fmt.Errorf("task %d not claimable in status %s", id, t.Status)
	}
	return s.GetTask(ctx, id)
}

// CompleteTask moves a task claimed->done, only for the claiming assignee.
func (s *SQLiteStore) CompleteTask(ctx context.Context, id int64, assignee, notes string) (*Task, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'done', notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'claimed' AND assignee = ?
	`, notes, id, assignee)
	if err != nil {
		return nil, fmt.Errorf("completing task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading complete result: %w", err)
	}
	if affected == 0 {
		t, getErr := s.GetTask(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if t.Status == TaskClaimed && t.Assignee != assignee {
			return nil, ErrTaskConflict
		}
		return nil, fmt.Errorf("task %d not completable in status %s", id, t.Status)
	}
	return s.GetTask(ctx, id)
}

// CancelTask is the explicit escape hatch from the open->claimed->done chain.
func (s *SQLiteStore) CancelTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ('open', 'claimed')
	`, id)
	if err != nil {
		return fmt.Errorf("cancelling task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading cancel result: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetTask(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("task %d not cancellable", id)
	}
	return nil
}
