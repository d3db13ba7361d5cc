// ABOUTME: Operator console service for the human-in-the-loop back office
// ABOUTME: Task claim/complete and case advancement with an audit trail

package operator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/unibuc-cs/ghiseu-gateway/internal/caselife"
	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
)

// Service exposes the operator-facing operations. Task claim semantics
// come from the store's conditional updates: first claim wins, re-claim
// by the holder is a no-op, anyone else gets store.ErrTaskConflict.
type Service struct {
	store  store.Store
	cases  *caselife.Service
	logger *slog.Logger
}

// NewService creates a Service. Pass nil logger for default.
func NewService(st store.Store, cases *caselife.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		cases:  cases,
		logger: logger.With("component", "operator"),
	}
}

// ListTasks returns tasks matching the filter, oldest first.
func (s *Service) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*store.Task, error) {
	return s.store.ListTasks(ctx, filter)
}

// Claim assigns an open task to an operator.
func (s *Service) Claim(ctx context.Context, taskID int64, operatorID string) (*store.Task, error) {
	task, err := s.store.ClaimTask(ctx, taskID, operatorID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, operatorID, "TASK_CLAIM", taskID)
	s.logger.Info("task claimed", "task_id", taskID, "operator_id", operatorID)
	return task, nil
}

// Complete finishes a task the operator holds, recording review notes.
func (s *Service) Complete(ctx context.Context, taskID int64, operatorID, notes string) (*store.Task, error) {
	task, err := s.store.CompleteTask(ctx, taskID, operatorID, notes)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, operatorID, "TASK_COMPLETE", taskID)
	s.logger.Info("task completed", "task_id", taskID, "operator_id", operatorID)
	return task, nil
}

// ListCases returns cases matching the filter, newest first.
func (s *Service) ListCases(ctx context.Context, filter store.CaseFilter) ([]*store.Case, error) {
	return s.store.ListCases(ctx, filter)
}

// GetCase returns one case by id.
func (s *Service) GetCase(ctx context.Context, caseID string) (*store.Case, error) {
	return s.store.GetCase(ctx, caseID)
}

// AdvanceCase moves a case to a new status on behalf of an operator.
// Transition legality is enforced by the case lifecycle layer.
func (s *Service) AdvanceCase(ctx context.Context, operatorID, caseID, status string) (*store.Case, error) {
	return s.cases.Advance(ctx, operatorID, caseID, status)
}

func (s *Service) audit(ctx context.Context, actor, action string, taskID int64) {
	ev := &store.AuditEvent{
		Actor:      actor,
		Action:     action,
		EntityType: "task",
		EntityID:   strconv.FormatInt(taskID, 10),
	}
	if err := s.store.AppendAudit(ctx, ev); err != nil {
		s.logger.Error("audit append failed", "action", action, "error", err)
	}
}

// Audit returns the most recent audit events, newest first.
func (s *Service) Audit(ctx context.Context, limit int) ([]*store.AuditEvent, error) {
	events, err := s.store.ListAudit(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	return events, nil
}
