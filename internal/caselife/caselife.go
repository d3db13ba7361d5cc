// ABOUTME: Case lifecycle management for citizen applications
// ABOUTME: Idempotent creation per session and table-driven status transitions

package caselife

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
)

// ErrInvalidTransition is returned when a requested status change is not
// in the program's transition table.
var ErrInvalidTransition = errors.New("invalid case status transition")

// Case statuses.
const (
	StatusNew            = "NEW"
	StatusDocReview      = "DOC_REVIEW"
	StatusReadyForPickup = "READY_FOR_PICKUP"
	StatusClosed         = "CLOSED"
	StatusCancelled      = "CANCELLED"
)

// TaskKindDocReview is the task opened automatically when a case enters
// document review.
const TaskKindDocReview = "doc_review"

// transitions maps each program to its legal status moves. Identity-card
// cases pass through pickup; social-aid cases close straight from review.
var transitions = map[string]map[string][]string{
	"CI": {
		StatusNew:            {StatusDocReview, StatusCancelled},
		StatusDocReview:      {StatusReadyForPickup, StatusCancelled},
		StatusReadyForPickup: {StatusClosed, StatusCancelled},
	},
	"AS": {
		StatusNew:       {StatusDocReview, StatusCancelled},
		StatusDocReview: {StatusClosed, StatusCancelled},
	},
}

// IsValidTransition reports whether a program allows moving a case from
// one status to another.
func IsValidTransition(program, from, to string) bool {
	for _, next := range transitions[program][from] {
		if next == to {
			return true
		}
	}
	return false
}

// Service owns case creation and status changes.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates a Service. Pass nil logger for default.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		logger: logger.With("component", "caselife"),
	}
}

// CreateCase files a case for a session's application. It is idempotent
// per session: a second submission returns the existing case unchanged,
// never an error. The store's unique index backstops the lookup against
// a concurrent duplicate.
func (s *Service) CreateCase(ctx context.Context, sess *session.State) (*store.Case, error) {
	if existing, err := s.store.GetCaseBySession(ctx, sess.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up case for session %s: %w", sess.ID, err)
	}

	person, err := json.Marshal(sess.Declared.Person)
	if err != nil {
		return nil, fmt.Errorf("encoding person: %w", err)
	}
	application, err := json.Marshal(applicationSnapshot(sess))
	if err != nil {
		return nil, fmt.Errorf("encoding application: %w", err)
	}

	c := &store.Case{
		ID:              newCaseID(),
		SessionID:       sess.ID,
		Program:         sess.Program,
		Subtype:         sess.Subtype,
		Status:          StatusNew,
		PersonJSON:      string(person),
		ApplicationJSON: string(application),
	}
	if err := s.store.CreateCase(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicateCase) {
			// Lost the race to another writer for the same session.
			return s.store.GetCaseBySession(ctx, sess.ID)
		}
		return nil, err
	}

	s.audit(ctx, "system", "CASE_CREATE", "case", c.ID, "program="+c.Program)
	s.logger.Info("case created",
		"case_id", c.ID,
		"session_id", sess.ID,
		"program", c.Program)
	return c, nil
}

// Advance moves a case to a new status if the program's transition table
// allows it. Entering DOC_REVIEW opens exactly one doc-review task.
func (s *Service) Advance(ctx context.Context, actor, caseID, to string) (*store.Case, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status == to {
		return c, nil
	}
	if !IsValidTransition(c.Program, c.Status, to) {
		return nil, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, c.Program, c.Status, to)
	}

	if err := s.store.UpdateCaseStatus(ctx, caseID, to); err != nil {
		return nil, err
	}

	if to == StatusDocReview {
		if err := s.ensureDocReviewTask(ctx, caseID); err != nil {
			return nil, err
		}
	}

	s.audit(ctx, actor, "CASE_STATUS", "case", caseID, c.Status+" -> "+to)
	s.logger.Info("case advanced",
		"case_id", caseID,
		"from", c.Status,
		"to", to,
		"actor", actor)

	c.Status = to
	return c, nil
}

// Submit files the case and immediately moves it into document review,
// which is where every freshly submitted application starts its
// operator-side life.
func (s *Service) Submit(ctx context.Context, sess *session.State) (*store.Case, error) {
	c, err := s.CreateCase(ctx, sess)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusNew {
		// Resubmission of an already-progressed case.
		return c, nil
	}
	return s.Advance(ctx, "system", c.ID, StatusDocReview)
}

// ensureDocReviewTask opens the review task unless one already exists
// for the case.
func (s *Service) ensureDocReviewTask(ctx context.Context, caseID string) error {
	existing, err := s.store.ListTasks(ctx, store.TaskFilter{CaseID: caseID, Kind: TaskKindDocReview})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	id, err := s.store.CreateTask(ctx, &store.Task{CaseID: caseID, Kind: TaskKindDocReview})
	if err != nil {
		return fmt.Errorf("opening doc review task: %w", err)
	}
	s.audit(ctx, "system", "TASK_OPEN", "task", strconv.FormatInt(id, 10), "case="+caseID)
	return nil
}

func (s *Service) audit(ctx context.Context, actor, action, entityType, entityID, detail string) {
	ev := &store.AuditEvent{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    detail,
	}
	if err := s.store.AppendAudit(ctx, ev); err != nil {
		s.logger.Error("audit append failed", "action", action, "error", err)
	}
}

func applicationSnapshot(sess *session.State) map[string]any {
	return map[string]any{
		"fields":             sess.Declared.Application,
		"subtype":            sess.Subtype,
		"eligibility_reason": sess.EligibilityReason,
		"location_id":        sess.LocationID,
		"slot_id":            sess.Verified.SlotID,
		"appointment_id":     sess.Verified.AppointmentID,
		"recognized_docs":    sess.Verified.RecognizedDocs,
	}
}

func newCaseID() string {
	return "CASE-" + strings.ToUpper(uuid.New().String()[:8])
}
