// ABOUTME: Tests for case lifecycle management
// ABOUTME: Covers idempotent creation, transition tables, and auto-opened review tasks

package caselife

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMockStore()
	return NewService(st, nil), st
}

func readySession(id string) *session.State {
	s := session.NewState(id)
	s.Program = "CI"
	s.Subtype = "CEI"
	s.EligibilityReason = "AGE_14"
	s.Declared.Person["nume"] = "Popescu"
	s.MarkRecognized("birth_certificate")
	s.Verified.SlotID = "S1"
	return s
}

func TestService_CreateCase_IdempotentPerSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	sess := readySession("sess-1")

	first, err := svc.CreateCase(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, first.Status)
	assert.Equal(t, "CI", first.Program)

	// Same session again: same case, no error
	second, err := svc.CreateCase(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestService_CreateCase_SnapshotsApplication(t *testing.T) {
	svc, st := newTestService(t)
	sess := readySession("sess-1")

	c, err := svc.CreateCase(context.Background(), sess)
	require.NoError(t, err)

	stored, err := st.GetCase(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.PersonJSON, "Popescu")
	assert.Contains(t, stored.ApplicationJSON, "birth_certificate")
	assert.Contains(t, stored.ApplicationJSON, "AGE_14")
}

func TestIsValidTransition_Tables(t *testing.T) {
	tests := []struct {
		program, from, to string
		want              bool
	}{
		{"CI", StatusNew, StatusDocReview, true},
		{"CI", StatusDocReview, StatusReadyForPickup, true},
		{"CI", StatusReadyForPickup, StatusClosed, true},
		{"CI", StatusNew, StatusClosed, false},
		{"CI", StatusDocReview, StatusClosed, false},
		{"CI", StatusClosed, StatusNew, false},
		{"AS", StatusDocReview, StatusClosed, true},
		{"AS", StatusDocReview, StatusReadyForPickup, false},
		{"AS", StatusNew, StatusCancelled, true},
		{"XX", StatusNew, StatusDocReview, false},
	}
	for _, tt := range tests {
		got := IsValidTransition(tt.program, tt.from, tt.to)
		assert.Equal(t, tt.want, got, "%s %s -> %s", tt.program, tt.from, tt.to)
	}
}

func TestService_Advance_RejectsIllegalTransition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, readySession("sess-1"))
	require.NoError(t, err)

	_, err = svc.Advance(ctx, "op-1", c.ID, StatusClosed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := svc.Advance(ctx, "op-1", c.ID, StatusDocReview)
	require.NoError(t, err)
	assert.Equal(t, StatusDocReview, got.Status)
}

func TestService_Advance_SameStatusIsNoop(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, readySession("sess-1"))
	require.NoError(t, err)

	got, err := svc.Advance(ctx, "op-1", c.ID, StatusNew)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, got.Status)

	tasks, err := st.ListTasks(ctx, store.TaskFilter{CaseID: c.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestService_Advance_DocReviewOpensExactlyOneTask(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, readySession("sess-1"))
	require.NoError(t, err)

	_, err = svc.Advance(ctx, "system", c.ID, StatusDocReview)
	require.NoError(t, err)

	tasks, err := st.ListTasks(ctx, store.TaskFilter{CaseID: c.ID, Kind: TaskKindDocReview})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, store.TaskOpen, tasks[0].Status)
}

func TestService_Submit_CreatesAndEntersReview(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	sess := readySession("sess-1")

	c, err := svc.Submit(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, StatusDocReview, c.Status)

	// Resubmission returns the same case without reopening tasks
	again, err := svc.Submit(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
	assert.Equal(t, StatusDocReview, again.Status)

	tasks, err := st.ListTasks(ctx, store.TaskFilter{CaseID: c.ID})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestService_AuditTrail(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, readySession("sess-1"))
	require.NoError(t, err)
	_, err = svc.Advance(ctx, "op-1", c.ID, StatusReadyForPickup)
	require.NoError(t, err)

	events, err := st.ListAudit(ctx, 10)
	require.NoError(t, err)

	actions := make([]string, 0, len(events))
	for _, ev := range events {
		actions = append(actions, ev.Action)
	}
	assert.Contains(t, actions, "CASE_CREATE")
	assert.Contains(t, actions, "TASK_OPEN")
	assert.Contains(t, actions, "CASE_STATUS")
}
