// ABOUTME: Tests for the SQLite store implementation.
// ABOUTME: Covers session blobs, slot reservation races, case uniqueness, and task claim rules.

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SessionState_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSessionState(ctx, "sess-1", []byte(`{"phase":"idle"}`)))

	state, err := s.GetSessionState(ctx, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"idle"}`, string(state))

	// Upsert overwrites
	require.NoError(t, s.SaveSessionState(ctx, "sess-1", []byte(`{"phase":"done"}`)))
	state, err = s.GetSessionState(ctx, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"done"}`, string(state))
}

func TestSQLiteStore_SessionState_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSessionState(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_DeleteSessionState_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSessionState(ctx, "sess-1", []byte(`{}`)))
	require.NoError(t, s.DeleteSessionState(ctx, "sess-1"))
	require.NoError(t, s.DeleteSessionState(ctx, "sess-1"))

	_, err := s.GetSessionState(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func seedSlot(t *testing.T, s Store, id string, when time.Time) {
	t.Helper()
	require.NoError(t, s.CreateSlot(context.Background(), &Slot{
		ID:         id,
		LocationID: "Bucuresti-S1",
		Program:    "CI",
		When:       when,
	}))
}

func TestSQLiteStore_ListFreeSlots_OrderedByTime(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	seedSlot(t, s, "S2", base.Add(24*time.Hour))
	seedSlot(t, s, "S1", base)
	seedSlot(t, s, "S3", base.Add(48*time.Hour))

	slots, err := s.ListFreeSlots(context.Background(), "Bucuresti-S1", "CI")
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "S1", slots[0].ID)
	assert.Equal(t, "S2", slots[1].ID)
	assert.Equal(t, "S3", slots[2].ID)
}

func TestSQLiteStore_ReserveSlot_ExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSlot(t, s, "S1", time.Now().Add(time.Hour))

	require.NoError(t, s.ReserveSlot(ctx, &Appointment{ID: "A1", SlotID: "S1", PersonID: "p1"}))

	err := s.ReserveSlot(ctx, &Appointment{ID: "A2", SlotID: "S1", PersonID: "p2"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// Winner's appointment untouched
	appt, err := s.GetAppointment(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "p1", appt.PersonID)

	slot, err := s.GetSlot(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, SlotReserved, slot.Status)
}

func TestSQLiteStore_ReserveSlot_Concurrent(t *testing.T) {
	s := newTestStore(t)
	seedSlot(t, s, "S1", time.Now().Add(time.Hour))

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.ReserveSlot(context.Background(), &Appointment{
				ID:       "A-" + string(rune('a'+i)),
				SlotID:   "S1",
				PersonID: "p",
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		}
	}
	assert.Equal(t, 1, wins, "exactly one reservation must win")
}

func TestSQLiteStore_ReserveSlot_UnknownSlot(t *testing.T) {
	s := newTestStore(t)

	err := s.ReserveSlot(context.Background(), &Appointment{ID: "A1", SlotID: "nope", PersonID: "p"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ReleaseSlot_FreesForRebooking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSlot(t, s, "S1", time.Now().Add(time.Hour))

	require.NoError(t, s.ReserveSlot(ctx, &Appointment{ID: "A1", SlotID: "S1", PersonID: "p1"}))
	require.NoError(t, s.ReleaseSlot(ctx, "A1"))

	_, err := s.GetAppointment(ctx, "A1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Slot reservable again after cancel
	require.NoError(t, s.ReserveSlot(ctx, &Appointment{ID: "A2", SlotID: "S1", PersonID: "p2"}))
}

func TestSQLiteStore_CreateCase_UniquePerSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &Case{ID: "CASE-1", SessionID: "sess-1", Program: "CI", Status: "NEW",
		PersonJSON: "{}", ApplicationJSON: "{}"}
	require.NoError(t, s.CreateCase(ctx, c))

	dup := &Case{ID: "CASE-2", SessionID: "sess-1", Program: "CI", Status: "NEW",
		PersonJSON: "{}", ApplicationJSON: "{}"}
	assert.ErrorIs(t, s.CreateCase(ctx, dup), ErrDuplicateCase)

	got, err := s.GetCaseBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "CASE-1", got.ID)
}

func TestSQLiteStore_ListCases_Filter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCase(ctx, &Case{ID: "C1", SessionID: "s1", Program: "CI", Status: "NEW", PersonJSON: "{}", ApplicationJSON: "{}"}))
	require.NoError(t, s.CreateCase(ctx, &Case{ID: "C2", SessionID: "s2", Program: "AS", Status: "NEW", PersonJSON: "{}", ApplicationJSON: "{}"}))

	cases, err := s.ListCases(ctx, CaseFilter{Program: "AS"})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "C2", cases[0].ID)
}

func createCaseWithTask(t *testing.T, s Store) int64 {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateCase(ctx, &Case{ID: "C1", SessionID: "s1", Program: "CI", Status: "DOC_REVIEW", PersonJSON: "{}", ApplicationJSON: "{}"}))
	id, err := s.CreateTask(ctx, &Task{CaseID: "C1", Kind: "doc review"})
	require.NoError(t, err)
	return id
}

func TestSQLiteStore_ClaimTask_Conflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := createCaseWithTask(t, s)

	claimed, err := s.ClaimTask(ctx, id, "op-1")
	require.NoError(t, err)
	assert.Equal(t, TaskClaimed, claimed.Status)

	// Same operator re-claims: no-op
	again, err := s.ClaimTask(ctx, id, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "op-1", again.Assignee)

	// Different operator: conflict, no state change
	_, err = s.ClaimTask(ctx, id, "op-2")
	assert.ErrorIs(t, err, ErrTaskConflict)

	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "op-1", got.Assignee)
}

func TestSQLiteStore_ClaimTask_Concurrent(t *testing.T) {
	s := newTestStore(t)
	id := createCaseWithTask(t, s)

	const operators = 8
	var wg sync.WaitGroup
	errs := make([]error, operators)
	for i := 0; i < operators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.ClaimTask(context.Background(), id, "op-"+string(rune('0'+i)))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrTaskConflict)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestSQLiteStore_CompleteTask_RequiresClaimByCaller(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := createCaseWithTask(t, s)

	// Not claimed yet
	_, err := s.CompleteTask(ctx, id, "op-1", "n")
	require.Error(t, err)

	_, err = s.ClaimTask(ctx, id, "op-1")
	require.NoError(t, err)

	// Wrong operator
	_, err = s.CompleteTask(ctx, id, "op-2", "n")
	assert.ErrorIs(t, err, ErrTaskConflict)

	done, err := s.CompleteTask(ctx, id, "op-1", "verified birth certificate")
	require.NoError(t, err)
	assert.Equal(t, TaskDone, done.Status)
	assert.Equal(t, "verified birth certificate", done.Notes)
}

func TestSQLiteStore_Operators_And_Audit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOperator(ctx, &Operator{ID: "op-1", Username: "ana", PasswordHash: "x"}))
	op, err := s.GetOperatorByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "op-1", op.ID)

	_, err = s.GetOperatorByUsername(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.AppendAudit(ctx, &AuditEvent{Actor: "op-1", Action: "TASK_CLAIM", EntityType: "task", EntityID: "5"}))
	require.NoError(t, s.AppendAudit(ctx, &AuditEvent{Actor: "op-1", Action: "TASK_COMPLETE", EntityType: "task", EntityID: "5"}))

	events, err := s.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "TASK_COMPLETE", events[0].Action, "newest first")
}
