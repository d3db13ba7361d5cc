// ABOUTME: Tests for session state and phase evaluation
// ABOUTME: Covers history bounding, verified-set growth, location changes, and Evaluate

package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_AppendTurn_Bounded(t *testing.T) {
	s := NewState("sess-1")
	for i := 0; i < MaxHistoryTurns+10; i++ {
		s.AppendTurn("user", fmt.Sprintf("turn %d", i))
	}

	require.Len(t, s.History, MaxHistoryTurns)
	assert.Equal(t, "turn 10", s.History[0].Text, "oldest turns dropped first")
	assert.Equal(t, fmt.Sprintf("turn %d", MaxHistoryTurns+9), s.History[len(s.History)-1].Text)
}

func TestState_MarkRecognized_AppendOnly(t *testing.T) {
	s := NewState("sess-1")

	added := s.MarkRecognized("birth_certificate", "address_proof")
	assert.ElementsMatch(t, []string{"birth_certificate", "address_proof"}, added)

	// Re-recognizing is a no-op
	added = s.MarkRecognized("birth_certificate")
	assert.Empty(t, added)
	assert.Len(t, s.Verified.RecognizedDocs, 2)

	added = s.MarkRecognized("", "police_report")
	assert.Equal(t, []string{"police_report"}, added)
	assert.True(t, s.HasRecognized("police_report"))
	assert.False(t, s.HasRecognized("income_proof"))
}

func TestState_SetLocation_DropsHeldSlot(t *testing.T) {
	s := NewState("sess-1")
	s.LocationID = "Bucuresti-S1"
	s.Verified.SlotID = "S1"
	s.Verified.AppointmentID = "A1"

	// Same location keeps the slot
	assert.False(t, s.SetLocation("Bucuresti-S1"))
	assert.Equal(t, "S1", s.Verified.SlotID)

	// New location drops it
	assert.True(t, s.SetLocation("Ilfov-01"))
	assert.Empty(t, s.Verified.SlotID)
	assert.Empty(t, s.Verified.AppointmentID)

	// Changing again with no held slot reports no drop
	assert.False(t, s.SetLocation("Bucuresti-S1"))
}

func completeGuard(missing ...string) Guard {
	return Guard{
		IdentityComplete: func(*State) bool { return true },
		MissingDocs:      func(*State) []string { return missing },
	}
}

func TestEvaluate_PhaseProgression(t *testing.T) {
	s := NewState("sess-1")

	phase, _ := Evaluate(s, completeGuard())
	assert.Equal(t, PhaseIdle, phase, "no program selected yet")

	s.Program = "CI"
	phase, _ = Evaluate(s, Guard{IdentityComplete: func(*State) bool { return false }})
	assert.Equal(t, PhaseCollectingIdentity, phase)

	phase, missing := Evaluate(s, completeGuard("birth_certificate"))
	assert.Equal(t, PhaseAwaitingDocuments, phase)
	assert.Equal(t, []string{"birth_certificate"}, missing)

	phase, missing = Evaluate(s, completeGuard())
	assert.Equal(t, PhaseAwaitingSlot, phase)
	assert.Empty(t, missing)

	s.Verified.SlotID = "S1"
	phase, _ = Evaluate(s, completeGuard())
	assert.Equal(t, PhaseReadyToSubmit, phase)

	s.Verified.CaseID = "CASE-1"
	phase, _ = Evaluate(s, completeGuard())
	assert.Equal(t, PhaseDone, phase)
}

func TestEvaluate_Idempotent(t *testing.T) {
	s := NewState("sess-1")
	s.Program = "CI"
	s.Verified.SlotID = "S1"
	g := completeGuard()

	first, _ := Evaluate(s, g)
	second, _ := Evaluate(s, g)
	assert.Equal(t, first, second)
	assert.Equal(t, PhaseReadyToSubmit, first)
}

func TestEvaluate_NeverSkipsDocuments(t *testing.T) {
	// A held slot does not bypass missing documents.
	s := NewState("sess-1")
	s.Program = "CI"
	s.Verified.SlotID = "S1"

	phase, missing := Evaluate(s, completeGuard("police_report"))
	assert.Equal(t, PhaseAwaitingDocuments, phase)
	assert.Equal(t, []string{"police_report"}, missing)
}

func TestEvaluate_NilIdentityGuard(t *testing.T) {
	s := NewState("sess-1")
	s.Program = "CI"

	phase, _ := Evaluate(s, Guard{})
	assert.Equal(t, PhaseCollectingIdentity, phase, "missing guard never advances")
}
