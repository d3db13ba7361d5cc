// ABOUTME: Session state model for the citizen conversation flow
// ABOUTME: Separates client-declared answers from server-verified facts

package session

import (
	"sort"
	"time"
)

// Phase is the position of a session within the citizen flow.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseCollectingIdentity Phase = "collecting_identity"
	PhaseAwaitingDocuments  Phase = "awaiting_documents"
	PhaseAwaitingSlot       Phase = "awaiting_slot"
	PhaseReadyToSubmit      Phase = "ready_to_submit"
	PhaseDone               Phase = "done"
)

// MaxHistoryTurns bounds the retained conversation history per session.
const MaxHistoryTurns = 30

// Turn is one exchange in the conversation history.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientDeclared holds values the citizen typed or selected.
// Nothing in here is trusted for phase advancement beyond form completeness.
type ClientDeclared struct {
	Person      map[string]string `json:"person,omitempty"`
	Application map[string]string `json:"application,omitempty"`
}

// ServerVerified holds facts established by the server itself:
// documents recognized by OCR, a reservation that stuck, a case that was
// created. The recognized set is append-only for the life of the session.
type ServerVerified struct {
	RecognizedDocs []string `json:"recognized_docs,omitempty"`
	SlotID         string   `json:"slot_id,omitempty"`
	AppointmentID  string   `json:"appointment_id,omitempty"`
	CaseID         string   `json:"case_id,omitempty"`
}

// AutofillOffer is a pending proposal to fill form fields from a
// recognized document. It stays pending until the citizen accepts or
// declines it.
type AutofillOffer struct {
	Fields map[string]string `json:"fields"`
	Source string            `json:"source"` // doc kind the values came from
}

// State is the full persisted state of one citizen session.
type State struct {
	ID      string `json:"id"`
	Phase   Phase  `json:"phase"`
	Intent  string `json:"intent,omitempty"` // sticky routing target
	Program string `json:"program,omitempty"`

	Subtype           string `json:"subtype,omitempty"`
	EligibilityReason string `json:"eligibility_reason,omitempty"`
	LocationID        string `json:"location_id,omitempty"`

	Declared ClientDeclared `json:"declared"`
	Verified ServerVerified `json:"verified"`

	PendingAutofill *AutofillOffer `json:"pending_autofill,omitempty"`

	// WizardStep tracks progress through multi-step program flows.
	WizardStep int `json:"wizard_step,omitempty"`

	History   []Turn    `json:"history,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState returns an empty session in the idle phase.
func NewState(id string) *State {
	now := time.Now().UTC()
	return &State{
		ID:        id,
		Phase:     PhaseIdle,
		Declared:  ClientDeclared{Person: map[string]string{}, Application: map[string]string{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendTurn records one exchange, dropping the oldest turns beyond the
// history bound.
func (s *State) AppendTurn(role, text string) {
	s.History = append(s.History, Turn{Role: role, Text: text, Timestamp: time.Now().UTC()})
	if len(s.History) > MaxHistoryTurns {
		s.History = s.History[len(s.History)-MaxHistoryTurns:]
	}
}

// MarkRecognized merges newly recognized document kinds into the verified
// set. The set only grows; re-recognizing a kind is a no-op. Returns the
// kinds that were actually new.
func (s *State) MarkRecognized(kinds ...string) []string {
	seen := make(map[string]bool, len(s.Verified.RecognizedDocs))
	for _, k := range s.Verified.RecognizedDocs {
		seen[k] = true
	}
	var added []string
	for _, k := range kinds {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		s.Verified.RecognizedDocs = append(s.Verified.RecognizedDocs, k)
		added = append(added, k)
	}
	sort.Strings(s.Verified.RecognizedDocs)
	return added
}

// HasRecognized reports whether a document kind is in the verified set.
func (s *State) HasRecognized(kind string) bool {
	for _, k := range s.Verified.RecognizedDocs {
		if k == kind {
			return true
		}
	}
	return false
}

// SetLocation records the citizen's chosen location. Changing location
// invalidates a held slot selection; the caller is told so it can report
// the drop to the citizen.
func (s *State) SetLocation(locationID string) (slotDropped bool) {
	if s.LocationID == locationID {
		return false
	}
	s.LocationID = locationID
	if s.Verified.SlotID != "" {
		s.Verified.SlotID = ""
		s.Verified.AppointmentID = ""
		return true
	}
	return false
}

// Guard supplies the agent-specific completeness predicates used by
// Evaluate. Each predicate sees the whole state and must be deterministic.
type Guard struct {
	// IdentityComplete reports whether the declared person and
	// application answers satisfy the active program.
	IdentityComplete func(*State) bool
	// MissingDocs returns required document kinds not yet in the
	// verified set, in a stable order.
	MissingDocs func(*State) []string
}

// Evaluate computes the phase a session has earned. It is pure and
// idempotent: same state and guard, same result. It never mutates state
// and never skips a phase whose requirements are unmet.
func Evaluate(s *State, g Guard) (Phase, []string) {
	if s.Verified.CaseID != "" {
		return PhaseDone, nil
	}
	if s.Program == "" {
		return PhaseIdle, nil
	}
	if g.IdentityComplete == nil || !g.IdentityComplete(s) {
		return PhaseCollectingIdentity, nil
	}
	var missing []string
	if g.MissingDocs != nil {
		missing = g.MissingDocs(s)
	}
	if len(missing) > 0 {
		return PhaseAwaitingDocuments, missing
	}
	if s.Verified.SlotID == "" {
		return PhaseAwaitingSlot, nil
	}
	return PhaseReadyToSubmit, nil
}
