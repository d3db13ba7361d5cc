// ABOUTME: Citizen-facing HTTP handlers: chat, validation, scheduling, uploads, case submission
// ABOUTME: Every session mutation runs inside the session manager's single-writer update

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/unibuc-cs/ghiseu-gateway/internal/agents"
	"github.com/unibuc-cs/ghiseu-gateway/internal/directive"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intent"
	"github.com/unibuc-cs/ghiseu-gateway/internal/metrics"
	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
	"github.com/unibuc-cs/ghiseu-gateway/internal/toolgw"
)

// ChatRequest is the JSON request body for POST /api/chat.
type ChatRequest struct {
	SessionID   string            `json:"session_id"`
	Message     string            `json:"message"`
	Person      map[string]string `json:"person,omitempty"`
	Application map[string]string `json:"application,omitempty"`
}

// ChatResponse is the JSON response for POST /api/chat.
type ChatResponse struct {
	Reply string          `json:"reply"`
	Steps json.RawMessage `json:"steps"`
	Phase string          `json:"phase"`
}

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		g.writeError(w, r, validationf("session_id is required"))
		return
	}
	if req.Message == "" {
		g.writeError(w, r, validationf("message is required"))
		return
	}

	var resp ChatResponse
	_, err := g.sessions.Update(r.Context(), req.SessionID, func(s *session.State) error {
		s.AppendTurn("user", req.Message)
		res, err := g.runTurn(r.Context(), s, req)
		if err != nil {
			return err
		}
		s.AppendTurn("assistant", res.Reply)

		steps, err := directive.MarshalSequence(res.Directives)
		if err != nil {
			return fmt.Errorf("encoding directives: %w", err)
		}
		resp = ChatResponse{Reply: res.Reply, Steps: steps, Phase: string(s.Phase)}
		return nil
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// runTurn routes one citizen message and produces the turn's result.
// Runs under the session lock; any error aborts the turn unpersisted.
func (g *Gateway) runTurn(ctx context.Context, s *session.State, req ChatRequest) (*agents.Result, error) {
	turn := agents.Turn{Message: req.Message, Person: req.Person, Application: req.Application}

	// A pending autofill offer consumes a yes/no answer before routing.
	var prefix []directive.Directive
	if s.PendingAutofill != nil {
		if answer, ok := yesNo(req.Message); ok {
			prefix = g.intake.ResolveAutofill(s, answer)
		}
	}

	decision := g.router.Route(req.Message, intent.Intent(s.Intent))
	target := decision.Target
	metrics.ChatTurns.WithLabelValues(string(target)).Inc()

	var res *agents.Result
	switch {
	case target == intent.DocumentIntake:
		res = g.documentTurn(ctx, s)

	case target == intent.Operator:
		res = &agents.Result{
			Reply: "Consola de operator este disponibila la /operator, dupa autentificare.",
			Directives: []directive.Directive{
				directive.ToastInfo("Operator", "Autentifica-te pentru consola de operator."),
			},
		}

	case target == intent.Scheduling:
		res = &agents.Result{
			Reply: "Te duc la pagina de programari.",
			Directives: []directive.Directive{
				directive.Navigate{URL: "/programare"},
			},
		}

	default:
		agent := g.agents.Lookup(target)
		if agent == nil {
			res = &agents.Result{
				Reply: "Te pot ajuta cu eliberarea cartii de identitate sau cu o cerere de ajutor social. Ce doresti?",
				Directives: []directive.Directive{
					directive.ToastInfo("Ghiseu digital", "Spune-mi cu ce serviciu te pot ajuta."),
				},
			}
			break
		}
		var err error
		res, err = agent.HandleTurn(ctx, s, turn)
		if err != nil {
			return nil, err
		}
	}

	res.Directives = append(prefix, res.Directives...)
	return res, nil
}

// documentTurn handles an upload acknowledgement: refresh the verified
// set through the OCR tool and report what is still missing per the
// active agent's rules. A tool failure becomes a toast; the session is
// left exactly as it was.
func (g *Gateway) documentTurn(ctx context.Context, s *session.State) *agents.Result {
	added, _, err := g.intake.Refresh(ctx, s)
	if err != nil {
		return &agents.Result{
			Reply: "Nu am putut verifica documentele chiar acum. Incearca din nou in cateva momente.",
			Directives: []directive.Directive{
				directive.ToastError("Verificare esuata", "Serviciul de recunoastere nu a raspuns."),
			},
		}
	}

	var dirs []directive.Directive
	if len(added) > 0 {
		dirs = append(dirs, directive.ToastOK("Document primit",
			fmt.Sprintf("Am recunoscut: %s.", strings.Join(added, ", "))))
	}

	active := g.agents.Lookup(intent.Intent(s.Intent))
	if active == nil {
		return &agents.Result{
			Reply:      "Am inregistrat documentul. Alege mai intai serviciul dorit ca sa iti spun ce mai lipseste.",
			Directives: dirs,
		}
	}

	phase, missing := session.Evaluate(s, active.Guard())
	s.Phase = phase
	if len(missing) > 0 {
		dirs = append(dirs, directive.HighlightMissingDocs{Kinds: missing})
		return &agents.Result{
			Reply:      "Mai sunt documente de incarcat.",
			Directives: dirs,
		}
	}
	return &agents.Result{
		Reply:      "Toate documentele necesare au fost recunoscute.",
		Directives: append(dirs, directive.ToastOK("Documente complete", "Poti continua cu pasul urmator.")),
	}
}

// yesNo interprets a short Romanian confirmation.
func yesNo(text string) (answer, ok bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "da", "yes", "ok", "accept":
		return true, true
	case "nu", "no", "refuz":
		return false, true
	}
	return false, false
}

// ValidateRequest is the JSON request body for POST /api/validate.
type ValidateRequest struct {
	SessionID   string            `json:"session_id"`
	Person      map[string]string `json:"person,omitempty"`
	Application map[string]string `json:"application,omitempty"`
}

// ValidateResponse is the JSON response for POST /api/validate.
type ValidateResponse struct {
	Valid   bool     `json:"valid"`
	Errors  []string `json:"errors"`
	Missing []string `json:"missing"`
}

// handleValidate evaluates completeness without persisting anything, so
// repeated calls with unchanged input always return the same answer.
func (g *Gateway) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		g.writeError(w, r, validationf("session_id is required"))
		return
	}

	s, err := g.sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	scratch := cloneState(s)
	for k, v := range req.Person {
		if v != "" {
			scratch.Declared.Person[k] = v
		}
	}
	for k, v := range req.Application {
		if v != "" {
			scratch.Declared.Application[k] = v
		}
	}
	if v := scratch.Declared.Application["subtype"]; v != "" {
		scratch.Subtype = v
	}
	if v := scratch.Declared.Application["eligibility_reason"]; v != "" {
		scratch.EligibilityReason = v
	}
	if scratch.Subtype == agents.SubtypeVR {
		scratch.EligibilityReason = agents.ReasonChangeAddr
	}

	resp := ValidateResponse{Errors: []string{}, Missing: []string{}}
	active := g.agents.Lookup(intent.Intent(scratch.Intent))
	if active == nil {
		active = g.agents.Lookup(intent.IdentityCard)
	}
	guard := active.Guard()
	if guard.IdentityComplete != nil && !guard.IdentityComplete(scratch) {
		resp.Errors = append(resp.Errors, "incomplete identity or application fields")
	}
	if guard.MissingDocs != nil {
		if missing := guard.MissingDocs(scratch); missing != nil {
			resp.Missing = missing
		}
	}
	resp.Valid = len(resp.Errors) == 0 && len(resp.Missing) == 0
	writeJSON(w, http.StatusOK, resp)
}

func cloneState(s *session.State) *session.State {
	raw, _ := json.Marshal(s)
	var out session.State
	_ = json.Unmarshal(raw, &out)
	if out.Declared.Person == nil {
		out.Declared.Person = map[string]string{}
	}
	if out.Declared.Application == nil {
		out.Declared.Application = map[string]string{}
	}
	return &out
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

func (g *Gateway) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		g.writeError(w, r, validationf("session_id is required"))
		return
	}
	if err := g.sessions.Reset(r.Context(), req.SessionID); err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// SlotResponse is one bookable slot.
type SlotResponse struct {
	ID         string    `json:"id"`
	LocationID string    `json:"location_id"`
	Program    string    `json:"program"`
	When       time.Time `json:"when"`
	Status     string    `json:"status"`
}

func (g *Gateway) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	slots, err := g.scheduling.ListSlots(r.Context(),
		r.URL.Query().Get("location_id"),
		r.URL.Query().Get("program"))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			ID:         s.ID,
			LocationID: s.LocationID,
			Program:    s.Program,
			When:       s.When,
			Status:     s.Status,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

// ScheduleRequest is the JSON request body for POST /api/schedule and
// POST /api/reschedule.
type ScheduleRequest struct {
	SessionID string `json:"session_id"`
	SlotID    string `json:"slot_id"`
}

// AppointmentResponse is the JSON response for reservation operations.
type AppointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	SlotID        string `json:"slot_id"`
	PersonID      string `json:"person_id"`
}

func (g *Gateway) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	if req.SessionID == "" || req.SlotID == "" {
		g.writeError(w, r, validationf("session_id and slot_id are required"))
		return
	}

	var resp AppointmentResponse
	_, err := g.sessions.Update(r.Context(), req.SessionID, func(s *session.State) error {
		appt, err := g.scheduling.Reserve(r.Context(), req.SlotID, personID(s))
		if err != nil {
			if errors.Is(err, store.ErrSlotUnavailable) {
				metrics.ReservationConflicts.Inc()
			}
			return err
		}
		metrics.Reservations.Inc()
		s.Verified.SlotID = appt.SlotID
		s.Verified.AppointmentID = appt.ID
		resp = AppointmentResponse{AppointmentID: appt.ID, SlotID: appt.SlotID, PersonID: appt.PersonID}
		return nil
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": resp})
}

func (g *Gateway) handleReschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	if req.SessionID == "" || req.SlotID == "" {
		g.writeError(w, r, validationf("session_id and slot_id are required"))
		return
	}

	var resp AppointmentResponse
	_, err := g.sessions.Update(r.Context(), req.SessionID, func(s *session.State) error {
		if s.Verified.AppointmentID == "" {
			return validationf("no appointment to reschedule")
		}
		appt, err := g.scheduling.Reschedule(r.Context(), s.Verified.AppointmentID, req.SlotID)
		if err != nil {
			return err
		}
		s.Verified.SlotID = appt.SlotID
		s.Verified.AppointmentID = appt.ID
		resp = AppointmentResponse{AppointmentID: appt.ID, SlotID: appt.SlotID, PersonID: appt.PersonID}
		return nil
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": resp})
}

func (g *Gateway) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		g.writeError(w, r, validationf("session_id is required"))
		return
	}

	_, err := g.sessions.Update(r.Context(), req.SessionID, func(s *session.State) error {
		if s.Verified.AppointmentID == "" {
			return validationf("no appointment to cancel")
		}
		if err := g.scheduling.Cancel(r.Context(), s.Verified.AppointmentID); err != nil {
			return err
		}
		s.Verified.SlotID = ""
		s.Verified.AppointmentID = ""
		return nil
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// UploadsResponse is the JSON response for GET /api/uploads.
type UploadsResponse struct {
	Recognized []string         `json:"recognized"`
	Items      []toolgw.OCRItem `json:"items"`
}

func (g *Gateway) handleUploads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		g.writeError(w, r, validationf("session_id is required"))
		return
	}

	var resp UploadsResponse
	_, err := g.sessions.Update(r.Context(), sessionID, func(s *session.State) error {
		_, res, err := g.intake.Refresh(r.Context(), s)
		if err != nil {
			return err
		}
		resp = UploadsResponse{Recognized: s.Verified.RecognizedDocs, Items: res.Items}
		if resp.Recognized == nil {
			resp.Recognized = []string{}
		}
		if resp.Items == nil {
			resp.Items = []toolgw.OCRItem{}
		}
		return nil
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CaseSubmitResponse is the JSON response for POST /api/cases.
type CaseSubmitResponse struct {
	CaseID string `json:"case_id"`
	Status string `json:"status"`
}

// handleCases submits the session's application (POST) or, for
// operators, lists cases (GET).
func (g *Gateway) handleCases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		g.handleCaseSubmit(w, r)
	case http.MethodGet:
		g.requireOperator(g.handleOperatorListCases)(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handleCaseSubmit(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		g.writeError(w, r, validationf("session_id is required"))
		return
	}

	var resp CaseSubmitResponse
	_, err := g.sessions.Update(r.Context(), req.SessionID, func(s *session.State) error {
		// Resubmission returns the existing case.
		if s.Verified.CaseID == "" {
			active := g.agents.Lookup(intent.Intent(s.Intent))
			if active == nil {
				return validationf("no active service for this session")
			}
			phase, missing := session.Evaluate(s, active.Guard())
			if phase != session.PhaseReadyToSubmit {
				if len(missing) > 0 {
					return validationf("missing documents: %s", strings.Join(missing, ", "))
				}
				return validationf("session is not ready to submit (phase %s)", phase)
			}
		}

		c, err := g.cases.Submit(r.Context(), s)
		if err != nil {
			return err
		}
		if s.Verified.CaseID == "" {
			metrics.CasesCreated.WithLabelValues(c.Program).Inc()
			g.notifySubmitted(r.Context(), s, c.ID)
		}
		s.Verified.CaseID = c.ID
		s.Phase = session.PhaseDone
		resp = CaseSubmitResponse{CaseID: c.ID, Status: c.Status}
		return nil
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// notifySubmitted sends a best-effort confirmation. Notification failure
// never fails the submission.
func (g *Gateway) notifySubmitted(ctx context.Context, s *session.State, caseID string) {
	email := s.Declared.Person["email"]
	if email == "" {
		return
	}
	err := g.tools.Notify(ctx, toolgw.Notification{
		Channel:   "email",
		Recipient: email,
		Subject:   "Cerere inregistrata",
		Body:      fmt.Sprintf("Cererea ta a fost inregistrata cu numarul %s.", caseID),
	})
	if err != nil {
		g.logger.Warn("submission notification failed", "case_id", caseID, "error", err)
	}
}

func personID(s *session.State) string {
	if cnp := s.Declared.Person["cnp"]; cnp != "" {
		return cnp
	}
	return s.ID
}

// handleCaseByID serves GET /api/cases/{id} and PATCH
// /api/cases/{id}/status for operators.
func (g *Gateway) handleCaseByID(w http.ResponseWriter, r *http.Request) {
	g.requireOperator(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/cases/")
		switch {
		case r.Method == http.MethodGet && !strings.Contains(rest, "/"):
			c, err := g.operators.GetCase(r.Context(), rest)
			if err != nil {
				g.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, caseResponse(c))

		case r.Method == http.MethodPatch && strings.HasSuffix(rest, "/status"):
			caseID := strings.TrimSuffix(rest, "/status")
			var req struct {
				Status string `json:"status"`
			}
			if err := decodeJSON(r, &req); err != nil {
				g.writeError(w, r, err)
				return
			}
			if req.Status == "" {
				g.writeError(w, r, validationf("status is required"))
				return
			}
			c, err := g.operators.AdvanceCase(r.Context(), operatorFrom(r.Context()), caseID, req.Status)
			if err != nil {
				g.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, caseResponse(c))

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})(w, r)
}
