// ABOUTME: Operator console HTTP handlers: login, chat-style commands, task and case review
// ABOUTME: All routes except login sit behind bearer-token middleware

package gateway

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/unibuc-cs/ghiseu-gateway/internal/metrics"
	"github.com/unibuc-cs/ghiseu-gateway/internal/operator"
	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
)

// LoginRequest is the JSON request body for POST /api/operator/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for subsequent console calls.
type LoginResponse struct {
	Token string `json:"token"`
}

func (g *Gateway) handleOperatorLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		g.writeError(w, r, validationf("username and password are required"))
		return
	}
	token, err := g.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// CommandRequest is the JSON request body for POST /api/operator/command.
type CommandRequest struct {
	Text string `json:"text"`
}

// CommandResponse is the rendered plain-text output of a console command.
type CommandResponse struct {
	Output string `json:"output"`
}

func (g *Gateway) handleOperatorCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req CommandRequest
	if err := decodeJSON(r, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		g.writeError(w, r, validationf("text is required"))
		return
	}

	operatorID := operatorFrom(r.Context())
	cmd, perr := operator.ParseCommand(req.Text)
	if perr == nil {
		metrics.OperatorCommands.WithLabelValues(string(cmd.Kind)).Inc()
	}
	out, err := g.operators.Execute(r.Context(), operatorID, req.Text)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Output: out})
}

// TaskResponse is one review task in API responses.
type TaskResponse struct {
	ID        int64     `json:"id"`
	CaseID    string    `json:"case_id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Assignee  string    `json:"assignee,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func taskResponse(t *store.Task) TaskResponse {
	return TaskResponse{
		ID:        t.ID,
		CaseID:    t.CaseID,
		Kind:      t.Kind,
		Status:    t.Status,
		Assignee:  t.Assignee,
		Notes:     t.Notes,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (g *Gateway) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tasks, err := g.operators.ListTasks(r.Context(), store.TaskFilter{
		Status: r.URL.Query().Get("status"),
		Kind:   r.URL.Query().Get("kind"),
		CaseID: r.URL.Query().Get("case_id"),
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

// handleTaskByID serves POST /api/tasks/{id}/claim and
// POST /api/tasks/{id}/complete.
func (g *Gateway) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	idStr, action, found := strings.Cut(rest, "/")
	if !found {
		g.writeError(w, r, validationf("expected /api/tasks/{id}/claim or /complete"))
		return
	}
	taskID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		g.writeError(w, r, validationf("invalid task id"))
		return
	}
	operatorID := operatorFrom(r.Context())

	switch action {
	case "claim":
		t, err := g.operators.Claim(r.Context(), taskID, operatorID)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, taskResponse(t))

	case "complete":
		var req struct {
			Notes string `json:"notes"`
		}
		if err := decodeJSON(r, &req); err != nil {
			g.writeError(w, r, err)
			return
		}
		t, err := g.operators.Complete(r.Context(), taskID, operatorID, req.Notes)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, taskResponse(t))

	default:
		g.writeError(w, r, validationf("unknown task action %q", action))
	}
}

// CaseResponse is one case in API responses. The declared person and
// application snapshots are passed through as raw JSON.
type CaseResponse struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Program     string    `json:"program"`
	Subtype     string    `json:"subtype,omitempty"`
	Status      string    `json:"status"`
	Person      rawOrNull `json:"person"`
	Application rawOrNull `json:"application"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// rawOrNull emits a stored JSON snapshot verbatim, or null when empty.
type rawOrNull string

func (r rawOrNull) MarshalJSON() ([]byte, error) {
	if r == "" {
		return []byte("null"), nil
	}
	return []byte(r), nil
}

func caseResponse(c *store.Case) CaseResponse {
	return CaseResponse{
		ID:          c.ID,
		SessionID:   c.SessionID,
		Program:     c.Program,
		Subtype:     c.Subtype,
		Status:      c.Status,
		Person:      rawOrNull(c.PersonJSON),
		Application: rawOrNull(c.ApplicationJSON),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (g *Gateway) handleOperatorListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := g.operators.ListCases(r.Context(), store.CaseFilter{
		Program: r.URL.Query().Get("program"),
		Status:  r.URL.Query().Get("status"),
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	out := make([]CaseResponse, 0, len(cases))
	for _, c := range cases {
		out = append(out, caseResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": out})
}
