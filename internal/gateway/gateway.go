// ABOUTME: HTTP server assembly for the citizen and operator APIs
// ABOUTME: Wires the session manager, agents, coordinators, and middleware into one mux

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unibuc-cs/ghiseu-gateway/internal/agents"
	"github.com/unibuc-cs/ghiseu-gateway/internal/caselife"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intake"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intent"
	"github.com/unibuc-cs/ghiseu-gateway/internal/operator"
	"github.com/unibuc-cs/ghiseu-gateway/internal/scheduling"
	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
	"github.com/unibuc-cs/ghiseu-gateway/internal/toolgw"
)

// Config carries the gateway's own knobs.
type Config struct {
	MetricsEnabled bool
	MetricsPath    string
}

// Gateway aggregates the services behind the HTTP surface.
type Gateway struct {
	cfg        Config
	sessions   *session.Manager
	router     *intent.Router
	agents     *agents.Registry
	intake     *intake.Coordinator
	scheduling *scheduling.Service
	cases      *caselife.Service
	operators  *operator.Service
	auth       *operator.Authenticator
	tools      *toolgw.Gateway
	logger     *slog.Logger
}

// Deps lists everything a Gateway needs.
type Deps struct {
	Sessions   *session.Manager
	Router     *intent.Router
	Agents     *agents.Registry
	Intake     *intake.Coordinator
	Scheduling *scheduling.Service
	Cases      *caselife.Service
	Operators  *operator.Service
	Auth       *operator.Authenticator
	Tools      *toolgw.Gateway
}

// New creates a Gateway. Pass nil logger for default.
func New(cfg Config, deps Deps, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		cfg:        cfg,
		sessions:   deps.Sessions,
		router:     deps.Router,
		agents:     deps.Agents,
		intake:     deps.Intake,
		scheduling: deps.Scheduling,
		cases:      deps.Cases,
		operators:  deps.Operators,
		auth:       deps.Auth,
		tools:      deps.Tools,
		logger:     logger.With("component", "gateway"),
	}
}

// Handler builds the HTTP mux for both APIs.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	// Citizen flow
	mux.HandleFunc("/api/chat", g.handleChat)
	mux.HandleFunc("/api/validate", g.handleValidate)
	mux.HandleFunc("/api/session/reset", g.handleSessionReset)
	mux.HandleFunc("/api/slots", g.handleSlots)
	mux.HandleFunc("/api/schedule", g.handleSchedule)
	mux.HandleFunc("/api/reschedule", g.handleReschedule)
	mux.HandleFunc("/api/cancel", g.handleCancel)
	mux.HandleFunc("/api/uploads", g.handleUploads)
	mux.HandleFunc("/api/cases", g.handleCases)
	mux.HandleFunc("/api/cases/", g.handleCaseByID)

	// Operator console
	mux.HandleFunc("/api/operator/login", g.handleOperatorLogin)
	mux.HandleFunc("/api/operator/command", g.requireOperator(g.handleOperatorCommand))
	mux.HandleFunc("/api/tasks", g.requireOperator(g.handleTasks))
	mux.HandleFunc("/api/tasks/", g.requireOperator(g.handleTaskByID))

	mux.HandleFunc("/healthz", g.handleHealth)
	if g.cfg.MetricsEnabled {
		path := g.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, promhttp.Handler())
	}
	return mux
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// operatorIDKey carries the authenticated operator through the request
// context.
type contextKey string

const operatorIDKey contextKey = "operator_id"

// requireOperator rejects requests without a valid bearer token. There
// is no anonymous fallback.
func (g *Gateway) requireOperator(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			g.writeError(w, r, operator.ErrUnauthenticated)
			return
		}
		operatorID, err := g.auth.Verify(token)
		if err != nil {
			if errors.Is(err, operator.ErrExpiredToken) || errors.Is(err, operator.ErrInvalidToken) {
				g.writeError(w, r, operator.ErrUnauthenticated)
				return
			}
			g.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), operatorIDKey, operatorID)
		next(w, r.WithContext(ctx))
	}
}

func operatorFrom(ctx context.Context) string {
	id, _ := ctx.Value(operatorIDKey).(string)
	return id
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", false
	}
	return h[len(prefix):], true
}

// Server wraps http.Server with sane timeouts.
func (g *Gateway) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
