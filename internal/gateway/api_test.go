// ABOUTME: End-to-end tests for the citizen HTTP API over a real in-memory stack
// ABOUTME: External tools are stubbed with httptest servers

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibuc-cs/ghiseu-gateway/internal/agents"
	"github.com/unibuc-cs/ghiseu-gateway/internal/caselife"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intake"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intent"
	"github.com/unibuc-cs/ghiseu-gateway/internal/operator"
	"github.com/unibuc-cs/ghiseu-gateway/internal/scheduling"
	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
	"github.com/unibuc-cs/ghiseu-gateway/internal/toolgw"
)

// toolStub fakes the OCR, eligibility, and notification services.
type toolStub struct {
	mu          sync.Mutex
	ocr         map[string]*toolgw.OCRResult
	ocrFail     bool
	eligibility toolgw.EligibilityResult
	notified    []toolgw.Notification
	srv         *httptest.Server
}

func newToolStub(t *testing.T) *toolStub {
	ts := &toolStub{ocr: map[string]*toolgw.OCRResult{}}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		switch {
		case r.URL.Path == "/ocr":
			if ts.ocrFail {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			res := ts.ocr[r.URL.Query().Get("session_id")]
			if res == nil {
				res = &toolgw.OCRResult{}
			}
			json.NewEncoder(w).Encode(res)
		case r.URL.Path == "/eligibility":
			json.NewEncoder(w).Encode(ts.eligibility)
		case strings.HasPrefix(r.URL.Path, "/notify/"):
			var n toolgw.Notification
			json.NewDecoder(r.Body).Decode(&n)
			ts.notified = append(ts.notified, n)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *toolStub) setOCR(sessionID string, res *toolgw.OCRResult) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.ocr[sessionID] = res
}

func (ts *toolStub) notifyCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.notified)
}

type testEnv struct {
	srv      *httptest.Server
	store    *store.SQLiteStore
	sessions *session.Manager
	auth     *operator.Authenticator
	tools    *toolStub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tools := newToolStub(t)
	tg := toolgw.NewGateway(toolgw.Config{
		OCRURL:         tools.srv.URL + "/ocr",
		EligibilityURL: tools.srv.URL + "/eligibility",
		NotifyURL:      tools.srv.URL + "/notify",
		Timeout:        2 * time.Second,
	}, nil)

	sessions := session.NewManager(st, nil)
	cases := caselife.NewService(st, nil)
	sched := scheduling.NewService(st, nil)
	ops := operator.NewService(st, cases, nil)
	auth := operator.NewAuthenticator(st, []byte("test-secret"), time.Hour, nil)

	registry := agents.NewRegistry(
		agents.NewIdentityAgent(tg, nil),
		agents.NewSocialAidAgent(nil),
		agents.NewHubGovAgent(),
	)

	gw := New(Config{}, Deps{
		Sessions:   sessions,
		Router:     intent.NewRouter(intent.NewRuleClassifier()),
		Agents:     registry,
		Intake:     intake.NewCoordinator(tg, nil),
		Scheduling: sched,
		Cases:      cases,
		Operators:  ops,
		Auth:       auth,
		Tools:      tg,
	}, nil)

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: st, sessions: sessions, auth: auth, tools: tools}
}

func (e *testEnv) seedSlot(t *testing.T, id, location, program string) {
	t.Helper()
	err := e.store.CreateSlot(context.Background(), &store.Slot{
		ID:         id,
		LocationID: location,
		Program:    program,
		When:       time.Now().Add(24 * time.Hour),
		Status:     store.SlotFree,
	})
	require.NoError(t, err)
}

func (e *testEnv) postJSON(t *testing.T, path string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return e.do(t, req)
}

func (e *testEnv) getJSON(t *testing.T, path string, headers ...string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return e.do(t, req)
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	env, _ := body["error"].(map[string]any)
	code, _ := env["code"].(string)
	return code
}

func TestChatRequiresSessionAndMessage(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.postJSON(t, "/api/chat", map[string]any{"message": "salut"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeValidation, errorCode(body))

	status, body = env.postJSON(t, "/api/chat", map[string]any{"session_id": "s1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeValidation, errorCode(body))
}

func TestChatUnknownIntentFallsBack(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.postJSON(t, "/api/chat", map[string]any{
		"session_id": "s-hello",
		"message":    "buna ziua",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "idle", body["phase"])
	assert.NotEmpty(t, body["reply"])
}

func TestIdentityCardFullFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, "CI-B1-1", "Bucuresti-S1", "CI")
	const sid = "s-ci-flow"

	// Turn 1: citizen states the service and fills identity fields.
	status, body := env.postJSON(t, "/api/chat", map[string]any{
		"session_id": sid,
		"message":    "Vreau sa imi preschimb cartea de identitate, a expirat",
		"person": map[string]string{
			"nume":    "Popescu",
			"prenume": "Ion",
			"cnp":     "1900101123456",
			"email":   "ion@example.ro",
		},
		"application": map[string]string{
			"subtype":            "CIS",
			"eligibility_reason": "EXP_60",
			"location_id":        "Bucuresti-S1",
		},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "awaiting_documents", body["phase"])

	// Upload arrives; OCR recognizes the required document.
	env.tools.setOCR(sid, &toolgw.OCRResult{
		Kinds: []string{"prior_identity_document"},
		Items: []toolgw.OCRItem{{Filename: "ci-veche.jpg", Kind: "prior_identity_document"}},
	})
	status, body = env.postJSON(t, "/api/chat", map[string]any{
		"session_id": sid,
		"message":    "__upload__",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "awaiting_slot", body["phase"])

	// Reserve the slot.
	status, body = env.postJSON(t, "/api/schedule", map[string]any{
		"session_id": sid,
		"slot_id":    "CI-B1-1",
	})
	require.Equal(t, http.StatusOK, status)
	appt := body["appointment"].(map[string]any)
	assert.NotEmpty(t, appt["appointment_id"])

	// Submit.
	status, body = env.postJSON(t, "/api/cases", map[string]any{"session_id": sid})
	require.Equal(t, http.StatusOK, status)
	caseID := body["case_id"].(string)
	assert.True(t, strings.HasPrefix(caseID, "CASE-"))
	assert.Equal(t, caselife.StatusDocReview, body["status"])
	assert.Equal(t, 1, env.tools.notifyCount())

	// Resubmission returns the same case without a second notification.
	status, body = env.postJSON(t, "/api/cases", map[string]any{"session_id": sid})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, caseID, body["case_id"])
	assert.Equal(t, 1, env.tools.notifyCount())
}

func TestCaseSubmitRejectedWhenNotReady(t *testing.T) {
	env := newTestEnv(t)
	const sid = "s-not-ready"

	status, _ := env.postJSON(t, "/api/chat", map[string]any{
		"session_id": sid,
		"message":    "vreau buletin nou",
		"person":     map[string]string{"nume": "Pop", "prenume": "Ana", "cnp": "2950505123456"},
		"application": map[string]string{
			"subtype":            "CIS",
			"eligibility_reason": "EXP_60",
		},
	})
	require.Equal(t, http.StatusOK, status)

	status, body := env.postJSON(t, "/api/cases", map[string]any{"session_id": sid})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeValidation, errorCode(body))
	assert.Contains(t, body["error"].(map[string]any)["message"], "prior_identity_document")
}

func TestScheduleConflict(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, "CI-B1-9", "Bucuresti-S1", "CI")

	status, _ := env.postJSON(t, "/api/schedule", map[string]any{
		"session_id": "s-first", "slot_id": "CI-B1-9",
	})
	require.Equal(t, http.StatusOK, status)

	status, body := env.postJSON(t, "/api/schedule", map[string]any{
		"session_id": "s-second", "slot_id": "CI-B1-9",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeSlotUnavailable, errorCode(body))
}

func TestRescheduleMovesAppointment(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, "CI-A", "Bucuresti-S1", "CI")
	env.seedSlot(t, "CI-B", "Bucuresti-S1", "CI")
	const sid = "s-resched"

	status, _ := env.postJSON(t, "/api/schedule", map[string]any{
		"session_id": sid, "slot_id": "CI-A",
	})
	require.Equal(t, http.StatusOK, status)

	status, body := env.postJSON(t, "/api/reschedule", map[string]any{
		"session_id": sid, "slot_id": "CI-B",
	})
	require.Equal(t, http.StatusOK, status)
	appt := body["appointment"].(map[string]any)
	assert.Equal(t, "CI-B", appt["slot_id"])

	// The old slot is free again.
	status, _ = env.postJSON(t, "/api/schedule", map[string]any{
		"session_id": "s-other", "slot_id": "CI-A",
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestCancelFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, "CI-C", "Bucuresti-S1", "CI")
	const sid = "s-cancel"

	status, _ := env.postJSON(t, "/api/schedule", map[string]any{
		"session_id": sid, "slot_id": "CI-C",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.postJSON(t, "/api/cancel", map[string]any{"session_id": sid})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.postJSON(t, "/api/schedule", map[string]any{
		"session_id": "s-rebooker", "slot_id": "CI-C",
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestSlotsListing(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, "CI-L1", "Bucuresti-S1", "CI")
	env.seedSlot(t, "AS-L1", "Bucuresti-S1", "AS")

	status, body := env.getJSON(t, "/api/slots?program=CI")
	require.Equal(t, http.StatusOK, status)
	slots := body["slots"].([]any)
	require.Len(t, slots, 1)
	assert.Equal(t, "CI-L1", slots[0].(map[string]any)["id"])
}

func TestUploadsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	const sid = "s-uploads"
	env.tools.setOCR(sid, &toolgw.OCRResult{
		Kinds: []string{"birth_certificate"},
		Items: []toolgw.OCRItem{{Filename: "cert.pdf", Kind: "birth_certificate"}},
	})

	status, body := env.getJSON(t, "/api/uploads?session_id="+sid)
	require.Equal(t, http.StatusOK, status)
	recognized := body["recognized"].([]any)
	require.Len(t, recognized, 1)
	assert.Equal(t, "birth_certificate", recognized[0])
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "cert.pdf", items[0].(map[string]any)["filename"])
}

func TestUploadsToolFailureIs502(t *testing.T) {
	env := newTestEnv(t)
	env.tools.mu.Lock()
	env.tools.ocrFail = true
	env.tools.mu.Unlock()

	status, body := env.getJSON(t, "/api/uploads?session_id=s-down")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, CodeExternalService, errorCode(body))
}

func TestChatUploadToolFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.tools.mu.Lock()
	env.tools.ocrFail = true
	env.tools.mu.Unlock()

	status, body := env.postJSON(t, "/api/chat", map[string]any{
		"session_id": "s-ocr-down",
		"message":    "__upload__",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, fmt.Sprint(body["steps"]), "Verificare esuata")
}

func TestValidateIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	const sid = "s-validate"

	req := map[string]any{
		"session_id": sid,
		"person":     map[string]string{"nume": "Pop", "prenume": "Dan", "cnp": "1850101123456"},
		"application": map[string]string{
			"subtype":            "CIS",
			"eligibility_reason": "EXP_60",
		},
	}
	status, body := env.postJSON(t, "/api/validate", req)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["valid"])
	assert.Contains(t, body["missing"], "prior_identity_document")

	// Same input, same answer, and the stored session stays untouched.
	status, again := env.postJSON(t, "/api/validate", req)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, body, again)

	s, err := env.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Empty(t, s.Declared.Person)
}

func TestSessionReset(t *testing.T) {
	env := newTestEnv(t)
	const sid = "s-reset"

	status, _ := env.postJSON(t, "/api/chat", map[string]any{
		"session_id": sid,
		"message":    "vreau carte de identitate",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.postJSON(t, "/api/session/reset", map[string]any{"session_id": sid})
	require.Equal(t, http.StatusOK, status)

	s, err := env.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, session.PhaseIdle, s.Phase)
	assert.Empty(t, s.History)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.getJSON(t, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
