// ABOUTME: Standalone mock for the external tool services used in development
// ABOUTME: Fakes OCR recognition, eligibility checks, and notifications

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// docKeywords maps filename fragments to the document kind the fake OCR
// reports. Matching is case-insensitive and first-match-wins in the order
// below.
var docKeywords = []struct {
	fragment string
	kind     string
}{
	{"certificat_nastere", "birth_certificate"},
	{"nastere", "birth_certificate"},
	{"buletin", "prior_identity_document"},
	{"ci_veche", "prior_identity_document"},
	{"carte_identitate", "prior_identity_document"},
	{"contract", "address_proof"},
	{"extras_cf", "address_proof"},
	{"dovada_adresa", "address_proof"},
	{"politie", "police_report"},
	{"furt", "police_report"},
	{"cerere_ajutor", "aid_request_form"},
	{"adeverinta_venit", "income_proof"},
	{"venit", "income_proof"},
	{"chirie", "housing_proof"},
	{"locuinta", "housing_proof"},
	{"certificat_medical", "medical_certificate"},
	{"medical", "medical_certificate"},
}

func kindFor(filename string) string {
	f := strings.ToLower(filename)
	for _, kw := range docKeywords {
		if strings.Contains(f, kw.fragment) {
			return kw.kind
		}
	}
	return ""
}

type ocrItem struct {
	Filename string `json:"filename"`
	Kind     string `json:"kind"`
}

// mockServer remembers the uploads each session has posted so the OCR
// answer is stable across polls.
type mockServer struct {
	mu      sync.Mutex
	uploads map[string][]ocrItem
	logger  *slog.Logger
}

// handleUpload registers an upload: POST {"session_id","filename"}.
func (m *mockServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
		Filename  string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" || req.Filename == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	kind := kindFor(req.Filename)
	m.mu.Lock()
	m.uploads[req.SessionID] = append(m.uploads[req.SessionID], ocrItem{Filename: req.Filename, Kind: kind})
	m.mu.Unlock()

	m.logger.Info("upload registered", "session_id", req.SessionID, "filename", req.Filename, "kind", kind)
	writeJSON(w, map[string]string{"filename": req.Filename, "kind": kind})
}

// handleOCR answers what has been recognized for a session.
func (m *mockServer) handleOCR(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	m.mu.Lock()
	items := append([]ocrItem(nil), m.uploads[sessionID]...)
	m.mu.Unlock()

	kindSet := map[string]bool{}
	var recognized []ocrItem
	for _, it := range items {
		if it.Kind == "" {
			continue
		}
		recognized = append(recognized, it)
		kindSet[it.Kind] = true
	}
	kinds := make([]string, 0, len(kindSet))
	for k := range kindSet {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	out := map[string]any{"kinds": kinds, "items": recognized}
	// A recognized identity document yields extractable person fields.
	if kindSet["prior_identity_document"] {
		out["fields"] = map[string]string{
			"nume":    "POPESCU",
			"prenume": "ION",
			"cnp":     "1900101123456",
		}
		out["source"] = "prior_identity_document"
	}
	writeJSON(w, out)
}

// handleEligibility resolves an automatic eligibility check. The fake
// rule: a CNP starting with 1-6 is a valid Romanian citizen record.
func (m *mockServer) handleEligibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Program string            `json:"program"`
		Subtype string            `json:"subtype"`
		Person  map[string]string `json:"person"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	cnp := req.Person["cnp"]
	eligible := len(cnp) == 13 && cnp[0] >= '1' && cnp[0] <= '6'
	reason := ""
	detail := "CNP could not be verified"
	if eligible {
		detail = "record matched"
		switch req.Program {
		case "AS":
			reason = "LOW_INCOME"
		default:
			reason = "EXP_60"
		}
	}
	m.logger.Info("eligibility check", "program", req.Program, "eligible", eligible)
	writeJSON(w, map[string]any{"eligible": eligible, "reason": reason, "detail": detail})
}

// handleNotify accepts email and sms sends and just logs them.
func (m *mockServer) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	channel := strings.TrimPrefix(r.URL.Path, "/notify/")
	if channel != "email" && channel != "sms" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var n struct {
		Recipient string `json:"recipient"`
		Subject   string `json:"subject"`
		Body      string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	m.logger.Info("notification sent", "channel", channel, "recipient", n.Recipient, "subject", n.Subject)
	writeJSON(w, map[string]string{"status": "sent"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func main() {
	addr := flag.String("addr", ":8095", "listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	m := &mockServer{uploads: map[string][]ocrItem{}, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/uploads", m.handleUpload)
	mux.HandleFunc("/ocr", m.handleOCR)
	mux.HandleFunc("/eligibility", m.handleEligibility)
	mux.HandleFunc("/notify/", m.handleNotify)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting ghiseu-mocks", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
