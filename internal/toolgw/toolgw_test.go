// ABOUTME: Tests for the external tool gateway
// ABOUTME: Covers retry-on-read, no-retry-on-write, and error wrapping

package toolgw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_RecognizedDocs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sess-1", r.URL.Query().Get("session_id"))
		w.Write([]byte(`{"kinds":["birth_certificate","address_proof"],"fields":{"nume":"Popescu"},"source":"birth_certificate"}`))
	}))
	defer srv.Close()

	g := NewGateway(Config{OCRURL: srv.URL}, nil)

	res, err := g.RecognizedDocs(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"birth_certificate", "address_proof"}, res.Kinds)
	assert.Equal(t, "Popescu", res.Fields["nume"])
	assert.Equal(t, "birth_certificate", res.Source)
}

func TestGateway_RecognizedDocs_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"kinds":["police_report"]}`))
	}))
	defer srv.Close()

	var retries atomic.Int32
	g := NewGateway(Config{OCRURL: srv.URL, RetryAttempts: 3}, nil)
	g.SetRetryObserver(func(string) { retries.Add(1) })

	res, err := g.RecognizedDocs(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"police_report"}, res.Kinds)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int32(2), retries.Load())
}

func TestGateway_RecognizedDocs_ExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewGateway(Config{OCRURL: srv.URL, RetryAttempts: 1}, nil)

	_, err := g.RecognizedDocs(context.Background(), "sess-1")
	assert.ErrorIs(t, err, ErrExternalService)
}

func TestGateway_CheckEligibility(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"eligible":true,"reason":"EXP_60"}`))
	}))
	defer srv.Close()

	g := NewGateway(Config{EligibilityURL: srv.URL}, nil)

	res, err := g.CheckEligibility(context.Background(), EligibilityRequest{
		Program: "CI",
		Person:  map[string]string{"cnp": "1960101123456"},
	})
	require.NoError(t, err)
	assert.True(t, res.Eligible)
	assert.Equal(t, "EXP_60", res.Reason)
}

func TestGateway_Notify_NeverRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/email", r.URL.Path)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewGateway(Config{NotifyURL: srv.URL, RetryAttempts: 3}, nil)

	err := g.Notify(context.Background(), Notification{
		Channel:   "email",
		Recipient: "ana@example.ro",
		Body:      "programare confirmata",
	})
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Equal(t, int32(1), calls.Load(), "writes are attempted exactly once")
}

func TestGateway_ContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewGateway(Config{OCRURL: srv.URL, RetryAttempts: 50}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.RecognizedDocs(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Less(t, time.Since(start), 2*time.Second)
}
