// ABOUTME: HTTP client boundary to the external tool services
// ABOUTME: Retries idempotent reads with backoff, never retries writes

package toolgw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrExternalService wraps any transport or server-side failure from an
// external tool. Callers map it to a 502 at the API boundary.
var ErrExternalService = errors.New("external service error")

// Config holds the tool endpoints and retry policy.
type Config struct {
	OCRURL         string
	EligibilityURL string
	NotifyURL      string
	Timeout        time.Duration
	RetryAttempts  int // extra attempts after the first, reads only
}

// RetryObserver is notified once per retry attempt. Used to feed metrics.
type RetryObserver func(tool string)

// Gateway is the single boundary through which the orchestrator talks to
// external tools. Reads (OCR lookup, eligibility check) are safe to retry;
// writes (notifications) are attempted exactly once.
type Gateway struct {
	cfg     Config
	client  *http.Client
	logger  *slog.Logger
	onRetry RetryObserver
}

// NewGateway creates a Gateway. Pass nil logger for default.
func NewGateway(cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "toolgw"),
	}
}

// SetRetryObserver registers a callback invoked on every retry.
func (g *Gateway) SetRetryObserver(fn RetryObserver) {
	g.onRetry = fn
}

// OCRResult is what the recognition service knows about a session's
// uploads: the document kinds it identified and any person fields it
// extracted from them.
type OCRResult struct {
	Kinds  []string          `json:"kinds"`
	Items  []OCRItem         `json:"items,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Source string            `json:"source,omitempty"` // doc kind the fields came from
}

// OCRItem is one recognized upload.
type OCRItem struct {
	Filename string `json:"filename"`
	Kind     string `json:"kind"`
}

// RecognizedDocs asks the OCR service what it has recognized for a
// session. Idempotent read, retried on failure.
func (g *Gateway) RecognizedDocs(ctx context.Context, sessionID string) (*OCRResult, error) {
	var out OCRResult
	url := fmt.Sprintf("%s?session_id=%s", g.cfg.OCRURL, sessionID)
	if err := g.getJSON(ctx, "ocr", url, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EligibilityRequest carries the answers needed to resolve an
// eligibility reason automatically.
type EligibilityRequest struct {
	Program string            `json:"program"`
	Subtype string            `json:"subtype,omitempty"`
	Person  map[string]string `json:"person"`
}

// EligibilityResult is the tool's verdict.
type EligibilityResult struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}

// CheckEligibility resolves an eligibility reason via the external
// checker. Idempotent read, retried on failure.
func (g *Gateway) CheckEligibility(ctx context.Context, req EligibilityRequest) (*EligibilityResult, error) {
	var out EligibilityResult
	if err := g.postJSONRetrying(ctx, "eligibility", g.cfg.EligibilityURL, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Notification is an outbound email or SMS message.
type Notification struct {
	Channel   string `json:"channel"` // "email" or "sms"
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// Notify sends one notification. This is a write: it is attempted exactly
// once, and a failure is returned to the caller rather than retried.
func (g *Gateway) Notify(ctx context.Context, n Notification) error {
	url := g.cfg.NotifyURL + "/" + n.Channel
	return g.doJSON(ctx, "notify", http.MethodPost, url, n, nil)
}

// getJSON performs a retried GET into out.
func (g *Gateway) getJSON(ctx context.Context, tool, url string, out any) error {
	return g.withRetry(ctx, tool, func() error {
		return g.doJSON(ctx, tool, http.MethodGet, url, nil, out)
	})
}

// postJSONRetrying performs a retried POST. Only for idempotent queries
// that happen to carry a body.
func (g *Gateway) postJSONRetrying(ctx context.Context, tool, url string, in, out any) error {
	return g.withRetry(ctx, tool, func() error {
		return g.doJSON(ctx, tool, http.MethodPost, url, in, out)
	})
}

// withRetry runs fn up to 1+RetryAttempts times with linear backoff.
func (g *Gateway) withRetry(ctx context.Context, tool string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= g.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			if g.onRetry != nil {
				g.onRetry(tool)
			}
			select {
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %v", ErrExternalService, tool, ctx.Err())
			}
			g.logger.Warn("retrying tool call", "tool", tool, "attempt", attempt)
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

func (g *Gateway) doJSON(ctx context.Context, tool, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", tool, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExternalService, tool, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExternalService, tool, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d", ErrExternalService, tool, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %s: decoding response: %v", ErrExternalService, tool, err)
		}
	}
	return nil
}
