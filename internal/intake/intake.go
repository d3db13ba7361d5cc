// ABOUTME: Document intake coordinator for the citizen flow
// ABOUTME: Merges OCR recognition results and manages pending autofill offers

package intake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unibuc-cs/ghiseu-gateway/internal/directive"
	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
	"github.com/unibuc-cs/ghiseu-gateway/internal/toolgw"
)

// Recognizer is the slice of the tool gateway the coordinator needs.
type Recognizer interface {
	RecognizedDocs(ctx context.Context, sessionID string) (*toolgw.OCRResult, error)
}

// Coordinator owns the intake side of a session: which document kinds
// the server has verified and whether an autofill offer is pending.
// All mutation happens inside a session.Manager.Update, so the
// coordinator itself is stateless.
type Coordinator struct {
	recognizer Recognizer
	logger     *slog.Logger
}

// NewCoordinator creates a Coordinator. Pass nil logger for default.
func NewCoordinator(r Recognizer, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		recognizer: r,
		logger:     logger.With("component", "intake"),
	}
}

// Refresh queries the OCR tool and merges its results into the session.
// Recognition only ever grows the verified set. When the tool extracted
// person fields that the citizen has not filled in yet, a pending
// autofill offer is staged for the next turn. Returns the kinds that
// were newly recognized and the raw tool result.
func (c *Coordinator) Refresh(ctx context.Context, s *session.State) ([]string, *toolgw.OCRResult, error) {
	res, err := c.recognizer.RecognizedDocs(ctx, s.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("refreshing recognized documents: %w", err)
	}

	added := s.MarkRecognized(res.Kinds...)
	if len(added) > 0 {
		c.logger.Info("documents recognized",
			"session_id", s.ID,
			"kinds", added)
	}

	if offer := buildOffer(s, res); offer != nil {
		s.PendingAutofill = offer
	}
	return added, res, nil
}

// buildOffer returns an autofill offer for extracted fields the citizen
// has not declared, or nil when there is nothing new to offer.
func buildOffer(s *session.State, res *toolgw.OCRResult) *session.AutofillOffer {
	if len(res.Fields) == 0 || s.PendingAutofill != nil {
		return nil
	}
	fields := make(map[string]string)
	for k, v := range res.Fields {
		if v == "" || s.Declared.Person[k] != "" {
			continue
		}
		fields[k] = v
	}
	if len(fields) == 0 {
		return nil
	}
	return &session.AutofillOffer{Fields: fields, Source: res.Source}
}

// RequiredMissing returns the required document kinds not yet verified,
// per the active agent's rule table. Client-declared answers never count.
func (c *Coordinator) RequiredMissing(s *session.State, g session.Guard) []string {
	if g.MissingDocs == nil {
		return nil
	}
	return g.MissingDocs(s)
}

// ResolveAutofill consumes a pending offer. Accepting copies the offered
// values into the declared person fields and emits autofill_apply;
// declining discards the offer silently. Either way the offer is gone:
// it is answered at most once.
func (c *Coordinator) ResolveAutofill(s *session.State, accept bool) []directive.Directive {
	offer := s.PendingAutofill
	if offer == nil {
		return nil
	}
	s.PendingAutofill = nil

	if !accept {
		c.logger.Debug("autofill declined", "session_id", s.ID)
		return nil
	}

	for k, v := range offer.Fields {
		if s.Declared.Person[k] == "" {
			s.Declared.Person[k] = v
		}
	}
	c.logger.Info("autofill applied",
		"session_id", s.ID,
		"source", offer.Source,
		"fields", len(offer.Fields))

	return []directive.Directive{
		directive.AutofillApply{Fields: offer.Fields},
		directive.ToastOK("Date preluate", "Am completat campurile din documentul incarcat."),
	}
}
