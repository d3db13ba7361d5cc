// ABOUTME: Tests for the document intake coordinator
// ABOUTME: Covers OCR merge, missing-doc delegation, and the autofill offer cycle

package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibuc-cs/ghiseu-gateway/internal/directive"
	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
	"github.com/unibuc-cs/ghiseu-gateway/internal/toolgw"
)

type fakeRecognizer struct {
	result *toolgw.OCRResult
	err    error
}

func (f *fakeRecognizer) RecognizedDocs(ctx context.Context, sessionID string) (*toolgw.OCRResult, error) {
	return f.result, f.err
}

func TestCoordinator_Refresh_MergesAppendOnly(t *testing.T) {
	rec := &fakeRecognizer{result: &toolgw.OCRResult{Kinds: []string{"birth_certificate"}}}
	c := NewCoordinator(rec, nil)
	s := session.NewState("sess-1")

	added, _, err := c.Refresh(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"birth_certificate"}, added)

	// Second refresh with an extra kind adds only the new one
	rec.result = &toolgw.OCRResult{Kinds: []string{"birth_certificate", "police_report"}}
	added, _, err = c.Refresh(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"police_report"}, added)
	assert.Len(t, s.Verified.RecognizedDocs, 2)
}

func TestCoordinator_Refresh_ToolFailureLeavesStateAlone(t *testing.T) {
	rec := &fakeRecognizer{err: toolgw.ErrExternalService}
	c := NewCoordinator(rec, nil)
	s := session.NewState("sess-1")
	s.MarkRecognized("address_proof")

	_, _, err := c.Refresh(context.Background(), s)
	assert.True(t, errors.Is(err, toolgw.ErrExternalService))
	assert.Equal(t, []string{"address_proof"}, s.Verified.RecognizedDocs)
}

func TestCoordinator_Refresh_StagesAutofillOffer(t *testing.T) {
	rec := &fakeRecognizer{result: &toolgw.OCRResult{
		Kinds:  []string{"prior_identity_document"},
		Fields: map[string]string{"nume": "Popescu", "cnp": "1960101123456"},
		Source: "prior_identity_document",
	}}
	c := NewCoordinator(rec, nil)
	s := session.NewState("sess-1")
	s.Declared.Person["cnp"] = "already-typed"

	_, _, err := c.Refresh(context.Background(), s)
	require.NoError(t, err)

	require.NotNil(t, s.PendingAutofill)
	assert.Equal(t, map[string]string{"nume": "Popescu"}, s.PendingAutofill.Fields,
		"fields the citizen already declared are not offered")
	assert.Equal(t, "prior_identity_document", s.PendingAutofill.Source)
}

func TestCoordinator_Refresh_NoOfferWhenNothingNew(t *testing.T) {
	rec := &fakeRecognizer{result: &toolgw.OCRResult{
		Kinds:  []string{"birth_certificate"},
		Fields: map[string]string{"nume": "Popescu"},
	}}
	c := NewCoordinator(rec, nil)
	s := session.NewState("sess-1")
	s.Declared.Person["nume"] = "Popescu"

	_, _, err := c.Refresh(context.Background(), s)
	require.NoError(t, err)
	assert.Nil(t, s.PendingAutofill)
}

func TestCoordinator_ResolveAutofill_Accept(t *testing.T) {
	c := NewCoordinator(&fakeRecognizer{}, nil)
	s := session.NewState("sess-1")
	s.Declared.Person["cnp"] = "typed-first"
	s.PendingAutofill = &session.AutofillOffer{
		Fields: map[string]string{"nume": "Popescu", "cnp": "from-ocr"},
		Source: "prior_identity_document",
	}

	dirs := c.ResolveAutofill(s, true)
	require.Len(t, dirs, 2)
	apply, ok := dirs[0].(directive.AutofillApply)
	require.True(t, ok)
	assert.Equal(t, "Popescu", apply.Fields["nume"])

	assert.Equal(t, "Popescu", s.Declared.Person["nume"])
	assert.Equal(t, "typed-first", s.Declared.Person["cnp"], "typed values win over OCR")
	assert.Nil(t, s.PendingAutofill, "offer is consumed")
}

func TestCoordinator_ResolveAutofill_Decline(t *testing.T) {
	c := NewCoordinator(&fakeRecognizer{}, nil)
	s := session.NewState("sess-1")
	s.PendingAutofill = &session.AutofillOffer{Fields: map[string]string{"nume": "Popescu"}}

	dirs := c.ResolveAutofill(s, false)
	assert.Empty(t, dirs)
	assert.Empty(t, s.Declared.Person["nume"])
	assert.Nil(t, s.PendingAutofill)

	// Answering again is a no-op
	assert.Empty(t, c.ResolveAutofill(s, true))
}

func TestCoordinator_RequiredMissing_Delegates(t *testing.T) {
	c := NewCoordinator(&fakeRecognizer{}, nil)
	s := session.NewState("sess-1")

	missing := c.RequiredMissing(s, session.Guard{
		MissingDocs: func(*session.State) []string { return []string{"police_report"} },
	})
	assert.Equal(t, []string{"police_report"}, missing)

	assert.Nil(t, c.RequiredMissing(s, session.Guard{}))
}
