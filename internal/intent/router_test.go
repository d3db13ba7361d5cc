// ABOUTME: Tests for intent classification and sticky routing.
// ABOUTME: Covers keyword matching, stickiness on low confidence, and control markers.

package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleClassifier_Classify(t *testing.T) {
	c := NewRuleClassifier()

	tests := []struct {
		name string
		text string
		want Intent
	}{
		{"identity card phrase", "vreau carte de identitate noua", IdentityCard},
		{"buletin keyword", "mi-a expirat buletinul... adica buletin", IdentityCard},
		{"short ci token", "am nevoie de CI", IdentityCard},
		{"social aid", "cum obtin ajutor social?", SocialAid},
		{"minimum income", "venit minim de incluziune", SocialAid},
		{"operator", "list tasks", Operator},
		{"scheduling", "vreau o programare", Scheduling},
		{"upload talk", "am incarcat documentele", DocumentIntake},
		{"gibberish", "zzz qqq", Unknown},
		{"empty", "   ", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := c.Classify(tt.text)
			assert.Equal(t, tt.want, got)
			if tt.want == Unknown {
				assert.Zero(t, conf)
			} else {
				assert.GreaterOrEqual(t, conf, MinConfidence)
			}
		})
	}
}

func TestRuleClassifier_CIDoesNotMatchInsideWords(t *testing.T) {
	c := NewRuleClassifier()
	got, _ := c.Classify("circul din oras")
	assert.Equal(t, Unknown, got)
}

func TestRouter_SticksToCurrentAgentOnLowConfidence(t *testing.T) {
	r := NewRouter(NewRuleClassifier())

	d := r.Route("da, sigur", SocialAid)
	assert.Equal(t, SocialAid, d.Target)
	assert.True(t, d.Sticky)
}

func TestRouter_SwitchesOnConfidentMatch(t *testing.T) {
	r := NewRouter(NewRuleClassifier())

	d := r.Route("vreau carte de identitate", SocialAid)
	assert.Equal(t, IdentityCard, d.Target)
	assert.False(t, d.Sticky)
}

func TestRouter_UnknownWithoutCurrentAgent(t *testing.T) {
	r := NewRouter(NewRuleClassifier())

	d := r.Route("ceva neclar", "")
	assert.Equal(t, Unknown, d.Target)
}

func TestRouter_ControlMarkers(t *testing.T) {
	r := NewRouter(NewRuleClassifier())

	d := r.Route(MarkerUpload, IdentityCard)
	assert.Equal(t, DocumentIntake, d.Target)

	d = r.Route(MarkerPhase2Done, SocialAid)
	assert.Equal(t, SocialAid, d.Target)

	d = r.Route(MarkerPhase1Done, "")
	assert.Equal(t, Unknown, d.Target)
}

func TestRouter_DeterministicAcrossRetries(t *testing.T) {
	r := NewRouter(NewRuleClassifier())

	first := r.Route("vreau o programare", IdentityCard)
	second := r.Route("vreau o programare", IdentityCard)
	assert.Equal(t, first, second)
}
