// ABOUTME: Intent classification for incoming chat text.
// ABOUTME: Ships a deterministic rule-based classifier behind a pluggable Classifier capability.

package intent

import "regexp"

// Intent identifies the agent a chat turn should be routed to.
type Intent string

// Known routing targets.
const (
	IdentityCard   Intent = "identity-card"
	SocialAid      Intent = "social-aid"
	Operator       Intent = "operator"
	DocumentIntake Intent = "document-intake"
	Scheduling     Intent = "scheduling"
	HubGov         Intent = "hubgov"
	Unknown        Intent = "unknown"
)

// Classifier maps free text to an intent with a confidence score in [0,1].
// Implementations must be pure: same text, same answer. The rule-based
// implementation below can be swapped for a learned classifier without
// touching any caller.
type Classifier interface {
	Classify(text string) (Intent, float64)
}

// rule pairs an intent with the patterns that vote for it. Patterns use word
// boundaries for short tokens so "ci" does not fire inside other words.
type rule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// RuleClassifier is the deterministic keyword classifier. Keyword tables
// cover the Romanian phrasing citizens actually use plus English fallbacks.
type RuleClassifier struct {
	rules []rule
}

// NewRuleClassifier builds the classifier with its built-in keyword tables.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		// Order matters: first matching rule wins, so the backoffice rule is
		// checked before the citizen-facing ones.
		rules: []rule{
			{intent: Operator, patterns: compile(
				`\boperator\b`,
				`\btasks?\b`,
				`\bcaz(uri)?\b`,
				`\bdosar\b`,
				`\badmin\b`,
			)},
			{intent: SocialAid, patterns: compile(
				`ajutor\s+social`,
				`\bvmi\b`,
				`venit\s+minim`,
				`benefici(i|u)`,
				`asistenta\s+sociala`,
			)},
			{intent: IdentityCard, patterns: compile(
				`carte\s+de\s+identitate`,
				`\bbuletin\b`,
				`\bci\b`,
				`\bc\.i\.\b`,
				`preschimbare\b`,
				`expir(a|at)`,
				`schimbare\s+domiciliu`,
				`viza\s+de\s+flotant`,
			)},
			{intent: Scheduling, patterns: compile(
				`programar(e|i)`,
				`\bslot(uri)?\b`,
				`rezerv(a|are)`,
				`reprogram`,
				`cand\s+e\s+liber`,
				`appointment`,
				`schedule`,
			)},
			{intent: DocumentIntake, patterns: compile(
				`\bdocumente?\b`,
				`\bincarc(a|at)\b`,
				`\bupload\b`,
				`\bocr\b`,
			)},
			{intent: HubGov, patterns: compile(
				`\bhubgov\b`,
				`\bhub\b`,
			)},
		},
	}
}

// Classify returns the first matching intent. Matches score 0.9; no match
// returns Unknown with zero confidence. Deliberately conservative: an
// ambiguous message should stay with the active agent, not bounce around.
func (c *RuleClassifier) Classify(text string) (Intent, float64) {
	t := normalize(text)
	if t == "" {
		return Unknown, 0
	}
	for _, r := range c.rules {
		for _, p := range r.patterns {
			if p.MatchString(t) {
				return r.intent, 0.9
			}
		}
	}
	return Unknown, 0
}
