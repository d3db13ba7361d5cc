// ABOUTME: Identity-card domain agent
// ABOUTME: Rule-table document requirements, VR eligibility override, and turn directives

package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unibuc-cs/ghiseu-gateway/internal/directive"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intent"
	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
	"github.com/unibuc-cs/ghiseu-gateway/internal/toolgw"
)

// identityPersonFields are the declared fields the CI form requires,
// in focus order.
var identityPersonFields = []string{"nume", "prenume", "cnp"}

// identityBaseDocs maps each eligibility reason to its base document
// requirements. Every reason except AGE_14 additionally requires the
// prior identity document; requiredDocs applies that rule.
var identityBaseDocs = map[string][]string{
	ReasonAge14:      {DocBirthCertificate},
	ReasonExpiry:     {},
	ReasonChangeAddr: {DocAddressProof},
	ReasonLoss:       {DocBirthCertificate, DocPoliceReport},
}

// IdentityRequiredDocs returns the document kinds an identity-card
// request needs, in a stable order. The table is total over the known
// reasons; an unknown reason returns ok=false and requires nothing.
func IdentityRequiredDocs(subtype, reason string) (kinds []string, ok bool) {
	if subtype == SubtypeVR {
		reason = ReasonChangeAddr
	}
	base, ok := identityBaseDocs[reason]
	if !ok {
		return nil, false
	}
	kinds = append(kinds, base...)
	if reason != ReasonAge14 {
		kinds = append(kinds, DocPriorIdentity)
	}
	return kinds, true
}

// EligibilityChecker is the slice of the tool gateway the identity agent
// uses to resolve subtype "auto".
type EligibilityChecker interface {
	CheckEligibility(ctx context.Context, req toolgw.EligibilityRequest) (*toolgw.EligibilityResult, error)
}

// IdentityAgent handles identity-card (CI) conversations.
type IdentityAgent struct {
	checker EligibilityChecker
	logger  *slog.Logger
}

// NewIdentityAgent creates the agent. Pass nil logger for default.
func NewIdentityAgent(checker EligibilityChecker, logger *slog.Logger) *IdentityAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityAgent{
		checker: checker,
		logger:  logger.With("component", "agent_identity"),
	}
}

func (a *IdentityAgent) Intent() intent.Intent { return intent.IdentityCard }

// Guard supplies the phase predicates for CI sessions.
func (a *IdentityAgent) Guard() session.Guard {
	return session.Guard{
		IdentityComplete: func(s *session.State) bool {
			if s.Subtype == "" || s.Subtype == SubtypeAuto {
				return false
			}
			if _, ok := IdentityRequiredDocs(s.Subtype, s.EligibilityReason); !ok {
				return false
			}
			return missingPersonField(s, identityPersonFields) == ""
		},
		MissingDocs: func(s *session.State) []string {
			required, ok := IdentityRequiredDocs(s.Subtype, s.EligibilityReason)
			if !ok {
				return nil
			}
			return missingDocs(s, required)
		},
	}
}

// HandleTurn merges the turn's declared answers, applies the VR
// override, resolves subtype auto through the eligibility tool, and
// composes the directives for the phase the session has earned.
func (a *IdentityAgent) HandleTurn(ctx context.Context, s *session.State, turn Turn) (*Result, error) {
	s.Program = ProgramIdentityCard
	s.Intent = string(intent.IdentityCard)
	mergeDeclared(s, turn)

	if v := s.Declared.Application["subtype"]; v != "" {
		s.Subtype = v
	}
	if v := s.Declared.Application["eligibility_reason"]; v != "" {
		s.EligibilityReason = v
	}

	var dirs []directive.Directive

	// VR is address-change only. The override always fires and is always
	// reported; it never silently replaces the citizen's selection.
	if s.Subtype == SubtypeVR && s.EligibilityReason != ReasonChangeAddr {
		s.EligibilityReason = ReasonChangeAddr
		s.Declared.Application["eligibility_reason"] = ReasonChangeAddr
		dirs = append(dirs, directive.ToastWarn(
			"Motiv actualizat",
			"Cartea de identitate provizorie (VR) se elibereaza doar pentru schimbare de adresa. Am selectat motivul corespunzator."))
	}

	if s.Subtype == SubtypeAuto {
		dirs = append(dirs, a.resolveAuto(ctx, s)...)
	}

	if loc := s.Declared.Application["location_id"]; loc != "" {
		if s.SetLocation(loc) {
			dirs = append(dirs, directive.ToastWarn(
				"Programare anulata",
				"Ai schimbat locatia, asa ca intervalul rezervat anterior a fost eliberat. Alege un nou interval."))
		}
	}

	phase, missing := session.Evaluate(s, a.Guard())
	s.Phase = phase

	reply, phaseDirs := a.compose(s, phase, missing)
	return &Result{Reply: reply, Directives: append(dirs, phaseDirs...)}, nil
}

// resolveAuto asks the eligibility tool which subtype and reason apply.
// A tool failure becomes a toast; the turn itself still succeeds.
func (a *IdentityAgent) resolveAuto(ctx context.Context, s *session.State) []directive.Directive {
	res, err := a.checker.CheckEligibility(ctx, toolgw.EligibilityRequest{
		Program: ProgramIdentityCard,
		Subtype: s.Subtype,
		Person:  s.Declared.Person,
	})
	if err != nil {
		a.logger.Warn("eligibility check failed", "session_id", s.ID, "error", err)
		return []directive.Directive{directive.ToastError(
			"Verificare indisponibila",
			"Nu am putut verifica automat eligibilitatea. Alege manual tipul de carte sau incearca din nou.")}
	}
	if !res.Eligible {
		return []directive.Directive{directive.ToastWarn(
			"Neeligibil",
			"Conform verificarii automate nu esti eligibil pentru eliberare automata. Alege manual tipul de carte.")}
	}

	s.Subtype = SubtypeCEI
	s.EligibilityReason = res.Reason
	s.Declared.Application["subtype"] = SubtypeCEI
	s.Declared.Application["eligibility_reason"] = res.Reason
	return []directive.Directive{directive.ToastOK(
		"Eligibilitate stabilita",
		fmt.Sprintf("Verificarea automata a stabilit motivul %s.", res.Reason))}
}

func (a *IdentityAgent) compose(s *session.State, phase session.Phase, missing []string) (string, []directive.Directive) {
	switch phase {
	case session.PhaseCollectingIdentity:
		dirs := []directive.Directive{directive.OpenSection{SectionID: "identity"}}
		if field := missingPersonField(s, identityPersonFields); field != "" {
			dirs = append(dirs, directive.FocusField{FieldID: field})
		}
		return "Completeaza datele de identificare si tipul cartii de identitate.", dirs

	case session.PhaseAwaitingDocuments:
		return "Mai avem nevoie de cateva documente. Incarca-le pe cele marcate.",
			[]directive.Directive{
				directive.OpenSection{SectionID: "documents"},
				directive.HighlightMissingDocs{Kinds: missing},
			}

	case session.PhaseAwaitingSlot:
		return "Documentele sunt in regula. Alege un interval pentru programare.",
			[]directive.Directive{directive.Navigate{URL: "/programare"}}

	case session.PhaseReadyToSubmit:
		return "Totul este pregatit. Poti depune cererea.",
			[]directive.Directive{
				directive.OpenSection{SectionID: "review"},
				directive.ToastOK("Gata de depunere", "Cererea poate fi trimisa."),
			}

	case session.PhaseDone:
		return "Cererea a fost depusa. Vei primi o notificare cand este procesata.",
			[]directive.Directive{directive.ToastOK("Cerere depusa", "Dosarul tau este in lucru.")}
	}
	return "Te pot ajuta cu eliberarea cartii de identitate. Spune-mi ce ai nevoie.", nil
}

// missingPersonField returns the first required declared field that is
// still empty, or "".
func missingPersonField(s *session.State, fields []string) string {
	for _, f := range fields {
		if s.Declared.Person[f] == "" {
			return f
		}
	}
	return ""
}

// missingDocs returns required kinds absent from the verified set,
// preserving rule-table order. Client-declared document claims never
// count.
func missingDocs(s *session.State, required []string) []string {
	var out []string
	for _, kind := range required {
		if !s.HasRecognized(kind) {
			out = append(out, kind)
		}
	}
	return out
}
