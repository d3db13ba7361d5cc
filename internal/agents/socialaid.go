// ABOUTME: Social-aid domain agent
// ABOUTME: Three-step wizard: slot first, then eligibility, then person fields and documents

package agents

import (
	"context"
	"log/slog"

	"github.com/unibuc-cs/ghiseu-gateway/internal/directive"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intent"
	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
)

// socialAidPersonFields are the declared fields the AS form requires,
// in focus order.
var socialAidPersonFields = []string{"nume", "prenume", "cnp", "adresa"}

// socialAidBaseDocs are required for every social-aid application.
var socialAidBaseDocs = []string{DocAidRequestForm, DocIncomeProof, DocHousingProof}

// SocialAidRequiredDocs returns the document kinds a social-aid
// application needs. DISABILITY additionally requires a medical
// certificate.
func SocialAidRequiredDocs(reason string) []string {
	kinds := append([]string(nil), socialAidBaseDocs...)
	if reason == ReasonDisability {
		kinds = append(kinds, DocMedicalCert)
	}
	return kinds
}

// Wizard steps, in the order the original flow walks them.
const (
	stepSlot = iota
	stepEligibility
	stepPersonAndDocs
)

// SocialAidAgent handles social-aid (AS) conversations. Unlike the
// identity flow, the wizard books the review slot first, then settles
// eligibility, then collects person fields and documents.
type SocialAidAgent struct {
	logger *slog.Logger
}

// NewSocialAidAgent creates the agent. Pass nil logger for default.
func NewSocialAidAgent(logger *slog.Logger) *SocialAidAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocialAidAgent{logger: logger.With("component", "agent_socialaid")}
}

func (a *SocialAidAgent) Intent() intent.Intent { return intent.SocialAid }

// Guard supplies the phase predicates for AS sessions.
func (a *SocialAidAgent) Guard() session.Guard {
	return session.Guard{
		IdentityComplete: func(s *session.State) bool {
			return s.EligibilityReason != "" && missingPersonField(s, socialAidPersonFields) == ""
		},
		MissingDocs: func(s *session.State) []string {
			return missingDocs(s, SocialAidRequiredDocs(s.EligibilityReason))
		},
	}
}

// HandleTurn advances the wizard one step per turn. The step counter
// only moves forward when the step's own requirement is met, so a
// repeated identical turn is a no-op.
func (a *SocialAidAgent) HandleTurn(ctx context.Context, s *session.State, turn Turn) (*Result, error) {
	s.Program = ProgramSocialAid
	s.Intent = string(intent.SocialAid)
	mergeDeclared(s, turn)

	if v := s.Declared.Application["eligibility_reason"]; v != "" {
		s.EligibilityReason = v
	}

	var dirs []directive.Directive
	if loc := s.Declared.Application["location_id"]; loc != "" {
		if s.SetLocation(loc) {
			dirs = append(dirs, directive.ToastWarn(
				"Programare anulata",
				"Ai schimbat locatia, asa ca intervalul rezervat anterior a fost eliberat. Alege un nou interval."))
		}
	}

	a.advanceWizard(s)

	reply, stepDirs := a.compose(s)
	s.Phase, _ = session.Evaluate(s, a.Guard())
	return &Result{Reply: reply, Directives: append(dirs, stepDirs...)}, nil
}

// advanceWizard moves the step pointer past every step whose requirement
// is already satisfied.
func (a *SocialAidAgent) advanceWizard(s *session.State) {
	if s.WizardStep == stepSlot && s.Verified.SlotID != "" {
		s.WizardStep = stepEligibility
	}
	if s.WizardStep == stepEligibility && s.EligibilityReason != "" {
		s.WizardStep = stepPersonAndDocs
	}
}

func (a *SocialAidAgent) compose(s *session.State) (string, []directive.Directive) {
	switch s.WizardStep {
	case stepSlot:
		return "Pentru ajutor social programam mai intai o intalnire cu un consilier. Alege un interval.",
			[]directive.Directive{directive.Navigate{URL: "/programare"}}

	case stepEligibility:
		return "Alege motivul pentru care soliciti ajutor social.",
			[]directive.Directive{
				directive.OpenSection{SectionID: "eligibility"},
				directive.FocusField{FieldID: "eligibility_reason"},
			}

	default:
		if field := missingPersonField(s, socialAidPersonFields); field != "" {
			return "Completeaza datele personale pentru cererea de ajutor social.",
				[]directive.Directive{
					directive.OpenSection{SectionID: "identity"},
					directive.FocusField{FieldID: field},
					directive.ToastInfo("Date incomplete", "Mai sunt campuri de completat."),
				}
		}
		missing := missingDocs(s, SocialAidRequiredDocs(s.EligibilityReason))
		if len(missing) > 0 {
			return "Incarca documentele justificative marcate.",
				[]directive.Directive{
					directive.OpenSection{SectionID: "documents"},
					directive.HighlightMissingDocs{Kinds: missing},
				}
		}
		if s.Verified.CaseID != "" {
			return "Cererea de ajutor social a fost depusa.",
				[]directive.Directive{directive.ToastOK("Cerere depusa", "Dosarul tau este in lucru.")}
		}
		return "Dosarul este complet. Poti depune cererea de ajutor social.",
			[]directive.Directive{
				directive.OpenSection{SectionID: "review"},
				directive.ToastOK("Gata de depunere", "Cererea poate fi trimisa."),
			}
	}
}
