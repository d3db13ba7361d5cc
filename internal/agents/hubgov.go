// ABOUTME: HubGov notice agent
// ABOUTME: Answers hub-action intents with an informational toast and a hub directive

package agents

import (
	"context"
	"strings"

	"github.com/unibuc-cs/ghiseu-gateway/internal/directive"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intent"
	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
)

// HubGovAgent points citizens at the national hub for operations the
// local office does not perform itself.
type HubGovAgent struct{}

// NewHubGovAgent creates the agent.
func NewHubGovAgent() *HubGovAgent { return &HubGovAgent{} }

func (a *HubGovAgent) Intent() intent.Intent { return intent.HubGov }

// Guard returns empty predicates; the hub agent never advances a phase.
func (a *HubGovAgent) Guard() session.Guard { return session.Guard{} }

// HandleTurn responds with a notice and the matching hub action. It does
// not touch the session's program or phase, so the citizen can continue
// their local flow afterwards.
func (a *HubGovAgent) HandleTurn(ctx context.Context, s *session.State, turn Turn) (*Result, error) {
	action := "open_hub"
	if strings.Contains(strings.ToLower(turn.Message), "plat") {
		action = "open_payments"
	}
	return &Result{
		Reply: "Aceasta operatiune se face prin platforma nationala HubGov. Te redirectionez.",
		Directives: []directive.Directive{
			directive.ToastInfo("HubGov", "Operatiunea continua in platforma nationala."),
			directive.HubGovAction{Action: action},
		},
	}, nil
}
