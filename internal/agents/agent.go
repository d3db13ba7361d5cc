// ABOUTME: Domain agent interface and registry for the citizen flow
// ABOUTME: Agents turn declared answers into phase guards and UI directives

package agents

import (
	"context"

	"github.com/unibuc-cs/ghiseu-gateway/internal/directive"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intent"
	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
)

// Turn is one incoming citizen message with any form payloads the client
// sent alongside it.
type Turn struct {
	Message     string
	Person      map[string]string
	Application map[string]string
}

// Result is what an agent produced for one turn: a reply plus an ordered
// directive sequence the client consumes exactly once.
type Result struct {
	Reply      string
	Directives []directive.Directive
}

// Agent is a domain conversation handler. HandleTurn may mutate the
// session state it is given; the caller persists the state only when the
// whole turn succeeds. Guard supplies the phase predicates for this
// agent's program.
type Agent interface {
	Intent() intent.Intent
	HandleTurn(ctx context.Context, s *session.State, turn Turn) (*Result, error)
	Guard() session.Guard
}

// Registry maps intents to their agents.
type Registry struct {
	agents map[intent.Intent]Agent
}

// NewRegistry creates a registry over the given agents.
func NewRegistry(list ...Agent) *Registry {
	r := &Registry{agents: make(map[intent.Intent]Agent, len(list))}
	for _, a := range list {
		r.agents[a.Intent()] = a
	}
	return r
}

// Lookup returns the agent for an intent, or nil.
func (r *Registry) Lookup(target intent.Intent) Agent {
	return r.agents[target]
}

// mergeDeclared copies turn payloads into the declared namespaces.
// Empty values never erase an existing answer.
func mergeDeclared(s *session.State, turn Turn) {
	for k, v := range turn.Person {
		if v != "" {
			s.Declared.Person[k] = v
		}
	}
	for k, v := range turn.Application {
		if v != "" {
			s.Declared.Application[k] = v
		}
	}
}
