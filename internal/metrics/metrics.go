// ABOUTME: Prometheus metrics for the gateway
// ABOUTME: Counters for chat turns, reservations, cases, tool retries, and operator commands

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatTurns counts handled chat turns by the agent that served them.
	ChatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghiseu_chat_turns_total",
		Help: "Chat turns handled, labeled by serving agent.",
	}, []string{"agent"})

	// Reservations counts successful slot reservations.
	Reservations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghiseu_slot_reservations_total",
		Help: "Successful appointment slot reservations.",
	})

	// ReservationConflicts counts reservation attempts that lost the race.
	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghiseu_slot_reservation_conflicts_total",
		Help: "Reservation attempts rejected because the slot was taken.",
	})

	// CasesCreated counts filed cases by program.
	CasesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghiseu_cases_created_total",
		Help: "Cases created, labeled by program.",
	}, []string{"program"})

	// ToolRetries counts retried external tool calls by tool name.
	ToolRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghiseu_tool_retries_total",
		Help: "Retried external tool calls, labeled by tool.",
	}, []string{"tool"})

	// OperatorCommands counts executed operator console commands by kind.
	OperatorCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghiseu_operator_commands_total",
		Help: "Operator console commands executed, labeled by command kind.",
	}, []string{"command"})
)
