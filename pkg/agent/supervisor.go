// Package agent holds the supervisor and the three specialist roles that
// together decide and produce the reply for a turn.
package agent

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// highBudgetMinimum mirrors the scorer's qualified-budget threshold.
const highBudgetMinimum = 300

// Supervisor routes each turn to a specialist role.
type Supervisor struct {
	logger *slog.Logger
}

// NewSupervisor creates the routing supervisor.
func NewSupervisor() *Supervisor {
	return &Supervisor{logger: slog.Default().With("component", "supervisor")}
}

// Decide produces the routing decision for the current supervisor visit and
// increments the turn's attempt counter. Escalation flags are consumed here.
func (s *Supervisor) Decide(turn *models.Turn) *models.RoutingDecision {
	turn.RoutingAttempts++
	state := turn.State
	score := state.LeadScore

	decision := &models.RoutingDecision{ScoreAtDecision: score}

	switch {
	case turn.NeedsEscalation && turn.EscalationReason == models.EscalationError:
		if state.CurrentAgent == models.AgentDiscovery || turn.RoutingAttempts >= models.MaxRoutingAttempts {
			// Already at the safest role. End the turn without a reply.
			turn.ShouldEnd = true
			decision.NextAgent = models.AgentDiscovery
			decision.Reason = "error_terminal"
		} else {
			decision.NextAgent = models.AgentDiscovery
			decision.TaskDescription = "responder con la información disponible"
			decision.Reason = "error_fallback"
		}
	// The attempts bound outranks every non-error escalation: once the bound
	// is reached the turn degrades to a forced reply instead of rerouting.
	case turn.RoutingAttempts >= models.MaxRoutingAttempts:
		decision.NextAgent = fallbackAgent(state)
		decision.TaskDescription = "responder con la información disponible"
		decision.Reason = "routing_attempts_exhausted"
	case turn.NeedsEscalation && turn.EscalationReason == models.EscalationNeedsAppointment:
		decision.NextAgent = models.AgentCloser
		decision.TaskDescription = "agendar una cita"
		decision.Reason = "escalation:" + string(models.EscalationNeedsAppointment)
	case turn.NeedsEscalation && turn.EscalationReason == models.EscalationWrongAgent && score < models.WarmScoreThreshold:
		decision.NextAgent = models.AgentDiscovery
		decision.TaskDescription = "descubrir: nombre, negocio y objetivo"
		decision.Reason = "escalation:" + string(models.EscalationWrongAgent)
	case turn.NeedsEscalation && turn.EscalationReason == models.EscalationNeedsQualify:
		decision.NextAgent = models.AgentQualifier
		decision.TaskDescription = "calificar: confirmar presupuesto y objetivo"
		decision.Reason = "escalation:" + string(models.EscalationNeedsQualify)
	case turn.NeedsEscalation && turn.EscalationReason == models.EscalationCustomerConfused:
		decision.NextAgent = models.AgentDiscovery
		decision.TaskDescription = "aclarar la última respuesta en términos simples"
		decision.Reason = "escalation:" + string(models.EscalationCustomerConfused)
	case score >= models.HotScoreThreshold && readyToBook(state):
		decision.NextAgent = models.AgentCloser
		decision.TaskDescription = "agendar una cita"
		decision.Reason = "hot_ready"
	case score >= models.HotScoreThreshold:
		decision.NextAgent = models.AgentCloser
		decision.TaskDescription = "confirmar los datos faltantes y agendar"
		decision.Reason = "hot"
	case score >= models.WarmScoreThreshold:
		decision.NextAgent = models.AgentQualifier
		decision.TaskDescription = "calificar: confirmar presupuesto y objetivo"
		decision.Reason = "warm"
	default:
		decision.NextAgent = models.AgentDiscovery
		decision.TaskDescription = "descubrir: nombre, negocio y objetivo"
		decision.Reason = "cold"
	}

	turn.ClearEscalation()
	turn.Decision = decision
	s.logger.Info("Routing decided",
		"thread_id", turn.ThreadID,
		"turn_id", turn.TurnID,
		"next_agent", decision.NextAgent,
		"reason", decision.Reason,
		"score", score,
		"attempt", turn.RoutingAttempts)
	return decision
}

// fallbackAgent keeps the customer with the role they already talked to, or
// discovery when the thread has no history.
func fallbackAgent(state *models.ConversationState) models.AgentName {
	switch state.CurrentAgent {
	case models.AgentDiscovery, models.AgentQualifier, models.AgentCloser:
		return state.CurrentAgent
	default:
		return models.AgentDiscovery
	}
}

// readyToBook reports that every detail needed to book on the spot is known.
func readyToBook(state *models.ConversationState) bool {
	if !state.HasField(models.FieldEmail) || !state.HasField(models.FieldName) {
		return false
	}
	budget, ok := state.Field(models.FieldBudget)
	return ok && leadingNumber(budget) >= highBudgetMinimum
}

func leadingNumber(v string) int {
	start := -1
	for i, r := range v {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return atoiSafe(v[start:i])
		}
	}
	if start >= 0 {
		return atoiSafe(v[start:])
	}
	return 0
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
