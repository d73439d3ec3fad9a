package models

// MaxRoutingAttempts bounds supervisor visits within one turn. The visit
// that reaches the bound produces a terminal fallback decision, and the
// specialist-to-supervisor back edge stops firing.
const MaxRoutingAttempts = 3

// EscalationReason is a specialist's explanation for bouncing a turn back to
// the supervisor.
type EscalationReason string

// Escalation reasons.
const (
	EscalationWrongAgent        EscalationReason = "wrong_agent"
	EscalationNeedsQualify      EscalationReason = "needs_qualification"
	EscalationNeedsAppointment  EscalationReason = "needs_appointment"
	EscalationCustomerConfused  EscalationReason = "customer_confused"
	EscalationError             EscalationReason = "error"
)

// RoutingDecision is the supervisor's output for one visit. It exists only
// within a turn and is never persisted.
type RoutingDecision struct {
	NextAgent       AgentName `json:"next_agent"`
	TaskDescription string    `json:"task_description"`
	Reason          string    `json:"reason"`
	ScoreAtDecision int       `json:"score_at_decision"`
}
