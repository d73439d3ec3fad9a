// Package events carries the router's turn lifecycle notifications: an
// in-process bus every component can subscribe to, with an optional Redis
// mirror for external consumers.
package events

import "time"

// Event types.
const (
	EventTypeTurnStarted        = "turn.started"
	EventTypeTurnCompleted      = "turn.completed"
	EventTypeTurnDiscarded      = "turn.discarded"
	EventTypeLeadScored         = "lead.scored"
	EventTypeScoreUnchanged     = "score_unchanged"
	EventTypeRoutingDecided     = "routing.decided"
	EventTypeEscalationRaised   = "escalation.raised"
	EventTypeReplySent          = "reply.sent"
	EventTypeDuplicateSuppress  = "duplicate_suppressed"
	EventTypeSendFailure        = "send_failure"
	EventTypeAppointmentBooked  = "appointment.booked"
	EventTypeStepBudgetExceeded = "step_budget_exceeded"
)

// Event is one notification. Fields holds the event-specific payload; the
// envelope keys are stable for external consumers.
type Event struct {
	Type      string         `json:"type"`
	ThreadID  string         `json:"thread_id"`
	TurnID    string         `json:"turn_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// New creates an event stamped with the current UTC time.
func New(eventType, threadID, turnID string, fields map[string]any) Event {
	return Event{
		Type:      eventType,
		ThreadID:  threadID,
		TurnID:    turnID,
		Timestamp: time.Now().UTC(),
		Fields:    fields,
	}
}
