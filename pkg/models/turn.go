package models

// Turn carries the transient working data of one webhook-triggered pass
// through the runtime. Nothing in it is persisted; the checkpoint snapshot is
// the ConversationState only.
type Turn struct {
	TurnID   string
	ThreadID string

	// State is the thread snapshot being worked on. Stages mutate it in
	// place; the runtime persists it once the turn completes.
	State *ConversationState

	// Webhook is the normalized delivery that started the turn; Inbound is
	// its message form.
	Webhook InboundMessage
	Inbound Message

	// Decision is the supervisor's latest routing output.
	Decision *RoutingDecision

	// RoutingAttempts counts supervisor visits this turn. The third visit
	// forces a terminal fallback decision.
	RoutingAttempts int

	// NeedsEscalation sends control back to the supervisor with the
	// specialist's reason.
	NeedsEscalation  bool
	EscalationReason EscalationReason

	// Reply is the specialist's generated text, consumed by the responder.
	Reply     string
	ReplyFrom AgentName

	// AppointmentBooked is set when the closer created a calendar booking.
	AppointmentBooked bool

	// MessageSent records that the responder delivered the reply upstream.
	MessageSent bool

	// SendFailed records delivery failure after retries. The turn still
	// completes and checkpoints.
	SendFailed bool

	// DuplicateSuppressed records that delivery was skipped because the reply
	// matched the last sent message.
	DuplicateSuppressed bool

	// ShouldEnd short-circuits the graph to the responder.
	ShouldEnd bool
}

// ClearEscalation resets the escalation flags after the supervisor consumes
// them.
func (t *Turn) ClearEscalation() {
	t.NeedsEscalation = false
	t.EscalationReason = ""
}
