package models

// InboundMessage is the normalized form of one CRM webhook delivery. Direction
// is always inbound; outbound traffic never reaches the router.
type InboundMessage struct {
	ContactID      string `json:"contactId"`
	ConversationID string `json:"conversationId,omitempty"`
	LocationID     string `json:"locationId,omitempty"`
	Body           string `json:"body"`

	// Extra holds webhook fields the router does not interpret; they are
	// carried through on the state as webhook_data.
	Extra map[string]any `json:"-"`
}

// ThreadID derives the conversation key for this delivery.
func (m InboundMessage) ThreadID() string {
	return DeriveThreadID(m.ConversationID, m.ContactID)
}

// Message converts the webhook body into a customer message.
func (m InboundMessage) Message() Message {
	return Message{
		Role:    RoleCustomer,
		Content: m.Body,
		Origin:  OriginWebhook,
	}
}
