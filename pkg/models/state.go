package models

import (
	"maps"
	"slices"
	"time"
)

// Extracted-data keys. Values are opaque strings captured from customer text.
const (
	FieldName         = "name"
	FieldBusinessType = "business_type"
	FieldBudget       = "budget"
	FieldGoal         = "goal"
	FieldEmail        = "email"
	FieldPhone        = "phone"
)

// LeadCategory buckets a lead score for routing.
type LeadCategory string

// Lead categories.
const (
	CategoryCold LeadCategory = "cold"
	CategoryWarm LeadCategory = "warm"
	CategoryHot  LeadCategory = "hot"
)

// Score thresholds for lead categories.
const (
	HotScoreThreshold  = 8
	WarmScoreThreshold = 5
	MaxLeadScore       = 10
)

// CategoryForScore maps a lead score to its category:
// hot >= 8, warm 5..7, cold 0..4.
func CategoryForScore(score int) LeadCategory {
	switch {
	case score >= HotScoreThreshold:
		return CategoryHot
	case score >= WarmScoreThreshold:
		return CategoryWarm
	default:
		return CategoryCold
	}
}

// SuggestedAgentForScore returns the specialist role matching a score's
// category: C for hot, B for warm, A for cold.
func SuggestedAgentForScore(score int) AgentName {
	switch CategoryForScore(score) {
	case CategoryHot:
		return AgentCloser
	case CategoryWarm:
		return AgentQualifier
	default:
		return AgentDiscovery
	}
}

// DeriveThreadID returns the stable per-conversation key: conv-<conversation_id>
// when the CRM supplied a conversation id, otherwise contact-<contact_id>.
func DeriveThreadID(conversationID, contactID string) string {
	if conversationID != "" {
		return "conv-" + conversationID
	}
	return "contact-" + contactID
}

// ScoreEntry is one append-only record of a lead score change.
type ScoreEntry struct {
	Score         int       `json:"score"`
	PreviousScore int       `json:"previous_score"`
	Timestamp     time.Time `json:"timestamp"`
	Reason        string    `json:"reason"`
}

// ConversationState is the durable per-thread snapshot written to the
// checkpoint store at the end of every turn. Turn-scoped routing flags live in
// the runtime's turn value, not here.
type ConversationState struct {
	ThreadID       string `json:"thread_id"`
	ContactID      string `json:"contact_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	LocationID     string `json:"location_id,omitempty"`

	Messages      []Message         `json:"messages"`
	ExtractedData map[string]string `json:"extracted_data"`

	// LeadScore is monotonic non-decreasing across turns of the same thread.
	LeadScore    int          `json:"lead_score"`
	ScoreHistory []ScoreEntry `json:"score_history,omitempty"`

	// CurrentAgent is the specialist that produced the last reply. It carries
	// across turns so the supervisor's fallback can keep the customer with the
	// role they were already talking to.
	CurrentAgent AgentName `json:"current_agent,omitempty"`

	// LastSentMessage is the responder's idempotency marker.
	LastSentMessage string `json:"last_sent_message,omitempty"`

	// WebhookData carries unrecognized inbound webhook fields through the turn.
	WebhookData map[string]any `json:"webhook_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationState creates the state for a thread's first inbound message.
func NewConversationState(threadID, contactID, conversationID, locationID string) *ConversationState {
	now := time.Now().UTC()
	return &ConversationState{
		ThreadID:       threadID,
		ContactID:      contactID,
		ConversationID: conversationID,
		LocationID:     locationID,
		ExtractedData:  make(map[string]string),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Category derives the lead category from the current score.
func (s *ConversationState) Category() LeadCategory {
	return CategoryForScore(s.LeadScore)
}

// LastCustomerMessage returns the newest customer message, or nil.
func (s *ConversationState) LastCustomerMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleCustomer {
			return &s.Messages[i]
		}
	}
	return nil
}

// LastAgentMessage returns the newest agent message, or nil. The budget
// confirmation detector uses it to find a prior offer.
func (s *ConversationState) LastAgentMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAgent {
			return &s.Messages[i]
		}
	}
	return nil
}

// Field returns the extracted value for key, and whether it is present and
// non-empty.
func (s *ConversationState) Field(key string) (string, bool) {
	if s.ExtractedData == nil {
		return "", false
	}
	v, ok := s.ExtractedData[key]
	return v, ok && v != ""
}

// HasField reports whether an extracted value exists for key.
func (s *ConversationState) HasField(key string) bool {
	_, ok := s.Field(key)
	return ok
}

// Clone returns a deep copy. Stores hand copies out so callers cannot alias
// persisted state.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = slices.Clone(s.Messages)
	for i, m := range out.Messages {
		if m.Timestamp != nil {
			ts := *m.Timestamp
			out.Messages[i].Timestamp = &ts
		}
	}
	out.ScoreHistory = slices.Clone(s.ScoreHistory)
	if s.ExtractedData != nil {
		out.ExtractedData = maps.Clone(s.ExtractedData)
	}
	if s.WebhookData != nil {
		out.WebhookData = maps.Clone(s.WebhookData)
	}
	return &out
}
