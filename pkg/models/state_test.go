package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveThreadID(t *testing.T) {
	assert.Equal(t, "conv-42", DeriveThreadID("42", "c1"))
	assert.Equal(t, "contact-c1", DeriveThreadID("", "c1"))
}

func TestCategoryForScore(t *testing.T) {
	tests := []struct {
		score int
		want  LeadCategory
	}{
		{0, CategoryCold},
		{4, CategoryCold},
		{5, CategoryWarm},
		{7, CategoryWarm},
		{8, CategoryHot},
		{10, CategoryHot},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryForScore(tt.score), "score %d", tt.score)
	}
}

func TestSuggestedAgentForScore(t *testing.T) {
	assert.Equal(t, AgentDiscovery, SuggestedAgentForScore(3))
	assert.Equal(t, AgentQualifier, SuggestedAgentForScore(6))
	assert.Equal(t, AgentCloser, SuggestedAgentForScore(9))
}

func TestNormalizeContent(t *testing.T) {
	assert.Equal(t, "hola que tal", NormalizeContent("  Hola   que\ttal "))
	assert.Equal(t, "hola", NormalizeContent(" HOLA \n"))
	assert.Equal(t, "", NormalizeContent("   "))
}

func TestMessageDedupKey(t *testing.T) {
	a := Message{Role: RoleCustomer, Content: " Hola ", CRMMessageID: "m7"}
	b := Message{Role: RoleCustomer, Content: "hola", CRMMessageID: "m7"}
	c := Message{Role: RoleAgent, Content: "hola", CRMMessageID: "m7"}

	assert.Equal(t, a.DedupKey(), b.DedupKey())
	assert.NotEqual(t, a.DedupKey(), c.DedupKey())
}

func TestConversationStateClone(t *testing.T) {
	ts := time.Now()
	s := NewConversationState("contact-c1", "c1", "", "loc1")
	s.Messages = append(s.Messages, Message{Role: RoleCustomer, Content: "hola", Timestamp: &ts, Origin: OriginWebhook})
	s.ExtractedData[FieldName] = "Diego"
	s.ScoreHistory = append(s.ScoreHistory, ScoreEntry{Score: 4, PreviousScore: 0, Timestamp: ts})
	s.WebhookData = map[string]any{"source": "ads"}

	clone := s.Clone()
	require.NotNil(t, clone)

	clone.Messages[0].Content = "changed"
	*clone.Messages[0].Timestamp = ts.Add(time.Hour)
	clone.ExtractedData[FieldName] = "Ana"
	clone.ScoreHistory[0].Score = 9
	clone.WebhookData["source"] = "organic"

	assert.Equal(t, "hola", s.Messages[0].Content)
	assert.Equal(t, ts.Unix(), s.Messages[0].Timestamp.Unix())
	assert.Equal(t, "Diego", s.ExtractedData[FieldName])
	assert.Equal(t, 4, s.ScoreHistory[0].Score)
	assert.Equal(t, "ads", s.WebhookData["source"])
}

func TestLastMessagesAndFields(t *testing.T) {
	s := NewConversationState("contact-c1", "c1", "", "")
	assert.Nil(t, s.LastCustomerMessage())
	assert.Nil(t, s.LastAgentMessage())

	s.Messages = []Message{
		{Role: RoleCustomer, Content: "hola"},
		{Role: RoleAgent, AgentName: AgentDiscovery, Content: "buenas"},
		{Role: RoleCustomer, Content: "tengo un restaurante"},
	}
	require.NotNil(t, s.LastCustomerMessage())
	assert.Equal(t, "tengo un restaurante", s.LastCustomerMessage().Content)
	require.NotNil(t, s.LastAgentMessage())
	assert.Equal(t, "buenas", s.LastAgentMessage().Content)

	assert.False(t, s.HasField(FieldBudget))
	s.ExtractedData[FieldBudget] = "300+"
	v, ok := s.Field(FieldBudget)
	assert.True(t, ok)
	assert.Equal(t, "300+", v)
}
