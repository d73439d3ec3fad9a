package responder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivelo-ai/leadrouter/pkg/crm"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, _ string, body string, _ crm.Channel) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, body)
	return "m1", nil
}

func newTestResponder(sender Sender) (*Responder, *[]time.Duration) {
	r := New(sender)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func turnWithReply(content string) *models.Turn {
	state := models.NewConversationState("conv-1", "c1", "1", "loc")
	state.Messages = []models.Message{
		{Role: models.RoleCustomer, Content: "hola", Origin: models.OriginWebhook},
		{Role: models.RoleAgent, AgentName: models.AgentDiscovery, Content: content, Origin: models.OriginSpecialist},
	}
	return &models.Turn{TurnID: "t1", ThreadID: state.ThreadID, State: state, ReplyFrom: models.AgentDiscovery}
}

func TestRespondSendsNewestSpecialistMessage(t *testing.T) {
	sender := &fakeSender{}
	r, slept := newTestResponder(sender)
	turn := turnWithReply("¿Cómo se llama su negocio?")

	require.NoError(t, r.Respond(context.Background(), turn))

	assert.Equal(t, []string{"¿Cómo se llama su negocio?"}, sender.sent)
	assert.True(t, turn.MessageSent)
	assert.Equal(t, "¿Cómo se llama su negocio?", turn.State.LastSentMessage)
	require.Len(t, *slept, 1)
}

func TestRespondNoSpecialistMessage(t *testing.T) {
	sender := &fakeSender{}
	r, slept := newTestResponder(sender)
	state := models.NewConversationState("conv-1", "c1", "1", "loc")
	state.Messages = []models.Message{{Role: models.RoleCustomer, Content: "hola"}}
	turn := &models.Turn{TurnID: "t1", ThreadID: state.ThreadID, State: state}

	require.NoError(t, r.Respond(context.Background(), turn))
	assert.Empty(t, sender.sent)
	assert.False(t, turn.MessageSent)
	assert.Empty(t, *slept)
}

func TestRespondSuppressesDuplicate(t *testing.T) {
	sender := &fakeSender{}
	r, _ := newTestResponder(sender)
	turn := turnWithReply("misma respuesta")
	turn.State.LastSentMessage = "misma respuesta"

	require.NoError(t, r.Respond(context.Background(), turn))
	assert.Empty(t, sender.sent)
	assert.False(t, turn.MessageSent)
	assert.True(t, turn.DuplicateSuppressed)
}

func TestRespondSplitsOnBlankLines(t *testing.T) {
	sender := &fakeSender{}
	r, slept := newTestResponder(sender)
	turn := turnWithReply("Primera parte.\n\nSegunda parte.")

	require.NoError(t, r.Respond(context.Background(), turn))

	assert.Equal(t, []string{"Primera parte.", "Segunda parte."}, sender.sent)
	require.Len(t, *slept, 2)
	d := (*slept)[0]
	assert.Equal(t, time.Duration(float64(d)*interPartFactor), (*slept)[1])
	assert.Equal(t, "Primera parte.\n\nSegunda parte.", turn.State.LastSentMessage)
}

func TestRespondSendFailureIsRecordedNotReturned(t *testing.T) {
	sender := &fakeSender{err: errors.New("crm down")}
	r, _ := newTestResponder(sender)
	turn := turnWithReply("hola")

	require.NoError(t, r.Respond(context.Background(), turn))
	assert.False(t, turn.MessageSent)
	assert.True(t, turn.SendFailed)
	assert.Empty(t, turn.State.LastSentMessage)
}

func TestDelay(t *testing.T) {
	// 70 chars at 35 chars/s is 2s typing + 0.8s thinking.
	assert.Equal(t, thinkingBase+2*time.Second, Delay(repeat('a', 70)))
	assert.Equal(t, thinkingBase+2*time.Second+questionBonus, Delay(repeat('a', 69)+"?"))

	assert.Equal(t, minDelay, Delay("ok"), "short replies hit the floor")
	assert.Equal(t, maxDelay, Delay(longWordy()), "long replies hit the ceiling")
}

func longWordy() string {
	out := ""
	for i := 0; i < 30; i++ {
		out += "palabra "
	}
	return out
}

func TestSplitParts(t *testing.T) {
	assert.Equal(t, []string{"uno"}, SplitParts("uno"))
	assert.Equal(t, []string{"uno", "dos"}, SplitParts("uno\n\ndos"))
	assert.Equal(t, []string{"uno", "dos"}, SplitParts("uno\n \n\ndos\n\n"))
}

func repeat(c byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
