package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivelo-ai/leadrouter/pkg/config"
)

type mockMessages struct {
	lastParams sdk.MessageNewParams
	reply      *sdk.Message
	err        error
}

func (m *mockMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	m.lastParams = body
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

func textReply(parts ...string) *sdk.Message {
	msg := &sdk.Message{}
	for _, p := range parts {
		msg.Content = append(msg.Content, sdk.ContentBlockUnion{Type: "text", Text: p})
	}
	return msg
}

func testLLMConfig() *config.LLMConfig {
	return &config.LLMConfig{Model: "claude-sonnet-4-5", MaxTokens: 512}
}

func TestGenerateBuildsParams(t *testing.T) {
	mock := &mockMessages{reply: textReply("¿Cómo se llama su negocio?")}
	client, err := NewClientWithMessages(mock, testLLMConfig())
	require.NoError(t, err)

	reply, err := client.Generate(context.Background(), Request{
		System:      "Eres un agente de descubrimiento.",
		Turns:       []Turn{{Role: RoleUser, Content: "hola"}},
		Temperature: 0.4,
	})
	require.NoError(t, err)
	assert.Equal(t, "¿Cómo se llama su negocio?", reply)

	assert.Equal(t, sdk.Model("claude-sonnet-4-5"), mock.lastParams.Model)
	assert.Equal(t, int64(512), mock.lastParams.MaxTokens)
	require.Len(t, mock.lastParams.System, 1)
	assert.Equal(t, "Eres un agente de descubrimiento.", mock.lastParams.System[0].Text)
	require.Len(t, mock.lastParams.Messages, 1)
}

func TestGenerateConcatenatesTextBlocks(t *testing.T) {
	mock := &mockMessages{reply: textReply("Hola. ", "¿En qué le ayudo?")}
	client, err := NewClientWithMessages(mock, testLLMConfig())
	require.NoError(t, err)

	reply, err := client.Generate(context.Background(), Request{
		Turns: []Turn{{Role: RoleUser, Content: "hola"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola. ¿En qué le ayudo?", reply)
}

func TestGenerateEmptyReplyIsAnError(t *testing.T) {
	mock := &mockMessages{reply: textReply()}
	client, err := NewClientWithMessages(mock, testLLMConfig())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{
		Turns: []Turn{{Role: RoleUser, Content: "hola"}},
	})
	assert.ErrorContains(t, err, "empty reply")
}

func TestGenerateRequiresTurns(t *testing.T) {
	client, err := NewClientWithMessages(&mockMessages{}, testLLMConfig())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{System: "x"})
	assert.ErrorContains(t, err, "no turns")
}

func TestGenerateClassifiesRateLimit(t *testing.T) {
	mock := &mockMessages{err: &sdk.Error{
		StatusCode: 429,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil),
		Response:   &http.Response{StatusCode: 429, Status: "429 Too Many Requests"},
	}}
	client, err := NewClientWithMessages(mock, testLLMConfig())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{
		Turns: []Turn{{Role: RoleUser, Content: "hola"}},
	})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestGenerateWrapsOtherErrors(t *testing.T) {
	mock := &mockMessages{err: errors.New("boom")}
	client, err := NewClientWithMessages(mock, testLLMConfig())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{
		Turns: []Turn{{Role: RoleUser, Content: "hola"}},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClientWithMessages(nil, testLLMConfig())
	assert.Error(t, err)

	_, err = NewClientWithMessages(&mockMessages{}, &config.LLMConfig{})
	assert.Error(t, err)

	_, err = NewClient(&config.LLMConfig{Model: "m", APIKeyEnv: "ANTHROPIC_API_KEY"}, "")
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestFakeGenerator(t *testing.T) {
	fake := NewFake("primera", "segunda")

	r1, err := fake.Generate(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "a"}}})
	require.NoError(t, err)
	r2, err := fake.Generate(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "b"}}})
	require.NoError(t, err)
	r3, err := fake.Generate(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "c"}}})
	require.NoError(t, err)

	assert.Equal(t, "primera", r1)
	assert.Equal(t, "segunda", r2)
	assert.Equal(t, "segunda", r3, "last scripted reply repeats")
	assert.Len(t, fake.Requests(), 3)
}
