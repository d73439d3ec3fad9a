package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nivelo-ai/leadrouter/pkg/config"
)

// MessagesClient is the subset of the Anthropic SDK the generator calls. It
// is satisfied by *sdk.MessageService, so tests can substitute a mock.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client implements Generator on top of the Anthropic Messages API.
type Client struct {
	msg       MessagesClient
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewClient builds the production generator from configuration. The API key
// is read from the env var named by the config, never stored in config files.
func NewClient(cfg *config.LLMConfig, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required (set %s)", cfg.APIKeyEnv)
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewClientWithMessages(&ac.Messages, cfg)
}

// NewClientWithMessages wires an explicit Messages client, for tests.
func NewClientWithMessages(msg MessagesClient, cfg *config.LLMConfig) (*Client, error) {
	if msg == nil {
		return nil, errors.New("messages client is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model identifier is required")
	}
	return &Client{
		msg:       msg,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    slog.Default().With("component", "llm"),
	}, nil
}

// Generate issues one Messages.New call and returns the concatenated text
// blocks of the reply.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if len(req.Turns) == 0 {
		return "", errors.New("generation request has no turns")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  encodeTurns(req.Turns),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", errors.New("anthropic returned an empty reply")
	}
	c.logger.Debug("Generated reply", "model", c.model, "chars", len(reply))
	return reply, nil
}

func encodeTurns(turns []Turn) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := sdk.NewTextBlock(t.Content)
		if t.Role == RoleAssistant {
			out = append(out, sdk.NewAssistantMessage(block))
		} else {
			out = append(out, sdk.NewUserMessage(block))
		}
	}
	return out
}

func isRateLimited(err error) bool {
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
