// Package llm generates conversational replies through the Anthropic Messages
// API. The rest of the system talks to the Generator interface so tests can
// script responses without network access.
package llm

import (
	"context"
	"errors"
)

// ErrRateLimited marks provider throttling. Callers treat it as transient.
var ErrRateLimited = errors.New("llm: rate limited")

// Role of a conversation turn sent to the provider.
type Role string

// Turn roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior conversation entry in a generation request.
type Turn struct {
	Role    Role
	Content string
}

// Request is a single generation call.
type Request struct {
	// System is the full system prompt, including any folded-in history.
	System string

	// Turns is the conversation sent as provider messages. It must end with a
	// user turn.
	Turns []Turn

	// MaxTokens caps the reply. Zero uses the client's configured default.
	MaxTokens int

	// Temperature applies when > 0.
	Temperature float64
}

// Generator produces one text reply per request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
