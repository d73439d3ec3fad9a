package config

import "time"

// LLMConfig holds resolved LLM generation configuration.
// All specialist replies route through a single Anthropic model; per-role
// temperature and instruction overrides live in agent profiles.
type LLMConfig struct {
	// Model is the Anthropic model identifier.
	Model string

	// APIKeyEnv is the env var name holding the Anthropic API key.
	APIKeyEnv string

	// MaxTokens caps the reply length per generation.
	MaxTokens int

	// Timeout is the soft deadline for a single generation call.
	Timeout time.Duration
}

// DefaultLLMConfig returns the built-in LLM defaults.
func DefaultLLMConfig() *LLMConfig {
	return &LLMConfig{
		Model:     "claude-sonnet-4-5",
		APIKeyEnv: "ANTHROPIC_API_KEY",
		MaxTokens: 1024,
		Timeout:   30 * time.Second,
	}
}
