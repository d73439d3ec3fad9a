package config

import (
	"fmt"
	"net/url"
)

// ConfigValidator validates configuration comprehensively with clear error messages
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}

	if err := v.validateCRM(); err != nil {
		return fmt.Errorf("CRM validation failed: %w", err)
	}

	if err := v.validateLLM(); err != nil {
		return fmt.Errorf("LLM validation failed: %w", err)
	}

	if err := v.validateCheckpoint(); err != nil {
		return fmt.Errorf("checkpoint validation failed: %w", err)
	}

	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	if err := v.validateProfiles(); err != nil {
		return fmt.Errorf("agent profile validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validateServer() error {
	s := v.cfg.Server
	if s.Port < 1 || s.Port > 65535 {
		return NewValidationError("server", "http", "port", fmt.Errorf("%w: %d", ErrInvalidValue, s.Port))
	}
	return nil
}

func (v *ConfigValidator) validateCRM() error {
	c := v.cfg.CRM

	if c.BaseURL == "" {
		return NewValidationError("crm", "client", "base_url", ErrMissingRequiredField)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return NewValidationError("crm", "client", "base_url", fmt.Errorf("%w: %s", ErrInvalidValue, c.BaseURL))
	}
	if c.APIKeyEnv == "" {
		return NewValidationError("crm", "client", "api_key_env", ErrMissingRequiredField)
	}
	if c.MaxAttempts < 1 {
		return NewValidationError("crm", "client", "max_attempts", fmt.Errorf("must be at least 1"))
	}
	if c.RateLimit <= 0 {
		return NewValidationError("crm", "client", "rate_limit", fmt.Errorf("must be positive"))
	}
	if c.RateBurst < 1 {
		return NewValidationError("crm", "client", "rate_burst", fmt.Errorf("must be at least 1"))
	}

	return nil
}

func (v *ConfigValidator) validateLLM() error {
	l := v.cfg.LLM

	if l.Model == "" {
		return NewValidationError("llm", "anthropic", "model", ErrMissingRequiredField)
	}
	if l.APIKeyEnv == "" {
		return NewValidationError("llm", "anthropic", "api_key_env", ErrMissingRequiredField)
	}
	if l.MaxTokens < 1 {
		return NewValidationError("llm", "anthropic", "max_tokens", fmt.Errorf("must be at least 1"))
	}

	return nil
}

func (v *ConfigValidator) validateCheckpoint() error {
	c := v.cfg.Checkpoint

	if !c.Backend.IsValid() {
		return NewValidationError("checkpoint", "store", "backend", fmt.Errorf("%w: %s", ErrInvalidValue, c.Backend))
	}
	if c.Backend == CheckpointBackendRedis && c.RedisAddr == "" {
		return NewValidationError("checkpoint", "store", "redis_addr", ErrMissingRequiredField)
	}
	if c.TTL < 0 {
		return NewValidationError("checkpoint", "store", "ttl", fmt.Errorf("must not be negative"))
	}

	return nil
}

func (v *ConfigValidator) validateQueue() error {
	q := v.cfg.Queue

	if q.WorkerCount < 1 {
		return NewValidationError("queue", "pool", "worker_count", fmt.Errorf("must be at least 1"))
	}
	if q.MaxQueuedTurns < 1 {
		return NewValidationError("queue", "pool", "max_queued_turns", fmt.Errorf("must be at least 1"))
	}
	if q.TurnTimeout <= 0 {
		return NewValidationError("queue", "pool", "turn_timeout", fmt.Errorf("must be positive"))
	}

	return nil
}

func (v *ConfigValidator) validateProfiles() error {
	for role, profile := range v.cfg.Profiles.GetAll() {
		// Only the three specialist roles are routable
		switch role {
		case "A", "B", "C":
		default:
			return NewValidationError("profile", role, "", fmt.Errorf("%w: unknown role", ErrInvalidValue))
		}

		if profile.Temperature != nil && (*profile.Temperature < 0 || *profile.Temperature > 1) {
			return NewValidationError("profile", role, "temperature", fmt.Errorf("must be between 0 and 1"))
		}
		if profile.MaxTokens != nil && *profile.MaxTokens < 1 {
			return NewValidationError("profile", role, "max_tokens", fmt.Errorf("must be at least 1"))
		}
	}

	return nil
}
