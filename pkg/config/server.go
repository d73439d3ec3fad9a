package config

import "time"

// ServerConfig holds resolved HTTP server configuration.
type ServerConfig struct {
	// Host is the listen address (default: "0.0.0.0").
	Host string

	// Port is the listen port (default: 8080).
	Port int

	// WebhookTokenEnv is the env var name holding the shared secret the CRM
	// sends in X-Webhook-Token. Empty token disables verification.
	WebhookTokenEnv string

	// ReadTimeout bounds how long reading a request may take.
	ReadTimeout time.Duration

	// WriteTimeout bounds how long writing a response may take.
	WriteTimeout time.Duration
}

// DefaultServerConfig returns the built-in server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		WebhookTokenEnv: "WEBHOOK_TOKEN",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
	}
}
