// Package config provides configuration management for the leadrouter system,
// including server, CRM, LLM, checkpoint, queue, and agent profile configurations.
package config

// Config is the umbrella configuration object returned by Initialize()
// and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// HTTP server settings
	Server *ServerConfig

	// CRM API client settings
	CRM *CRMConfig

	// LLM generation settings
	LLM *LLMConfig

	// Conversation checkpoint storage settings
	Checkpoint *CheckpointConfig

	// Queue and worker pool configuration
	Queue *QueueConfig

	// Data retention and cleanup configuration
	Retention *RetentionConfig

	// Slack notification settings
	Slack *SlackConfig

	// Agent profile registry (specialists A, B, C)
	Profiles *ProfileRegistry
}

// Initialize is defined in loader.go

// Stats contains statistics about loaded configuration
type Stats struct {
	Profiles          int
	Workers           int
	CheckpointBackend string
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.Profiles != nil {
		s.Profiles = c.Profiles.Len()
	}
	if c.Queue != nil {
		s.Workers = c.Queue.WorkerCount
	}
	if c.Checkpoint != nil {
		s.CheckpointBackend = string(c.Checkpoint.Backend)
	}
	return s
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetProfile retrieves an agent profile by role name.
// This is a convenience method that wraps ProfileRegistry.Get().
func (c *Config) GetProfile(role string) (*AgentProfile, error) {
	return c.Profiles.Get(role)
}
