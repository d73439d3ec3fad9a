package config

import "time"

// RetentionConfig controls checkpoint retention and cleanup behavior.
type RetentionConfig struct {
	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration

	// CleanupTimeout bounds a single cleanup sweep.
	CleanupTimeout time.Duration
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		CleanupInterval: 12 * time.Hour,
		CleanupTimeout:  1 * time.Minute,
	}
}
