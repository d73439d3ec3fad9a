package config

import "time"

// QueueConfig contains queue and worker pool configuration.
// These values control how webhook turns are queued, claimed, and processed.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines.
	// Each worker independently claims and processes turns.
	WorkerCount int

	// MaxQueuedTurns bounds the total number of turns waiting across all
	// threads. Enqueue beyond this returns an error and the webhook is
	// answered with 503.
	MaxQueuedTurns int

	// TurnTimeout is the maximum time a single turn can be processed.
	TurnTimeout time.Duration

	// GracefulShutdownTimeout is the max time to wait for active turns
	// to complete during shutdown. Should match TurnTimeout.
	GracefulShutdownTimeout time.Duration

	// HeartbeatInterval is the base interval for the idle activity log.
	HeartbeatInterval time.Duration

	// HeartbeatJitter is the random jitter added to HeartbeatInterval.
	// Actual interval: HeartbeatInterval ± HeartbeatJitter.
	HeartbeatJitter time.Duration
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             4,
		MaxQueuedTurns:          1024,
		TurnTimeout:             60 * time.Second,
		GracefulShutdownTimeout: 60 * time.Second,
		HeartbeatInterval:       30 * time.Second,
		HeartbeatJitter:         5 * time.Second,
	}
}
