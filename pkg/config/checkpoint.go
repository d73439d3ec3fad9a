package config

import "time"

// CheckpointBackend selects the conversation state store implementation.
type CheckpointBackend string

const (
	CheckpointBackendMemory   CheckpointBackend = "memory"
	CheckpointBackendRedis    CheckpointBackend = "redis"
	CheckpointBackendPostgres CheckpointBackend = "postgres"
)

// IsValid reports whether the backend is a known value.
func (b CheckpointBackend) IsValid() bool {
	switch b {
	case CheckpointBackendMemory, CheckpointBackendRedis, CheckpointBackendPostgres:
		return true
	}
	return false
}

// CheckpointConfig holds resolved conversation checkpoint storage configuration.
// Postgres connection parameters come from DB_* environment variables, not YAML.
type CheckpointConfig struct {
	// Backend selects the store implementation (default: memory).
	Backend CheckpointBackend

	// RedisAddr is the host:port of the Redis server (redis backend only).
	RedisAddr string

	// RedisDB is the Redis logical database number.
	RedisDB int

	// RedisPasswordEnv is the env var name holding the Redis password.
	RedisPasswordEnv string

	// TTL is how long an idle conversation state is kept before expiry.
	// Zero means keep forever.
	TTL time.Duration
}

// DefaultCheckpointConfig returns the built-in checkpoint defaults.
func DefaultCheckpointConfig() *CheckpointConfig {
	return &CheckpointConfig{
		Backend:          CheckpointBackendMemory,
		RedisAddr:        "localhost:6379",
		RedisPasswordEnv: "REDIS_PASSWORD",
		TTL:              30 * 24 * time.Hour,
	}
}
