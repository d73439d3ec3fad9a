package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, "leadrouter.yaml"), []byte(content), 0644)
	require.NoError(t, err)
}

func TestInitialize(t *testing.T) {
	configDir := t.TempDir()
	writeConfigFile(t, configDir, `
crm:
  base_url: "https://crm.example.com"
  api_key_env: "CRM_API_KEY"

llm:
  model: "claude-sonnet-4-5"

queue:
  worker_count: 2
`)

	ctx := context.Background()
	cfg, err := Initialize(ctx, configDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify all sections are populated
	assert.NotNil(t, cfg.Server)
	assert.NotNil(t, cfg.CRM)
	assert.NotNil(t, cfg.LLM)
	assert.NotNil(t, cfg.Checkpoint)
	assert.NotNil(t, cfg.Queue)
	assert.NotNil(t, cfg.Retention)
	assert.NotNil(t, cfg.Slack)
	assert.NotNil(t, cfg.Profiles)

	// Verify built-in profiles are loaded
	assert.True(t, cfg.Profiles.Has("A"))
	assert.True(t, cfg.Profiles.Has("B"))
	assert.True(t, cfg.Profiles.Has("C"))

	// User YAML overrides
	assert.Equal(t, "https://crm.example.com", cfg.CRM.BaseURL)
	assert.Equal(t, 2, cfg.Queue.WorkerCount)

	// Unset fields keep built-in defaults
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.CRM.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Queue.TurnTimeout)
	assert.Equal(t, CheckpointBackendMemory, cfg.Checkpoint.Backend)

	stats := cfg.Stats()
	assert.Equal(t, 3, stats.Profiles)
	assert.Equal(t, 2, stats.Workers)
	assert.Equal(t, "memory", stats.CheckpointBackend)
}

func TestInitializeConfigNotFound(t *testing.T) {
	ctx := context.Background()
	_, err := Initialize(ctx, "/nonexistent/directory")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestInitializeInvalidYAML(t *testing.T) {
	configDir := t.TempDir()
	writeConfigFile(t, configDir, "queue: [not, a, mapping")

	ctx := context.Background()
	_, err := Initialize(ctx, configDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestInitializeValidationFailure(t *testing.T) {
	configDir := t.TempDir()
	writeConfigFile(t, configDir, `
agents:
  supervisor:
    description: "not a routable role"
`)

	ctx := context.Background()
	_, err := Initialize(ctx, configDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "supervisor")
}

func TestInitializeExpandsEnvironment(t *testing.T) {
	configDir := t.TempDir()
	writeConfigFile(t, configDir, `
checkpoint:
  backend: redis
  redis_addr: "{{.TEST_REDIS_HOST}}:6379"
`)
	t.Setenv("TEST_REDIS_HOST", "cache.internal")

	ctx := context.Background()
	cfg, err := Initialize(ctx, configDir)

	require.NoError(t, err)
	assert.Equal(t, CheckpointBackendRedis, cfg.Checkpoint.Backend)
	assert.Equal(t, "cache.internal:6379", cfg.Checkpoint.RedisAddr)
}

func TestQueueConfigMergePreservesDefaults(t *testing.T) {
	configDir := t.TempDir()
	writeConfigFile(t, configDir, `
queue:
  worker_count: 8
  turn_timeout: 90s
`)

	ctx := context.Background()
	cfg, err := Initialize(ctx, configDir)

	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Queue.WorkerCount)
	assert.Equal(t, 90*time.Second, cfg.Queue.TurnTimeout)
	// Unset queue fields keep defaults
	assert.Equal(t, 1024, cfg.Queue.MaxQueuedTurns)
	assert.Equal(t, 30*time.Second, cfg.Queue.HeartbeatInterval)
}

func TestProfileOverride(t *testing.T) {
	configDir := t.TempDir()
	writeConfigFile(t, configDir, `
agents:
  C:
    description: "closer with custom script"
    custom_instructions: "Ofrece siempre el plan de $300."
    temperature: 0.4
`)

	ctx := context.Background()
	cfg, err := Initialize(ctx, configDir)
	require.NoError(t, err)

	profile, err := cfg.GetProfile("C")
	require.NoError(t, err)
	assert.Equal(t, "closer with custom script", profile.Description)
	assert.Contains(t, profile.CustomInstructions, "$300")
	require.NotNil(t, profile.Temperature)
	assert.InDelta(t, 0.4, *profile.Temperature, 0.001)

	// Built-ins for the other roles untouched
	a, err := cfg.GetProfile("A")
	require.NoError(t, err)
	assert.Empty(t, a.CustomInstructions)

	_, err = cfg.GetProfile("Z")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestResolveDuration(t *testing.T) {
	def := 5 * time.Second

	assert.Equal(t, def, resolveDuration("f", "", def))
	assert.Equal(t, 2*time.Minute, resolveDuration("f", "2m", def))
	assert.Equal(t, def, resolveDuration("f", "not-a-duration", def))
}
