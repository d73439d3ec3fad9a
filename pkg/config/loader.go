package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// LeadrouterYAMLConfig represents the complete leadrouter.yaml file structure
type LeadrouterYAMLConfig struct {
	Server     *ServerYAMLConfig       `yaml:"server"`
	CRM        *CRMYAMLConfig          `yaml:"crm"`
	LLM        *LLMYAMLConfig          `yaml:"llm"`
	Checkpoint *CheckpointYAMLConfig   `yaml:"checkpoint"`
	Queue      *QueueYAMLConfig        `yaml:"queue"`
	Retention  *RetentionYAMLConfig    `yaml:"retention"`
	Slack      *SlackYAMLConfig        `yaml:"slack"`
	Agents     map[string]AgentProfile `yaml:"agents"`
}

// ServerYAMLConfig holds HTTP server settings from YAML.
type ServerYAMLConfig struct {
	Host            string `yaml:"host,omitempty"`
	Port            int    `yaml:"port,omitempty"`
	WebhookTokenEnv string `yaml:"webhook_token_env,omitempty"`
	ReadTimeout     string `yaml:"read_timeout,omitempty"`  // Parsed to time.Duration
	WriteTimeout    string `yaml:"write_timeout,omitempty"` // Parsed to time.Duration
}

// CRMYAMLConfig holds CRM API client settings from YAML.
type CRMYAMLConfig struct {
	BaseURL        string  `yaml:"base_url,omitempty"`
	APIKeyEnv      string  `yaml:"api_key_env,omitempty"`
	ConnectTimeout string  `yaml:"connect_timeout,omitempty"`
	RequestTimeout string  `yaml:"request_timeout,omitempty"`
	MaxAttempts    int     `yaml:"max_attempts,omitempty"`
	RateLimit      float64 `yaml:"rate_limit,omitempty"`
	RateBurst      int     `yaml:"rate_burst,omitempty"`
	LocationID     string  `yaml:"location_id,omitempty"`
	CalendarID     string  `yaml:"calendar_id,omitempty"`
	AssignedUserID string  `yaml:"assigned_user_id,omitempty"`
}

// LLMYAMLConfig holds LLM generation settings from YAML.
type LLMYAMLConfig struct {
	Model     string `yaml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
}

// CheckpointYAMLConfig holds checkpoint storage settings from YAML.
type CheckpointYAMLConfig struct {
	Backend          string `yaml:"backend,omitempty"`
	RedisAddr        string `yaml:"redis_addr,omitempty"`
	RedisDB          int    `yaml:"redis_db,omitempty"`
	RedisPasswordEnv string `yaml:"redis_password_env,omitempty"`
	TTL              string `yaml:"ttl,omitempty"`
}

// QueueYAMLConfig holds worker pool settings from YAML.
type QueueYAMLConfig struct {
	WorkerCount             int    `yaml:"worker_count,omitempty"`
	MaxQueuedTurns          int    `yaml:"max_queued_turns,omitempty"`
	TurnTimeout             string `yaml:"turn_timeout,omitempty"`
	GracefulShutdownTimeout string `yaml:"graceful_shutdown_timeout,omitempty"`
	HeartbeatInterval       string `yaml:"heartbeat_interval,omitempty"`
	HeartbeatJitter         string `yaml:"heartbeat_jitter,omitempty"`
}

// RetentionYAMLConfig holds retention sweep settings from YAML.
type RetentionYAMLConfig struct {
	CleanupInterval string `yaml:"cleanup_interval,omitempty"`
	CleanupTimeout  string `yaml:"cleanup_timeout,omitempty"`
}

// SlackYAMLConfig holds Slack notification settings from YAML.
type SlackYAMLConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load leadrouter.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined agent profiles
//  5. Apply default values for unset sections
//  6. Validate all configuration
//  7. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	// 1. Load configuration files
	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Validate all configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"profiles", stats.Profiles,
		"workers", stats.Workers,
		"checkpoint_backend", stats.CheckpointBackend)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{
		configDir: configDir,
	}

	// 1. Load leadrouter.yaml
	yamlConfig, err := loader.loadLeadrouterYAML()
	if err != nil {
		return nil, NewLoadError("leadrouter.yaml", err)
	}

	// 2. Get built-in configuration
	builtin := GetBuiltinConfig()

	// 3. Merge built-in + user-defined profiles (user overrides built-in)
	profiles := mergeProfiles(builtin.Profiles, yamlConfig.Agents)
	profileRegistry := NewProfileRegistry(profiles)

	// 4. Resolve queue config (merge user YAML with built-in defaults)
	// Start with defaults, then merge user config on top to preserve unset defaults
	queueConfig := DefaultQueueConfig()
	if yamlConfig.Queue != nil {
		override := &QueueConfig{
			WorkerCount:             yamlConfig.Queue.WorkerCount,
			MaxQueuedTurns:          yamlConfig.Queue.MaxQueuedTurns,
			TurnTimeout:             resolveDuration("queue.turn_timeout", yamlConfig.Queue.TurnTimeout, 0),
			GracefulShutdownTimeout: resolveDuration("queue.graceful_shutdown_timeout", yamlConfig.Queue.GracefulShutdownTimeout, 0),
			HeartbeatInterval:       resolveDuration("queue.heartbeat_interval", yamlConfig.Queue.HeartbeatInterval, 0),
			HeartbeatJitter:         resolveDuration("queue.heartbeat_jitter", yamlConfig.Queue.HeartbeatJitter, 0),
		}
		// Merge user-provided config into defaults (non-zero values override)
		if err := mergo.Merge(queueConfig, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	// 5. Resolve remaining sections, applying defaults for unset values
	serverCfg := resolveServerConfig(yamlConfig.Server)
	crmCfg := resolveCRMConfig(yamlConfig.CRM)
	llmCfg := resolveLLMConfig(yamlConfig.LLM)
	checkpointCfg := resolveCheckpointConfig(yamlConfig.Checkpoint)
	retentionCfg := resolveRetentionConfig(yamlConfig.Retention)
	slackCfg := resolveSlackConfig(yamlConfig.Slack)

	return &Config{
		configDir:  configDir,
		Server:     serverCfg,
		CRM:        crmCfg,
		LLM:        llmCfg,
		Checkpoint: checkpointCfg,
		Queue:      queueConfig,
		Retention:  retentionCfg,
		Slack:      slackCfg,
		Profiles:   profileRegistry,
	}, nil
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using {{.VAR}} template syntax
	// Note: ExpandEnv passes through original data on parse/execution errors,
	// allowing YAML parser to handle the content (or fail with clearer error message)
	data = ExpandEnv(data)

	// Parse YAML
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadLeadrouterYAML() (*LeadrouterYAMLConfig, error) {
	var config LeadrouterYAMLConfig

	// Initialize map to avoid nil map
	config.Agents = make(map[string]AgentProfile)

	if err := l.loadYAML("leadrouter.yaml", &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// mergeProfiles overlays user-defined profiles on the built-in set.
// A user profile replaces the built-in one for the same role wholesale.
func mergeProfiles(builtin map[string]AgentProfile, user map[string]AgentProfile) map[string]*AgentProfile {
	merged := make(map[string]*AgentProfile, len(builtin)+len(user))
	for role, profile := range builtin {
		p := profile
		merged[role] = &p
	}
	for role, profile := range user {
		p := profile
		merged[role] = &p
	}
	return merged
}

// resolveServerConfig resolves server configuration from YAML, applying defaults.
func resolveServerConfig(s *ServerYAMLConfig) *ServerConfig {
	cfg := DefaultServerConfig()
	if s == nil {
		return cfg
	}

	if s.Host != "" {
		cfg.Host = s.Host
	}
	if s.Port != 0 {
		cfg.Port = s.Port
	}
	if s.WebhookTokenEnv != "" {
		cfg.WebhookTokenEnv = s.WebhookTokenEnv
	}
	cfg.ReadTimeout = resolveDuration("server.read_timeout", s.ReadTimeout, cfg.ReadTimeout)
	cfg.WriteTimeout = resolveDuration("server.write_timeout", s.WriteTimeout, cfg.WriteTimeout)

	return cfg
}

// resolveCRMConfig resolves CRM client configuration from YAML, applying defaults.
func resolveCRMConfig(c *CRMYAMLConfig) *CRMConfig {
	cfg := DefaultCRMConfig()
	if c == nil {
		return cfg
	}

	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.APIKeyEnv != "" {
		cfg.APIKeyEnv = c.APIKeyEnv
	}
	if c.MaxAttempts > 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	if c.RateLimit > 0 {
		cfg.RateLimit = c.RateLimit
	}
	if c.RateBurst > 0 {
		cfg.RateBurst = c.RateBurst
	}
	if c.LocationID != "" {
		cfg.LocationID = c.LocationID
	}
	if c.CalendarID != "" {
		cfg.CalendarID = c.CalendarID
	}
	if c.AssignedUserID != "" {
		cfg.AssignedUserID = c.AssignedUserID
	}
	cfg.ConnectTimeout = resolveDuration("crm.connect_timeout", c.ConnectTimeout, cfg.ConnectTimeout)
	cfg.RequestTimeout = resolveDuration("crm.request_timeout", c.RequestTimeout, cfg.RequestTimeout)

	return cfg
}

// resolveLLMConfig resolves LLM configuration from YAML, applying defaults.
func resolveLLMConfig(l *LLMYAMLConfig) *LLMConfig {
	cfg := DefaultLLMConfig()
	if l == nil {
		return cfg
	}

	if l.Model != "" {
		cfg.Model = l.Model
	}
	if l.APIKeyEnv != "" {
		cfg.APIKeyEnv = l.APIKeyEnv
	}
	if l.MaxTokens > 0 {
		cfg.MaxTokens = l.MaxTokens
	}
	cfg.Timeout = resolveDuration("llm.timeout", l.Timeout, cfg.Timeout)

	return cfg
}

// resolveCheckpointConfig resolves checkpoint configuration from YAML, applying defaults.
func resolveCheckpointConfig(c *CheckpointYAMLConfig) *CheckpointConfig {
	cfg := DefaultCheckpointConfig()
	if c == nil {
		return cfg
	}

	if c.Backend != "" {
		cfg.Backend = CheckpointBackend(c.Backend)
	}
	if c.RedisAddr != "" {
		cfg.RedisAddr = c.RedisAddr
	}
	if c.RedisDB != 0 {
		cfg.RedisDB = c.RedisDB
	}
	if c.RedisPasswordEnv != "" {
		cfg.RedisPasswordEnv = c.RedisPasswordEnv
	}
	cfg.TTL = resolveDuration("checkpoint.ttl", c.TTL, cfg.TTL)

	return cfg
}

// resolveRetentionConfig resolves retention configuration from YAML, applying defaults.
func resolveRetentionConfig(r *RetentionYAMLConfig) *RetentionConfig {
	cfg := DefaultRetentionConfig()
	if r == nil {
		return cfg
	}

	cfg.CleanupInterval = resolveDuration("retention.cleanup_interval", r.CleanupInterval, cfg.CleanupInterval)
	cfg.CleanupTimeout = resolveDuration("retention.cleanup_timeout", r.CleanupTimeout, cfg.CleanupTimeout)

	return cfg
}

// resolveSlackConfig resolves Slack configuration from YAML, applying defaults.
func resolveSlackConfig(s *SlackYAMLConfig) *SlackConfig {
	cfg := &SlackConfig{
		Enabled:  false,
		TokenEnv: "SLACK_BOT_TOKEN",
	}

	if s == nil {
		return cfg
	}

	if s.Enabled != nil {
		cfg.Enabled = *s.Enabled
	}
	if s.TokenEnv != "" {
		cfg.TokenEnv = s.TokenEnv
	}
	if s.Channel != "" {
		cfg.Channel = s.Channel
	}

	return cfg
}

// resolveDuration parses a duration string, falling back to the default
// (and logging a warning) when the value is absent or malformed.
func resolveDuration(field, value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in config, using default",
			"field", field,
			"value", value,
			"default", def,
			"error", err)
		return def
	}
	return d
}
