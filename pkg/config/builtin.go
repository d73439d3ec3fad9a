package config

import "sync"

// BuiltinConfig holds all built-in configuration data.
// This provides default agent profiles for the three specialist roles.
type BuiltinConfig struct {
	Profiles map[string]AgentProfile
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration (thread-safe, lazy-initialized)
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		Profiles: initBuiltinProfiles(),
	}
}

func initBuiltinProfiles() map[string]AgentProfile {
	warm := 0.7
	return map[string]AgentProfile{
		"A": {
			Description: "Discovery agent for cold leads: builds rapport, learns name and business",
			Temperature: &warm,
		},
		"B": {
			Description: "Qualification agent for warm leads: surfaces goals and budget fit",
			Temperature: &warm,
		},
		"C": {
			Description: "Closing agent for hot leads: books appointments and confirms times",
			Temperature: &warm,
		},
	}
}
