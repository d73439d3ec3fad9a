package config

import (
	"fmt"
	"sync"
)

// AgentProfile defines per-role generation settings for a specialist agent.
// The role's base behavior is built in; profiles tune or extend it.
type AgentProfile struct {
	// Human-readable description
	Description string `yaml:"description,omitempty"`

	// Custom instructions appended to the built-in role prompt
	CustomInstructions string `yaml:"custom_instructions,omitempty"`

	// Temperature for this role's generations (nil = provider default)
	Temperature *float64 `yaml:"temperature,omitempty"`

	// MaxTokens override for this role (nil = LLM config default)
	MaxTokens *int `yaml:"max_tokens,omitempty"`
}

// ProfileRegistry stores agent profiles in memory with thread-safe access
type ProfileRegistry struct {
	profiles map[string]*AgentProfile
	mu       sync.RWMutex
}

// NewProfileRegistry creates a new profile registry
func NewProfileRegistry(profiles map[string]*AgentProfile) *ProfileRegistry {
	// Defensive copy to prevent external mutation
	copied := make(map[string]*AgentProfile, len(profiles))
	for k, v := range profiles {
		copied[k] = v
	}
	return &ProfileRegistry{
		profiles: copied,
	}
}

// Get retrieves an agent profile by role name (thread-safe)
func (r *ProfileRegistry) Get(role string) (*AgentProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, exists := r.profiles[role]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, role)
	}
	return profile, nil
}

// GetAll returns all agent profiles (thread-safe, returns copy)
func (r *ProfileRegistry) GetAll() map[string]*AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*AgentProfile, len(r.profiles))
	for k, v := range r.profiles {
		result[k] = v
	}
	return result
}

// Has checks if a profile exists in the registry (thread-safe)
func (r *ProfileRegistry) Has(role string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.profiles[role]
	return exists
}

// Len returns the number of profiles in the registry (thread-safe)
func (r *ProfileRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}
