// Package checkpoint persists per-thread conversation state between turns.
// Three backends are provided: in-memory (default), Redis, and Postgres.
package checkpoint

import (
	"context"
	"errors"

	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// ErrNotFound indicates no state exists for the requested thread.
var ErrNotFound = errors.New("conversation state not found")

// Store is the durable per-thread snapshot of conversation state.
//
// After Save returns, a subsequent Load on the same thread returns the saved
// state or a strictly later one. Concurrent turns on the same thread are
// serialized by the graph runtime, so stores need not arbitrate writers.
type Store interface {
	// Load returns the state for threadID, or ErrNotFound.
	Load(ctx context.Context, threadID string) (*models.ConversationState, error)

	// Save atomically replaces the state for threadID.
	Save(ctx context.Context, threadID string, state *models.ConversationState) error

	// Health verifies the backing store is reachable.
	Health(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Sweeper is implemented by stores that need an external expiry pass
// (the retention service calls it; Redis expires natively and does not
// implement it).
type Sweeper interface {
	// SweepExpired deletes expired thread states and returns how many were
	// removed.
	SweepExpired(ctx context.Context) (int, error)
}
