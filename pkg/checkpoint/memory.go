package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// MemoryStore keeps conversation state in process memory. It is the default
// backend for development and tests. State is deep-copied in and out so
// callers cannot alias what is stored.
type MemoryStore struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	entries map[string]*memoryEntry
}

type memoryEntry struct {
	state     *models.ConversationState
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an in-memory store. ttl of zero keeps state forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*memoryEntry),
	}
}

// Load implements Store. Expired entries are treated as absent.
func (s *MemoryStore) Load(_ context.Context, threadID string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	return entry.state.Clone(), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, threadID string, state *models.ConversationState) error {
	entry := &memoryEntry{state: state.Clone()}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[threadID] = entry
	return nil
}

// Health implements Store. Memory is always reachable.
func (s *MemoryStore) Health(_ context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// SweepExpired implements Sweeper: it evicts entries past their expiry.
func (s *MemoryStore) SweepExpired(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for threadID, entry := range s.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.entries, threadID)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored threads, expired entries included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
