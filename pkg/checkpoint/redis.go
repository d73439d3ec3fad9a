package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// redisKeyPrefix namespaces thread state keys in a shared Redis instance.
const redisKeyPrefix = "leadrouter:thread:"

// RedisStore persists conversation state as JSON values in Redis.
// TTL, when configured, is delegated to Redis key expiry; the retention
// sweeper has nothing to do for this backend.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// NewRedisStoreWithClient wraps an existing Redis client. Useful for tests
// with miniredis.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, threadID string) (*models.ConversationState, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+threadID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load thread %s from redis: %w", threadID, err)
	}

	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode thread %s state: %w", threadID, err)
	}
	return &state, nil
}

// Save implements Store. SET is atomic with respect to concurrent readers.
func (s *RedisStore) Save(ctx context.Context, threadID string, state *models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode thread %s state: %w", threadID, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+threadID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save thread %s to redis: %w", threadID, err)
	}
	return nil
}

// Health implements Store.
func (s *RedisStore) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
