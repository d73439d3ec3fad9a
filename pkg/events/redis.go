package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// publishTimeout bounds one Redis PUBLISH so a dead broker cannot stall a
// turn.
const publishTimeout = 2 * time.Second

// RedisPublisher mirrors every bus event to the per-thread Redis channel
// `thread:<thread_id>` as JSON. Publish failures are logged and dropped.
type RedisPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisPublisher creates the mirror and subscribes it to the bus.
func NewRedisPublisher(bus *Bus, client *redis.Client) *RedisPublisher {
	p := &RedisPublisher{
		client: client,
		logger: slog.Default().With("component", "events"),
	}
	bus.Subscribe(p.publish)
	return p
}

// Channel returns the Redis channel name for a thread.
func Channel(threadID string) string {
	return "thread:" + threadID
}

func (p *RedisPublisher) publish(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("Failed to marshal event", "type", e.Type, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, Channel(e.ThreadID), payload).Err(); err != nil {
		p.logger.Warn("Failed to mirror event to redis",
			"type", e.Type,
			"thread_id", e.ThreadID,
			"error", err)
	}
}
