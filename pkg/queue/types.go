// Package queue buffers webhook turns and runs them on a worker pool. Turns
// for the same thread execute in arrival order and never concurrently.
package queue

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// Sentinel errors for queue operations.
var (
	// ErrQueueFull indicates the bounded queue rejected the turn. The webhook
	// layer maps it to 503.
	ErrQueueFull = errors.New("turn queue is full")

	// ErrStopped indicates the queue no longer accepts turns.
	ErrStopped = errors.New("turn queue is stopped")
)

// Turn is one queued unit of work: a single inbound customer message.
type Turn struct {
	TurnID     string
	ThreadID   string
	Webhook    models.InboundMessage
	Inbound    models.Message
	EnqueuedAt time.Time
}

// NewTurn wraps a webhook delivery for queueing.
func NewTurn(webhook models.InboundMessage) *Turn {
	return &Turn{
		TurnID:     uuid.New().String(),
		ThreadID:   webhook.ThreadID(),
		Webhook:    webhook,
		Inbound:    webhook.Message(),
		EnqueuedAt: time.Now().UTC(),
	}
}

// runtime converts the queued turn into the graph runtime's shape.
func (t *Turn) runtime() *models.Turn {
	return &models.Turn{
		TurnID:   t.TurnID,
		ThreadID: t.ThreadID,
		Webhook:  t.Webhook,
		Inbound:  t.Inbound,
	}
}

// PoolStats is a point-in-time snapshot of the pool, served by the readiness
// endpoint and the heartbeat log.
type PoolStats struct {
	Accepting      bool `json:"accepting"`
	Workers        int  `json:"workers"`
	QueueDepth     int  `json:"queue_depth"`
	ActiveTurns    int  `json:"active_turns"`
	TurnsProcessed int  `json:"turns_processed"`
}
