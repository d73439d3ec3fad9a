package queue

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nivelo-ai/leadrouter/pkg/config"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// TurnRunner executes one turn end to end. Satisfied by the graph engine.
type TurnRunner interface {
	RunTurn(ctx context.Context, turn *models.Turn) error
}

// WorkerPool runs queued turns on a fixed set of workers.
type WorkerPool struct {
	config     *config.QueueConfig
	runner     TurnRunner
	dispatcher *dispatcher
	logger     *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Active-turn cancel registry: turn_id -> cancel function.
	mu        sync.RWMutex
	active    map[string]context.CancelFunc
	processed int
	started   bool
}

// NewWorkerPool creates the pool. Start must be called before Enqueue is
// useful.
func NewWorkerPool(cfg *config.QueueConfig, runner TurnRunner) *WorkerPool {
	return &WorkerPool{
		config:     cfg,
		runner:     runner,
		dispatcher: newDispatcher(cfg.MaxQueuedTurns),
		logger:     slog.Default().With("component", "queue"),
		stopCh:     make(chan struct{}),
		active:     make(map[string]context.CancelFunc),
	}
}

// Enqueue accepts a turn for processing. Returns ErrQueueFull or ErrStopped
// when the turn cannot be accepted.
func (p *WorkerPool) Enqueue(t *Turn) error {
	if err := p.dispatcher.enqueue(t); err != nil {
		return err
	}
	p.logger.Debug("Turn queued",
		"thread_id", t.ThreadID,
		"turn_id", t.TurnID,
		"queue_depth", p.dispatcher.queueDepth())
	return nil
}

// Start spawns the worker goroutines and the heartbeat. Safe to call once;
// subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		p.logger.Warn("Worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true
	p.mu.Unlock()

	p.logger.Info("Starting worker pool", "worker_count", p.config.WorkerCount)
	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}

	p.wg.Add(1)
	go p.runHeartbeat(ctx)
}

// Stop drains the pool: intake closes immediately, in-flight and queued turns
// get up to GracefulShutdownTimeout to finish, then leftovers are cancelled.
func (p *WorkerPool) Stop() {
	p.logger.Info("Stopping worker pool gracefully",
		"queue_depth", p.dispatcher.queueDepth(),
		"active_turns", p.activeCount())

	p.dispatcher.close()

	deadline := time.Now().Add(p.config.GracefulShutdownTimeout)
	for time.Now().Before(deadline) {
		if p.dispatcher.queueDepth() == 0 && p.activeCount() == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if n := p.activeCount(); n > 0 {
		p.logger.Warn("Drain timeout reached, cancelling remaining turns", "count", n)
		p.CancelAll()
	}

	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// Accepting reports whether Enqueue can currently succeed.
func (p *WorkerPool) Accepting() bool {
	return p.dispatcher.accepting()
}

// Stats returns a snapshot for readiness checks and the heartbeat log.
func (p *WorkerPool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PoolStats{
		Accepting:      p.dispatcher.accepting(),
		Workers:        p.config.WorkerCount,
		QueueDepth:     p.dispatcher.queueDepth(),
		ActiveTurns:    len(p.active),
		TurnsProcessed: p.processed,
	}
}

// Register stores a cancel function for an in-flight turn.
func (p *WorkerPool) Register(turnID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[turnID] = cancel
}

// Unregister removes the cancel function when processing ends.
func (p *WorkerPool) Unregister(turnID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, turnID)
}

// CancelAll cancels every in-flight turn.
func (p *WorkerPool) CancelAll() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, cancel := range p.active {
		cancel()
	}
}

func (p *WorkerPool) activeCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.active)
}

func (p *WorkerPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.logger.With("worker_id", id)
	log.Debug("Worker started")

	for {
		select {
		case <-p.stopCh:
			log.Debug("Worker shutting down")
			return
		case <-ctx.Done():
			log.Debug("Context cancelled, worker shutting down")
			return
		case threadID := <-p.dispatcher.ready:
			turn := p.dispatcher.claim(threadID)
			if turn == nil {
				continue
			}
			p.process(ctx, turn, log)
			p.dispatcher.release(threadID)
		}
	}
}

// process runs one turn with the per-turn deadline, cancel registration, and
// a panic guard.
func (p *WorkerPool) process(ctx context.Context, t *Turn, log *slog.Logger) {
	turnCtx, cancel := context.WithTimeout(ctx, p.config.TurnTimeout)
	defer cancel()

	p.Register(t.TurnID, cancel)
	defer p.Unregister(t.TurnID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while processing turn",
				"thread_id", t.ThreadID,
				"turn_id", t.TurnID,
				"panic", r)
		}
		p.mu.Lock()
		p.processed++
		p.mu.Unlock()
	}()

	log.Debug("Turn claimed",
		"thread_id", t.ThreadID,
		"turn_id", t.TurnID,
		"queued_for", time.Since(t.EnqueuedAt))

	if err := p.runner.RunTurn(turnCtx, t.runtime()); err != nil {
		log.Error("Turn failed",
			"thread_id", t.ThreadID,
			"turn_id", t.TurnID,
			"error", err)
	}
}

// runHeartbeat logs pool stats on a jittered interval so replicas do not log
// in lockstep.
func (p *WorkerPool) runHeartbeat(ctx context.Context) {
	defer p.wg.Done()

	for {
		timer := time.NewTimer(p.heartbeatInterval())
		select {
		case <-p.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			stats := p.Stats()
			p.logger.Info("Queue heartbeat",
				"queue_depth", stats.QueueDepth,
				"active_turns", stats.ActiveTurns,
				"turns_processed", stats.TurnsProcessed)
		}
	}
}

func (p *WorkerPool) heartbeatInterval() time.Duration {
	base := p.config.HeartbeatInterval
	jitter := p.config.HeartbeatJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}
