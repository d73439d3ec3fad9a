// Package graph runs the fixed per-turn node graph: load checkpoint, walk
// nodes following conditional edges, save checkpoint. Same-thread turns are
// serialized with a keyed mutex; different threads run in parallel.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nivelo-ai/leadrouter/pkg/checkpoint"
	"github.com/nivelo-ai/leadrouter/pkg/events"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// maxSteps bounds node entries per turn. Exceeding it short-circuits to the
// fallback node with should_end set.
const maxSteps = 12

// NodeFunc is one graph node. Nodes mutate the turn (and its state) in place;
// a returned error aborts the walk.
type NodeFunc func(ctx context.Context, turn *models.Turn) error

// Predicate guards a conditional edge. Nil means unconditional.
type Predicate func(*models.Turn) bool

// Edge is a directed transition. Edges from the same node are evaluated in
// registration order, first match wins.
type Edge struct {
	From string
	To   string
	When Predicate
}

// Engine executes turns over a registered graph.
type Engine struct {
	nodes    map[string]NodeFunc
	edges    []Edge
	start    string
	fallback string

	store checkpoint.Store
	bus   *events.Bus

	mu      sync.Mutex
	threads map[string]*sync.Mutex

	logger *slog.Logger
}

// New creates an engine persisting to store and reporting on bus.
func New(store checkpoint.Store, bus *events.Bus) *Engine {
	return &Engine{
		nodes:   make(map[string]NodeFunc),
		store:   store,
		bus:     bus,
		threads: make(map[string]*sync.Mutex),
		logger:  slog.Default().With("component", "graph"),
	}
}

// Add registers a node under name.
func (e *Engine) Add(name string, fn NodeFunc) {
	e.nodes[name] = fn
}

// Connect adds an edge. A nil predicate is unconditional.
func (e *Engine) Connect(from, to string, when Predicate) {
	e.edges = append(e.edges, Edge{From: from, To: to, When: when})
}

// StartAt sets the entry node.
func (e *Engine) StartAt(name string) {
	e.start = name
}

// FallbackTo names the node the step-budget breaker jumps to, normally the
// responder so a reply can still go out before the turn ends.
func (e *Engine) FallbackTo(name string) {
	e.fallback = name
}

// RunTurn executes one turn end to end: checkpoint load, node walk, checkpoint
// save. Cancellation discards the turn without persisting.
func (e *Engine) RunTurn(ctx context.Context, turn *models.Turn) error {
	unlock := e.lockThread(turn.ThreadID)
	defer unlock()

	state, err := e.loadState(ctx, turn)
	if err != nil {
		return err
	}
	turn.State = state

	e.bus.Publish(events.New(events.EventTypeTurnStarted, turn.ThreadID, turn.TurnID, nil))
	started := time.Now()

	if err := e.walk(ctx, turn); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			e.bus.Publish(events.New(events.EventTypeTurnDiscarded, turn.ThreadID, turn.TurnID,
				map[string]any{"reason": err.Error()}))
			e.logger.Warn("Turn discarded", "thread_id", turn.ThreadID, "turn_id", turn.TurnID, "error", err)
			return err
		}
		return err
	}

	turn.State.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(ctx, turn.ThreadID, turn.State); err != nil {
		return fmt.Errorf("failed to save checkpoint for thread %s: %w", turn.ThreadID, err)
	}

	e.bus.Publish(events.New(events.EventTypeTurnCompleted, turn.ThreadID, turn.TurnID, map[string]any{
		"duration_ms":  time.Since(started).Milliseconds(),
		"message_sent": turn.MessageSent,
		"lead_score":   turn.State.LeadScore,
	}))
	return nil
}

// walk follows edges from the start node until no edge matches.
func (e *Engine) walk(ctx context.Context, turn *models.Turn) error {
	current := e.start
	for steps := 0; current != ""; {
		if err := ctx.Err(); err != nil {
			return err
		}
		steps++
		if steps > maxSteps {
			return e.breakStepBudget(ctx, turn, current)
		}
		fn, ok := e.nodes[current]
		if !ok {
			return fmt.Errorf("graph has no node %q", current)
		}
		if err := fn(ctx, turn); err != nil {
			return fmt.Errorf("node %s: %w", current, err)
		}
		current = e.next(current, turn)
	}
	return nil
}

// breakStepBudget jumps straight to the fallback node with should_end set, so
// the turn still checkpoints and may still reply.
func (e *Engine) breakStepBudget(ctx context.Context, turn *models.Turn, current string) error {
	e.bus.Publish(events.New(events.EventTypeStepBudgetExceeded, turn.ThreadID, turn.TurnID,
		map[string]any{"node": current}))
	e.logger.Warn("Step budget exceeded",
		"thread_id", turn.ThreadID,
		"turn_id", turn.TurnID,
		"node", current)
	turn.ShouldEnd = true
	if e.fallback == "" || current == e.fallback {
		return nil
	}
	fn, ok := e.nodes[e.fallback]
	if !ok {
		return nil
	}
	return fn(ctx, turn)
}

func (e *Engine) next(from string, turn *models.Turn) string {
	for _, edge := range e.edges {
		if edge.From != from {
			continue
		}
		if edge.When == nil || edge.When(turn) {
			return edge.To
		}
	}
	return ""
}

func (e *Engine) loadState(ctx context.Context, turn *models.Turn) (*models.ConversationState, error) {
	state, err := e.store.Load(ctx, turn.ThreadID)
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, checkpoint.ErrNotFound):
		s := models.NewConversationState(
			turn.ThreadID,
			turn.Webhook.ContactID,
			turn.Webhook.ConversationID,
			turn.Webhook.LocationID,
		)
		if len(turn.Webhook.Extra) > 0 {
			s.WebhookData = turn.Webhook.Extra
		}
		return s, nil
	default:
		return nil, fmt.Errorf("failed to load checkpoint for thread %s: %w", turn.ThreadID, err)
	}
}

// lockThread serializes turns per thread. Lock values are never removed; the
// retention sweeper bounds thread cardinality over time and a mutex is tiny.
func (e *Engine) lockThread(threadID string) func() {
	e.mu.Lock()
	m, ok := e.threads[threadID]
	if !ok {
		m = &sync.Mutex{}
		e.threads[threadID] = m
	}
	e.mu.Unlock()
	m.Lock()
	return m.Unlock
}
