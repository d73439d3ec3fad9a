// Package router wires the fixed turn graph: reconcile → intel → supervisor
// → specialist → responder, with bounded escalation back-edges.
package router

import (
	"context"
	"log/slog"

	"github.com/nivelo-ai/leadrouter/pkg/agent"
	"github.com/nivelo-ai/leadrouter/pkg/events"
	"github.com/nivelo-ai/leadrouter/pkg/graph"
	"github.com/nivelo-ai/leadrouter/pkg/intel"
	"github.com/nivelo-ai/leadrouter/pkg/models"
	"github.com/nivelo-ai/leadrouter/pkg/reconcile"
	"github.com/nivelo-ai/leadrouter/pkg/responder"
)

// Node names.
const (
	NodeReconcile  = "reconcile"
	NodeIntel      = "intel"
	NodeSupervisor = "supervisor"
	NodeAgentA     = "agent_a"
	NodeAgentB     = "agent_b"
	NodeAgentC     = "agent_c"
	NodeResponder  = "respond"
)

// Deps are the stage implementations the graph is built from.
type Deps struct {
	Reconciler *reconcile.Reconciler
	Intel      *intel.Stage
	Supervisor *agent.Supervisor
	Discovery  *agent.Specialist
	Qualifier  *agent.Specialist
	Closer     *agent.Specialist
	Responder  *responder.Responder
	Bus        *events.Bus
}

// Build registers the turn graph on the engine.
func Build(e *graph.Engine, d Deps) {
	logger := slog.Default().With("component", "router")

	e.Add(NodeReconcile, func(ctx context.Context, turn *models.Turn) error {
		d.Reconciler.Reconcile(ctx, turn.State, turn.Inbound)
		return nil
	})

	e.Add(NodeIntel, func(ctx context.Context, turn *models.Turn) error {
		out, err := d.Intel.Process(turn.State)
		if err != nil {
			// Analysis failures never kill a turn; the score simply holds.
			logger.Warn("Lead analysis failed",
				"thread_id", turn.ThreadID,
				"turn_id", turn.TurnID,
				"error", err)
			d.Bus.Publish(events.New(events.EventTypeScoreUnchanged, turn.ThreadID, turn.TurnID,
				map[string]any{"reason": "analysis_error"}))
			return nil
		}
		if out.Changed {
			d.Bus.Publish(events.New(events.EventTypeLeadScored, turn.ThreadID, turn.TurnID, map[string]any{
				"score":          out.Score,
				"previous_score": out.PreviousScore,
				"category":       string(out.Category),
				"reason":         out.Reason,
			}))
		} else {
			d.Bus.Publish(events.New(events.EventTypeScoreUnchanged, turn.ThreadID, turn.TurnID,
				map[string]any{"score": out.Score}))
		}
		return nil
	})

	e.Add(NodeSupervisor, func(ctx context.Context, turn *models.Turn) error {
		if turn.NeedsEscalation {
			d.Bus.Publish(events.New(events.EventTypeEscalationRaised, turn.ThreadID, turn.TurnID,
				map[string]any{"reason": string(turn.EscalationReason)}))
		}
		decision := d.Supervisor.Decide(turn)
		d.Bus.Publish(events.New(events.EventTypeRoutingDecided, turn.ThreadID, turn.TurnID, map[string]any{
			"next_agent": string(decision.NextAgent),
			"reason":     decision.Reason,
			"score":      decision.ScoreAtDecision,
			"attempt":    turn.RoutingAttempts,
		}))
		return nil
	})

	e.Add(NodeAgentA, specialistNode(d.Discovery))
	e.Add(NodeAgentB, specialistNode(d.Qualifier))
	e.Add(NodeAgentC, specialistNode(d.Closer))

	e.Add(NodeResponder, func(ctx context.Context, turn *models.Turn) error {
		if err := d.Responder.Respond(ctx, turn); err != nil {
			return err
		}
		switch {
		case turn.MessageSent:
			d.Bus.Publish(events.New(events.EventTypeReplySent, turn.ThreadID, turn.TurnID, map[string]any{
				"agent": string(turn.ReplyFrom),
			}))
		case turn.DuplicateSuppressed:
			d.Bus.Publish(events.New(events.EventTypeDuplicateSuppress, turn.ThreadID, turn.TurnID, nil))
		case turn.SendFailed:
			d.Bus.Publish(events.New(events.EventTypeSendFailure, turn.ThreadID, turn.TurnID, nil))
		}
		if turn.AppointmentBooked {
			d.Bus.Publish(events.New(events.EventTypeAppointmentBooked, turn.ThreadID, turn.TurnID, map[string]any{
				"contact_id": turn.State.ContactID,
			}))
		}
		return nil
	})

	e.StartAt(NodeReconcile)
	e.FallbackTo(NodeResponder)

	e.Connect(NodeReconcile, NodeIntel, nil)
	e.Connect(NodeIntel, NodeSupervisor, nil)

	e.Connect(NodeSupervisor, NodeResponder, func(t *models.Turn) bool { return t.ShouldEnd })
	e.Connect(NodeSupervisor, NodeAgentA, routedTo(models.AgentDiscovery))
	e.Connect(NodeSupervisor, NodeAgentB, routedTo(models.AgentQualifier))
	e.Connect(NodeSupervisor, NodeAgentC, routedTo(models.AgentCloser))

	for _, n := range []string{NodeAgentA, NodeAgentB, NodeAgentC} {
		// The back edge stops firing once the attempts bound is reached, so
		// a stuck escalation drains to the responder instead of looping.
		e.Connect(n, NodeSupervisor, func(t *models.Turn) bool {
			return t.NeedsEscalation && t.RoutingAttempts < models.MaxRoutingAttempts
		})
		e.Connect(n, NodeResponder, nil)
	}
}

func specialistNode(sp *agent.Specialist) graph.NodeFunc {
	return func(ctx context.Context, turn *models.Turn) error {
		return sp.Run(ctx, turn)
	}
}

func routedTo(role models.AgentName) graph.Predicate {
	return func(t *models.Turn) bool {
		return t.Decision != nil && t.Decision.NextAgent == role
	}
}
