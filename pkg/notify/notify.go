package notify

import (
	"context"
	"log/slog"
	"os"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/nivelo-ai/leadrouter/pkg/config"
	"github.com/nivelo-ai/leadrouter/pkg/events"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

const postTimeout = 5 * time.Second

// Notifier posts Slack notices for hot-lead transitions and booked
// appointments. Nil-safe: all methods are no-ops when the notifier is nil.
type Notifier struct {
	client *Client
	logger *slog.Logger
}

// New creates a Notifier from configuration. Returns nil when notifications
// are disabled or the token or channel is missing.
func New(cfg *config.SlackConfig) *Notifier {
	if cfg == nil || !cfg.Enabled || cfg.Channel == "" {
		return nil
	}
	token := os.Getenv(cfg.TokenEnv)
	if token == "" {
		return nil
	}
	return NewWithClient(NewClient(token, cfg.Channel))
}

// NewWithClient creates a Notifier backed by a pre-built client. Useful for
// testing with a mock API server.
func NewWithClient(client *Client) *Notifier {
	return &Notifier{
		client: client,
		logger: slog.Default().With("component", "notifier"),
	}
}

// Attach subscribes the notifier to the event bus. Posting happens off the
// publisher's goroutine so slow Slack calls never stall a turn.
func (n *Notifier) Attach(bus *events.Bus) {
	if n == nil {
		return
	}
	bus.Subscribe(func(e events.Event) {
		go n.HandleEvent(context.Background(), e)
	})
}

// HandleEvent posts a notice for the events the sales team cares about and
// ignores the rest. Fail-open: errors are logged, never returned.
func (n *Notifier) HandleEvent(ctx context.Context, e events.Event) {
	if n == nil {
		return
	}
	switch e.Type {
	case events.EventTypeLeadScored:
		score := intField(e.Fields, "score")
		previous := intField(e.Fields, "previous_score")
		if score < models.HotScoreThreshold || previous >= models.HotScoreThreshold {
			return
		}
		n.post(ctx, e, BuildHotLeadMessage(e.ThreadID, score, previous))
	case events.EventTypeAppointmentBooked:
		contactID, _ := e.Fields["contact_id"].(string)
		n.post(ctx, e, BuildAppointmentMessage(e.ThreadID, contactID))
	}
}

func (n *Notifier) post(ctx context.Context, e events.Event, blocks []goslack.Block) {
	if err := n.client.PostMessage(ctx, blocks, postTimeout); err != nil {
		n.logger.Error("Failed to send Slack notice",
			"event", e.Type,
			"thread_id", e.ThreadID,
			"error", err)
	}
}

// intField reads a numeric event field. Fields arrive as int in process and
// as float64 after a JSON round trip.
func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
