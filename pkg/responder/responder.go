// Package responder delivers the turn's reply to the customer with typing
// pacing, blank-line splitting, and idempotent resends.
package responder

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/nivelo-ai/leadrouter/pkg/crm"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// Pacing model: a fixed thinking pause plus reading-speed typing time,
// clamped to a humane window.
const (
	thinkingBase = 800 * time.Millisecond
	charsPerSec  = 35
	minDelay     = 1200 * time.Millisecond
	maxDelay     = 4500 * time.Millisecond

	questionBonus   = 500 * time.Millisecond
	longReplyBonus  = 700 * time.Millisecond
	longReplyWords  = 20
	interPartFactor = 0.6
)

var partSeparatorRe = regexp.MustCompile(`\n[ \t]*\n`)

// Sender is the outbound slice of the CRM client.
type Sender interface {
	SendMessage(ctx context.Context, contactID, body string, channel crm.Channel) (string, error)
}

// Responder sends at most one reply per turn.
type Responder struct {
	sender  Sender
	channel crm.Channel
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

// Option adjusts responder behavior.
type Option func(*Responder)

// WithSleeper replaces the pacing sleep, used by tests to avoid wall-clock
// waits.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Responder) { r.sleep = fn }
}

// New creates a responder sending over WhatsApp.
func New(sender Sender, opts ...Option) *Responder {
	r := &Responder{
		sender:  sender,
		channel: crm.ChannelWhatsApp,
		sleep:   sleepContext,
		logger:  slog.Default().With("component", "responder"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond selects the newest specialist message and delivers it. Delivery
// failure is recorded on the turn, not returned: the turn still checkpoints.
func (r *Responder) Respond(ctx context.Context, turn *models.Turn) error {
	state := turn.State
	content, ok := selectReply(state)
	if !ok {
		return nil
	}
	if content == state.LastSentMessage {
		turn.MessageSent = false
		turn.DuplicateSuppressed = true
		r.logger.Info("Duplicate reply suppressed", "thread_id", turn.ThreadID, "turn_id", turn.TurnID)
		return nil
	}

	d := Delay(content)
	if err := r.sleep(ctx, d); err != nil {
		return err
	}

	parts := SplitParts(content)
	for i, part := range parts {
		if i > 0 {
			if err := r.sleep(ctx, time.Duration(float64(d)*interPartFactor)); err != nil {
				return err
			}
		}
		if _, err := r.sender.SendMessage(ctx, state.ContactID, part, r.channel); err != nil {
			turn.MessageSent = false
			turn.SendFailed = true
			r.logger.Error("Failed to send reply",
				"thread_id", turn.ThreadID,
				"turn_id", turn.TurnID,
				"part", i+1,
				"error", err)
			return nil
		}
	}

	state.LastSentMessage = content
	turn.MessageSent = true
	r.logger.Info("Reply sent",
		"thread_id", turn.ThreadID,
		"turn_id", turn.TurnID,
		"agent", string(turn.ReplyFrom),
		"parts", len(parts),
		"delay_ms", d.Milliseconds())
	return nil
}

// selectReply scans newest to oldest for the first message carrying a
// specialist agent name.
func selectReply(state *models.ConversationState) (string, bool) {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		m := state.Messages[i]
		if m.AgentName.IsSpecialist() {
			return m.Content, true
		}
	}
	return "", false
}

// Delay computes the typing pause for a reply.
func Delay(content string) time.Duration {
	d := thinkingBase + time.Duration(float64(len(content))/charsPerSec*float64(time.Second))
	if strings.Contains(content, "?") {
		d += questionBonus
	}
	if len(strings.Fields(content)) > longReplyWords {
		d += longReplyBonus
	}
	if d < minDelay {
		d = minDelay
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// SplitParts breaks a reply on blank lines into separately sent messages.
func SplitParts(content string) []string {
	raw := partSeparatorRe.Split(content, -1)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
