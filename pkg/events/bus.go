package events

import (
	"log/slog"
	"sync"
)

// Subscriber receives every published event. Subscribers must not block; slow
// consumers should hand off to their own goroutine.
type Subscriber func(Event)

// Bus is the in-process fan-out. The zero value is unusable; construct with
// NewBus.
type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for all future events.
func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish delivers the event to every subscriber in registration order on the
// caller's goroutine.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(e)
	}
}

// SubscribeLogger attaches the slog subscriber: every event at Debug, with
// appointment bookings and delivery failures raised to Info.
func (b *Bus) SubscribeLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	l := logger.With("component", "events")
	b.Subscribe(func(e Event) {
		attrs := []any{"type", e.Type, "thread_id", e.ThreadID}
		if e.TurnID != "" {
			attrs = append(attrs, "turn_id", e.TurnID)
		}
		for k, v := range e.Fields {
			attrs = append(attrs, k, v)
		}
		switch e.Type {
		case EventTypeAppointmentBooked, EventTypeSendFailure:
			l.Info("Event", attrs...)
		default:
			l.Debug("Event", attrs...)
		}
	})
}
