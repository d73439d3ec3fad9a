package queue

import (
	"sync"
)

// lane is the FIFO of pending turns for one thread.
type lane struct {
	turns []*Turn
	// busy marks a worker holding the lane; the lane is re-signalled when the
	// worker releases it with turns still pending.
	busy bool
}

// dispatcher routes turns into per-thread lanes. Workers receive thread ids
// from the ready channel; a thread id is in flight on the channel or held by
// a worker at most once, which serializes same-thread turns.
type dispatcher struct {
	mu      sync.Mutex
	lanes   map[string]*lane
	depth   int
	max     int
	stopped bool

	ready chan string
}

func newDispatcher(maxQueued int) *dispatcher {
	return &dispatcher{
		lanes: make(map[string]*lane),
		max:   maxQueued,
		// Buffer one slot per queued turn so enqueue never blocks on signal.
		ready: make(chan string, maxQueued),
	}
}

// enqueue appends the turn to its thread's lane. The lane is signalled only
// when no worker holds it and it is not already waiting in the channel.
func (d *dispatcher) enqueue(t *Turn) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrStopped
	}
	if d.depth >= d.max {
		return ErrQueueFull
	}

	l, ok := d.lanes[t.ThreadID]
	if !ok {
		l = &lane{}
		d.lanes[t.ThreadID] = l
	}
	l.turns = append(l.turns, t)
	d.depth++

	if !l.busy && len(l.turns) == 1 {
		d.ready <- t.ThreadID
	}
	return nil
}

// claim pops the next turn of the given lane and marks the lane busy. Returns
// nil when the lane vanished (drained concurrently).
func (d *dispatcher) claim(threadID string) *Turn {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.lanes[threadID]
	if !ok || len(l.turns) == 0 {
		return nil
	}
	t := l.turns[0]
	l.turns = l.turns[1:]
	l.busy = true
	d.depth--
	return t
}

// release returns the lane after a turn finished. Lanes with pending turns go
// back on the ready channel; empty lanes are dropped.
func (d *dispatcher) release(threadID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.lanes[threadID]
	if !ok {
		return
	}
	l.busy = false
	if len(l.turns) == 0 {
		delete(d.lanes, threadID)
		return
	}
	d.ready <- threadID
}

// close stops intake. Queued turns may still be claimed and drained.
func (d *dispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
}

func (d *dispatcher) queueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depth
}

func (d *dispatcher) accepting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.stopped && d.depth < d.max
}
