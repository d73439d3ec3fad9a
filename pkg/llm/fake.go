package llm

import (
	"context"
	"sync"
)

// Fake is a scripted Generator for tests. Replies are returned in order;
// once the script runs out the last reply repeats.
type Fake struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []Request
}

// NewFake creates a scripted generator.
func NewFake(replies ...string) *Fake {
	return &Fake{replies: replies}
}

// FailWith makes every subsequent Generate call return err.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Generate records the request and returns the next scripted reply.
func (f *Fake) Generate(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "Entendido, cuénteme más.", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

// Requests returns a copy of every request seen so far.
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}
