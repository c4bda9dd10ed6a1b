package search

import (
	"context"
	"sync"
)

// Token represents one in-flight upstream request.
type Token struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Context is cancelled as soon as the token is superseded, which aborts the
// underlying HTTP request.
func (t *Token) Context() context.Context { return t.ctx }

// Canceller keeps at most one live token. Starting a new request cancels
// the previous one instead of waiting for it.
type Canceller struct {
	mu      sync.Mutex
	seq     uint64
	current *Token
}

func (c *Canceller) Begin(parent context.Context) *Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.cancel()
	}
	c.seq++
	ctx, cancel := context.WithCancel(parent)
	t := &Token{id: c.seq, ctx: ctx, cancel: cancel}
	c.current = t
	return t
}

// IsCancelled reports whether t may no longer commit results.
func (c *Canceller) IsCancelled(t *Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != t || t.ctx.Err() != nil
}

// Finish releases t. If t is still the live token the slot is cleared.
func (c *Canceller) Finish(t *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == t {
		c.current = nil
	}
	t.cancel()
}

func (c *Canceller) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
}

// InFlight reports whether a token is currently outstanding.
func (c *Canceller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}
