// Package gate provides the capacity-one frame processing gate shared by the
// periodic sampler and on-demand capture.
package gate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Token identifies one successful acquisition. It must be passed back to
// Release exactly once.
type Token struct {
	generation uint64
}

// Gate admits at most one holder at a time. It is not reentrant.
type Gate struct {
	sem        *semaphore.Weighted
	mu         sync.Mutex
	generation uint64
	held       bool
}

// New returns an unheld gate.
func New() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// TryAcquire takes the gate without waiting. It reports false when the gate
// is already held.
func (g *Gate) TryAcquire() (Token, bool) {
	if !g.sem.TryAcquire(1) {
		return Token{}, false
	}
	return g.mark(), true
}

// AcquireWithTimeout waits up to timeout for the gate. It reports false when
// the timeout elapses or ctx is done first.
func (g *Gate) AcquireWithTimeout(ctx context.Context, timeout time.Duration) (Token, bool) {
	if timeout <= 0 {
		return g.TryAcquire()
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		return Token{}, false
	}
	return g.mark(), true
}

func (g *Gate) mark() Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generation++
	g.held = true
	return Token{generation: g.generation}
}

// Release gives the gate back. Releasing a token that was invalidated by
// Reset is a no-op; releasing the current token twice panics.
func (g *Gate) Release(t Token) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t.generation != g.generation {
		return
	}
	if !g.held {
		panic("gate: release of a gate that is not held")
	}
	g.held = false
	g.sem.Release(1)
}

// Reset force-releases the gate if it is held and invalidates the holder's
// token. Used when a stream restarts while a stalled cycle still holds it.
// It reports whether a holder was evicted.
func (g *Gate) Reset() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.held {
		return false
	}
	g.held = false
	g.generation++
	g.sem.Release(1)
	return true
}

// Held reports whether the gate currently has a holder.
func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}
