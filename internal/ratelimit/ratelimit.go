// Package ratelimit serializes outbound provider calls with a minimum
// spacing between them.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Gate enforces a minimum delay between consecutive provider calls. One
// Gate instance is shared by every caller that talks to the provider,
// the poll loop and the interactive flow alike, so all outbound calls
// funnel through the same last-call timestamp.
type Gate struct {
	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// NewGate creates a gate that enforces minDelay between consecutive calls.
func NewGate(minDelay time.Duration) *Gate {
	return &Gate{minDelay: minDelay}
}

// Wait blocks until enough time has passed since the previous call, then
// records the new call time. Returns an error if the context is
// cancelled while waiting.
//
// Waking from the sleep does not claim the slot: another waiter may have
// claimed it at the same deadline, so the spacing is re-checked under the
// lock and the loser sleeps out a fresh window. Concurrent callers are
// thereby spaced minDelay apart, not merely delayed once.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		now := time.Now()

		if g.lastCall.IsZero() || now.Sub(g.lastCall) >= g.minDelay {
			g.lastCall = now
			g.mu.Unlock()
			return nil
		}

		remaining := g.minDelay - now.Sub(g.lastCall)
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate gate wait: %w", ctx.Err())
		case <-time.After(remaining):
		}
	}
}
