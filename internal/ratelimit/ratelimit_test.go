package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestWait_FirstCallImmediate(t *testing.T) {
	g := NewGate(200 * time.Millisecond)

	start := time.Now()
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("first call should not block, took %v", elapsed)
	}
}

func TestWait_EnforcesMinDelay(t *testing.T) {
	g := NewGate(100 * time.Millisecond)
	ctx := context.Background()

	if err := g.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_NoDelayAfterSpacingElapsed(t *testing.T) {
	g := NewGate(30 * time.Millisecond)
	ctx := context.Background()

	if err := g.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("expected near-instant wait, got %v", elapsed)
	}
}

func TestWait_ConcurrentCallersAreSpaced(t *testing.T) {
	const minDelay = 60 * time.Millisecond
	g := NewGate(minDelay)
	ctx := context.Background()

	if err := g.Wait(ctx); err != nil {
		t.Fatalf("priming wait: %v", err)
	}

	// Both waiters enter the same spacing window and wake at the same
	// deadline; the gate must let only one through per window.
	const waiters = 3
	times := make(chan time.Time, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Wait(ctx); err != nil {
				t.Errorf("concurrent wait: %v", err)
				return
			}
			times <- time.Now()
		}()
	}
	wg.Wait()
	close(times)

	var passed []time.Time
	for ts := range times {
		passed = append(passed, ts)
	}
	sort.Slice(passed, func(i, j int) bool { return passed[i].Before(passed[j]) })

	// Allow 10ms for timer jitter between consecutive passes.
	for i := 1; i < len(passed); i++ {
		if gap := passed[i].Sub(passed[i-1]); gap < minDelay-10*time.Millisecond {
			t.Errorf("waiters %d and %d passed %v apart, want >= %v", i-1, i, gap, minDelay)
		}
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	g := NewGate(10 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	if err := g.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	cancel()
	err := g.Wait(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
