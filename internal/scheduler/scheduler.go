package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Runner is the unit of work the scheduler drives once per tick.
type Runner interface {
	RunCycle(ctx context.Context) error
}

// Scheduler owns the main loop: runs one poll cycle immediately, then
// ticks on a fixed interval. Cycles never overlap because the next tick
// is not consumed until the previous cycle returns.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

// New creates a scheduler that runs the poller at the given interval.
func New(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the polling loop. It returns nil when ctx is cancelled
// (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.runner.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("poll cycle failed", "error", err)
		return
	}
	s.logger.Debug("poll cycle complete", "elapsed", time.Since(start).String())
}
