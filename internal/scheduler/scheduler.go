package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Refresher defines the refresh operation the scheduler drives.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// Scheduler keeps the cache warm by refreshing every source on a fixed
// interval, so inbound requests rarely pay for a live fetch.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

func New(refresher Refresher, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runRefresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.refresher.RefreshAll(refreshCtx); err != nil {
		s.logger.Error("refresh failed", "error", err)
	}
}
