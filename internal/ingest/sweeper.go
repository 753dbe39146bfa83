package ingest

import (
	"context"
	"log/slog"
	"time"
)

// StuckMarker is the slice of the repository the sweeper needs.
type StuckMarker interface {
	FailStuck(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Sweeper periodically fails documents abandoned in processing, typically by
// a crash mid-job. It is the mechanism that keeps "every accepted document
// eventually reaches a terminal state" true across restarts.
type Sweeper struct {
	store    StuckMarker
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewSweeper builds a sweeper that marks documents stuck longer than timeout
// as failed, checking every interval.
func NewSweeper(store StuckMarker, interval, timeout time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("component", "sweeper"),
	}
}

// Run blocks until the context is cancelled, sweeping on every tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.FailStuck(ctx, s.timeout)
			if err != nil {
				s.logger.Error("sweep failed", "err", err)
				continue
			}
			if n > 0 {
				s.logger.Warn("failed stuck documents", "count", n)
			}
		}
	}
}
