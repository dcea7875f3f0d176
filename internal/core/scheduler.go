package core

// scheduler.go provides background maintenance of stored batches.
//
// The janitor deletes draft and cancelled batches nobody has touched for
// the configured retention. Purchased batches are never removed. A failed
// sweep is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/shipbatch/internal/config"
)

// staleStatuses are the statuses the janitor may remove.
var staleStatuses = []BatchStatus{StatusDraft, StatusCancelled}

// StartJanitor sweeps stale batches immediately, then every CheckInterval,
// until ctx is cancelled. It returns at once when CheckInterval is zero.
func (s *Service) StartJanitor(ctx context.Context, cfg config.JanitorConfig) {
	if cfg.CheckInterval <= 0 {
		slog.Info("janitor disabled")
		return
	}
	slog.Info("janitor started",
		"retention", cfg.DraftRetention,
		"interval", cfg.CheckInterval,
	)

	s.SweepStale(ctx, cfg.DraftRetention)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("janitor stopped")
			return
		case <-ticker.C:
			s.SweepStale(ctx, cfg.DraftRetention)
		}
	}
}

// SweepStale deletes draft and cancelled batches last modified more than
// retention ago and returns how many were removed.
func (s *Service) SweepStale(ctx context.Context, retention time.Duration) int64 {
	start := time.Now()
	cutoff := s.now().Add(-retention)

	n, err := s.store.DeleteStaleBatches(ctx, staleStatuses, cutoff)
	if err != nil {
		slog.Error("stale batch sweep failed", "error", err)
		return 0
	}
	slog.Info("stale batch sweep completed",
		"deleted", n,
		"cutoff", cutoff,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n
}
