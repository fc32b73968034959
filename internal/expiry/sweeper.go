package expiry

import (
	"context"
	"log/slog"
	"time"
)

// DueSource lists orders whose payment window has lapsed, plus cancelled
// orders whose stock release did not complete.
type DueSource interface {
	FindDue(ctx context.Context, limit int) ([]string, error)
}

// Sweeper periodically scans for due orders and reconciles each one
// independently. A failure on one order never blocks the others.
type Sweeper struct {
	source    DueSource
	reconcile ReconcileFunc
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewSweeper(source DueSource, reconcile ReconcileFunc, interval time.Duration, batchSize int, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		source:    source,
		reconcile: reconcile,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ids, err := s.source.FindDue(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("failed to find due orders", "error", err)
		return
	}

	for _, id := range ids {
		if err := s.reconcile(ctx, id); err != nil {
			s.logger.Error("sweep reconciliation failed", "error", err, "order_id", id)
		}
	}

	if len(ids) > 0 {
		s.logger.Info("sweep complete", "reconciled", len(ids))
	}
}
