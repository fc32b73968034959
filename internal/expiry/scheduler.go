package expiry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ReconcileFunc resolves one pending order; it must re-check current
// state before acting, so running it late, twice, or concurrently with a
// payment callback is safe.
type ReconcileFunc func(ctx context.Context, orderID string) error

// Scheduler arms one in-process timer per pending order. It is a latency
// optimization only: the Sweeper is what guarantees reconciliation across
// restarts, since these timers die with the process.
type Scheduler struct {
	reconcile ReconcileFunc
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewScheduler(reconcile ReconcileFunc, reconcileTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		reconcile: reconcile,
		timeout:   reconcileTimeout,
		logger:    logger,
		timers:    make(map[string]*time.Timer),
	}
}

// Arm schedules reconciliation for the order after d, replacing any timer
// already armed for it.
func (s *Scheduler) Arm(orderID string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[orderID]; ok {
		t.Stop()
	}
	s.timers[orderID] = time.AfterFunc(d, func() { s.fire(orderID) })
}

// Disarm drops the order's timer. Disarming after the action started is a
// race the reconcile guard absorbs.
func (s *Scheduler) Disarm(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[orderID]; ok {
		t.Stop()
		delete(s.timers, orderID)
	}
}

// Stop drops every armed timer; pending orders are left to the sweep.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) fire(orderID string) {
	s.mu.Lock()
	delete(s.timers, orderID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.reconcile(ctx, orderID); err != nil {
		s.logger.Error("timer reconciliation failed", "error", err, "order_id", orderID)
	}
}
