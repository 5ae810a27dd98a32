package worker

import (
	"context"
	"sync"
	"time"

	"order-assistant/internal/util"

	"go.uber.org/zap"
)

// Sweeper drops expired entries and reports how many were removed
type Sweeper interface {
	ForceCleanup() int
}

// SweeperFunc adapts a function to Sweeper
type SweeperFunc func() int

// ForceCleanup calls f
func (f SweeperFunc) ForceCleanup() int {
	return f()
}

// SweepWorker periodically evicts expired carts and rate limit windows so
// idle sessions do not hold memory until the next access
type SweepWorker struct {
	interval time.Duration
	sweepers map[string]Sweeper
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(interval time.Duration, sweepers map[string]Sweeper) *SweepWorker {
	return &SweepWorker{
		interval: interval,
		sweepers: sweepers,
		logger:   util.GetLogger(),
	}
}

// Start runs the sweep loop until Stop is called or ctx is done
func (w *SweepWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.logger.Info("Starting sweep worker", zap.Duration("interval", w.interval))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunOnce()
			}
		}
	}()
}

// RunOnce sweeps every registered store
func (w *SweepWorker) RunOnce() {
	for name, s := range w.sweepers {
		if removed := s.ForceCleanup(); removed > 0 {
			w.logger.Debug("Swept expired entries",
				zap.String("store", name),
				zap.Int("removed", removed))
		}
	}
}

// Stop stops the worker and waits for the loop to exit
func (w *SweepWorker) Stop() {
	w.logger.Info("Stopping sweep worker")
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
