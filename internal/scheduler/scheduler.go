// Package scheduler drives the reconciliation poller from a clock.
package scheduler

import (
	"context"
	"sync"
	"time"

	"booking-payments/internal/dto/response"

	"go.uber.org/zap"
)

const DefaultInterval = 5 * time.Minute

// Runner is the scheduled entry point of the poller.
type Runner interface {
	RunScheduled(ctx context.Context) (*response.ReconcileResponse, bool, error)
}

// Scheduler runs once after BootDelay and then every Interval.
type Scheduler struct {
	runner    Runner
	bootDelay time.Duration
	interval  time.Duration
	logger    *zap.Logger
}

func New(runner Runner, bootDelay, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		runner:    runner,
		bootDelay: bootDelay,
		interval:  interval,
		logger:    logger.With(zap.String("component", "scheduler")),
	}
}

// Run blocks until ctx is cancelled and every started run has returned.
// Ticks that fire while a run is still in progress are dropped by the runner.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("reconciliation scheduler started",
		zap.Duration("boot_delay", s.bootDelay),
		zap.Duration("interval", s.interval),
	)

	boot := time.NewTimer(s.bootDelay)
	defer boot.Stop()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	start := func(trigger string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tick(ctx, trigger)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reconciliation scheduler stopping")
			wg.Wait()
			return nil
		case <-boot.C:
			start("boot")
		case <-ticker.C:
			start("interval")
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, trigger string) {
	result, ran, err := s.runner.RunScheduled(ctx)
	switch {
	case err != nil:
		s.logger.Error("scheduled reconciliation failed", zap.String("trigger", trigger), zap.Error(err))
	case !ran:
		s.logger.Debug("scheduled reconciliation skipped", zap.String("trigger", trigger))
	default:
		s.logger.Info("scheduled reconciliation done",
			zap.String("trigger", trigger),
			zap.Int("reconciled", result.Reconciled),
			zap.Int("expired", result.Expired),
			zap.Int("total", result.Total),
		)
	}
}
