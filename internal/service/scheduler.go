package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/herald/internal/config"
	"github.com/ifuryst/herald/internal/service/pipeline"
)

// Runner executes one publication pass.
type Runner interface {
	Run(ctx context.Context, trigger string) *pipeline.Summary
}

// Scheduler triggers runs in-process on a fixed interval, for deployments
// without an external cron.
type Scheduler struct {
	config   *config.SchedulerConfig
	logger   *zap.Logger
	runner   Runner
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	wg       sync.WaitGroup
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, runner Runner) *Scheduler {
	return &Scheduler{
		config: cfg,
		logger: logger,
		runner: runner,
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	interval := s.config.IntervalDuration()
	s.logger.Info("Starting scheduler", zap.Duration("interval", interval))

	s.ticker = time.NewTicker(interval)

	// Run first pass immediately
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("Running initial publication pass")
		s.runOnce(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ticker.C:
				s.logger.Info("Running scheduled publication pass")
				s.runOnce(ctx)
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

// Stop stops the ticker and waits for a pass in progress to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
	s.wg.Wait()
	s.logger.Info("Scheduler shutdown completed")
}

// runOnce skips the tick when the previous pass is still running.
func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous publication pass still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	summary := s.runner.Run(ctx, "scheduler")

	s.logger.Info("Publication pass completed",
		zap.String("summary", summary.Message),
		zap.Int("failed", summary.Failed()),
		zap.Duration("duration", time.Since(start)))
}
