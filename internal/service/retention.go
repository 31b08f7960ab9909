package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetentionWorker periodically prunes old run history.
type RetentionWorker struct {
	monitoringService *MonitoringService
	logger            *zap.Logger
	interval          time.Duration
	daysToKeep        int
	done              chan struct{}
	stopOnce          sync.Once
}

func NewRetentionWorker(monitoringService *MonitoringService, logger *zap.Logger, interval time.Duration, daysToKeep int) *RetentionWorker {
	return &RetentionWorker{
		monitoringService: monitoringService,
		logger:            logger,
		interval:          interval,
		daysToKeep:        daysToKeep,
		done:              make(chan struct{}),
	}
}

// Start begins the periodic cleanup
func (w *RetentionWorker) Start(ctx context.Context) {
	if w.daysToKeep <= 0 || w.interval <= 0 {
		w.logger.Info("Retention worker is disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		w.logger.Info("Starting retention worker",
			zap.Duration("interval", w.interval),
			zap.Int("days_to_keep", w.daysToKeep))
		for {
			select {
			case <-w.done:
				w.logger.Info("Retention worker stopped")
				return
			case <-ctx.Done():
				w.logger.Info("Retention worker stopped due to context cancellation")
				return
			case <-ticker.C:
				w.cleanup(ctx)
			}
		}
	}()
}

// Stop stops the worker. It is safe to call more than once.
func (w *RetentionWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *RetentionWorker) cleanup(ctx context.Context) {
	w.logger.Debug("Cleaning up old run history")

	if err := w.monitoringService.CleanupOldData(ctx, w.daysToKeep); err != nil {
		w.logger.Error("Failed to cleanup old data", zap.Error(err))
		return
	}

	w.logger.Debug("Old run history cleaned up")
}
