package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/herald/internal/config"
	"github.com/ifuryst/herald/internal/models"
	"github.com/ifuryst/herald/internal/service/engagement"
	"github.com/ifuryst/herald/internal/service/pipeline"
	"github.com/ifuryst/herald/internal/service/publisher"
	"github.com/ifuryst/herald/internal/store"
)

// PublishingService owns the publication pipeline and everything it talks to.
type PublishingService struct {
	logger            *zap.Logger
	db                *gorm.DB
	config            *config.Config
	pipeline          *pipeline.Pipeline
	dispatcher        *engagement.Dispatcher
	monitoringService *MonitoringService
}

func NewPublishingService(cfg *config.Config, db *gorm.DB, logger *zap.Logger, monitoringService *MonitoringService) *PublishingService {
	dispatcher := engagement.NewDispatcher(&cfg.Engagement, cfg.Scheduler.Secret, logger.Named("engagement"))
	client := publisher.NewClient(&cfg.Publisher, logger.Named("publisher"))

	p := pipeline.New(
		store.NewGormStore(db),
		client,
		dispatcher,
		monitoringService,
		pipeline.Options{
			BatchSize:       cfg.Pipeline.BatchSize,
			Concurrency:     cfg.Pipeline.Concurrency,
			StaleClaimAfter: cfg.Pipeline.StaleClaimDuration(),
			Provider:        cfg.Publisher.Provider,
		},
		logger.Named("pipeline"),
	)

	return &PublishingService{
		logger:            logger,
		db:                db,
		config:            cfg,
		pipeline:          p,
		dispatcher:        dispatcher,
		monitoringService: monitoringService,
	}
}

// Run executes one publication pass.
func (s *PublishingService) Run(ctx context.Context, trigger string) *pipeline.Summary {
	return s.pipeline.Run(ctx, trigger)
}

// RecentRuns returns the latest pipeline runs, newest first.
func (s *PublishingService) RecentRuns(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	runs, err := s.monitoringService.GetRecentRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent runs: %w", err)
	}
	return runs, nil
}

// RecentErrors returns the latest unresolved error logs, newest first.
func (s *PublishingService) RecentErrors(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	errs, err := s.monitoringService.GetRecentErrors(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent errors: %w", err)
	}
	return errs, nil
}

// Shutdown waits for in-flight engagement triggers until ctx is done.
func (s *PublishingService) Shutdown(ctx context.Context) error {
	if err := s.dispatcher.Wait(ctx); err != nil {
		s.logger.Warn("Engagement triggers still in flight at shutdown", zap.Error(err))
		return err
	}
	return nil
}
