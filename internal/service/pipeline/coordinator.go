package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ifuryst/herald/internal/models"
	"github.com/ifuryst/herald/internal/service/engagement"
	"github.com/ifuryst/herald/internal/service/publisher"
	"github.com/ifuryst/herald/internal/store"
)

// Dispatcher hands engagement triggers off to the background.
type Dispatcher interface {
	Dispatch(trigger engagement.Trigger)
}

// Failure is one failed or degraded item as handed to a Recorder.
type Failure struct {
	Source  string
	ItemID  string
	Title   string
	Message string

	// Warning marks a degraded outcome where the item itself went through.
	Warning bool
	Context map[string]interface{}
}

// Recorder persists run history and failures. Implementations must not
// block the run for long; errors are theirs to log.
type Recorder interface {
	RecordFailure(ctx context.Context, f Failure)
	RecordRun(ctx context.Context, run *models.PipelineRun)
}

type Options struct {
	BatchSize       int
	Concurrency     int
	StaleClaimAfter time.Duration
	Provider        string
}

// Pipeline runs one publication pass over the three due-item categories.
type Pipeline struct {
	store      store.Store
	publisher  publisher.Publisher
	dispatcher Dispatcher
	recorder   Recorder
	opts       Options
	logger     *zap.Logger
	now        func() time.Time
}

func New(st store.Store, pub publisher.Publisher, dispatcher Dispatcher, recorder Recorder, opts Options, logger *zap.Logger) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Provider == "" {
		opts.Provider = "LINKEDIN"
	}
	if dispatcher == nil {
		dispatcher = noopDispatcher{}
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}

	return &Pipeline{
		store:      st,
		publisher:  pub,
		dispatcher: dispatcher,
		recorder:   recorder,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Run executes one pass. Per-item failures are recorded on the items and in
// the summary; Run itself never fails.
func (p *Pipeline) Run(ctx context.Context, trigger string) *Summary {
	started := p.now()
	p.logger.Info("Starting publication run", zap.String("trigger", trigger))

	p.releaseStaleClaims(ctx, started)

	var legacy, production, company []ItemResult
	var g errgroup.Group

	g.Go(func() error {
		legacy = p.runLegacy(ctx, started)
		return nil
	})
	g.Go(func() error {
		production = p.runProduction(ctx, started)
		return nil
	})
	g.Go(func() error {
		company = p.runCompany(ctx, started)
		return nil
	})
	_ = g.Wait()

	summary := NewSummary(legacy, production, company)
	finished := p.now()

	p.recorder.RecordRun(ctx, summary.Run(trigger, started, finished))

	p.logger.Info("Publication run finished",
		zap.String("trigger", trigger),
		zap.Int("legacy_success", summary.Legacy.Success),
		zap.Int("production_success", summary.Production.Success),
		zap.Int("company_success", summary.Company.Success),
		zap.Int("failed", summary.Failed()),
		zap.Duration("duration", finished.Sub(started)))

	return summary
}

func (p *Pipeline) releaseStaleClaims(ctx context.Context, now time.Time) {
	if p.opts.StaleClaimAfter <= 0 {
		return
	}

	released, err := p.store.ReleaseStaleClaims(ctx, now.Add(-p.opts.StaleClaimAfter))
	if err != nil {
		p.logger.Error("Failed to release stale claims", zap.Error(err))
		return
	}
	if released > 0 {
		p.logger.Warn("Released stale claims", zap.Int64("count", released))
	}
}

func (p *Pipeline) runLegacy(ctx context.Context, now time.Time) []ItemResult {
	items, err := p.store.DueScheduledItems(ctx, now, p.opts.BatchSize)
	if err != nil {
		p.selectionFailed(ctx, models.SourceLegacy, err)
		return nil
	}
	return forEach(ctx, p.opts.Concurrency, items, func(ctx context.Context, item models.ScheduledItem) ItemResult {
		return p.publishScheduledItem(ctx, &item)
	}, func(item models.ScheduledItem) string { return item.ID.String() })
}

func (p *Pipeline) runProduction(ctx context.Context, now time.Time) []ItemResult {
	items, err := p.store.DueAuthoredItems(ctx, now, p.opts.BatchSize)
	if err != nil {
		p.selectionFailed(ctx, models.SourceProduction, err)
		return nil
	}
	return forEach(ctx, p.opts.Concurrency, items, func(ctx context.Context, item models.AuthoredItem) ItemResult {
		return p.publishAuthoredItem(ctx, &item)
	}, func(item models.AuthoredItem) string { return item.ID.String() })
}

func (p *Pipeline) runCompany(ctx context.Context, now time.Time) []ItemResult {
	jobs, err := p.store.DueCrossPostJobs(ctx, now, p.opts.BatchSize)
	if err != nil {
		p.selectionFailed(ctx, models.SourceCompany, err)
		return nil
	}
	return forEach(ctx, p.opts.Concurrency, jobs, func(ctx context.Context, job models.CrossPostJob) ItemResult {
		return p.executeCrossPostJob(ctx, &job)
	}, func(job models.CrossPostJob) string { return job.ID.String() })
}

func (p *Pipeline) selectionFailed(ctx context.Context, source models.Source, err error) {
	p.logger.Error("Failed to select due items",
		zap.String("source", string(source)),
		zap.Error(err))
	p.recorder.RecordFailure(ctx, Failure{
		Source:  "selector",
		Title:   fmt.Sprintf("Failed to select %s items", source),
		Message: err.Error(),
		Context: map[string]interface{}{"category": string(source)},
	})
}

// forEach runs fn over items with at most limit in flight. A panicking item
// is reported as failed and does not affect the others.
func forEach[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) ItemResult, id func(T) string) []ItemResult {
	results := make([]ItemResult, len(items))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					results[i] = ItemResult{ID: id(item), Error: fmt.Sprintf("internal error: %v", r)}
				}
			}()
			results[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(engagement.Trigger) {}

type noopRecorder struct{}

func (noopRecorder) RecordFailure(context.Context, Failure) {}

func (noopRecorder) RecordRun(context.Context, *models.PipelineRun) {}
