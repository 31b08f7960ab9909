package engagement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/herald/internal/config"
)

// Trigger asks the engagement service to react to a freshly published post.
type Trigger struct {
	PublishedPostID     string `json:"published_post_id"`
	ExternalPostID      string `json:"external_post_id"`
	PostContent         string `json:"post_content"`
	PostAuthorProfileID string `json:"post_author_profile_id"`
}

// Dispatcher sends triggers in the background. A dispatch never reports
// back to the caller; failures only show up in the logs.
type Dispatcher struct {
	logger  *zap.Logger
	client  *http.Client
	url     string
	secret  string
	timeout time.Duration
	enabled bool

	slots chan struct{}
	wg    sync.WaitGroup
}

func NewDispatcher(cfg *config.EngagementConfig, secret string, logger *zap.Logger) *Dispatcher {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 16
	}

	return &Dispatcher{
		logger:  logger,
		client:  &http.Client{Timeout: cfg.TimeoutDuration()},
		url:     cfg.URL,
		secret:  secret,
		timeout: cfg.TimeoutDuration(),
		enabled: cfg.Enabled && cfg.URL != "",
		slots:   make(chan struct{}, maxInFlight),
	}
}

// Dispatch queues the trigger and returns immediately. When every slot is
// taken the trigger is dropped.
func (d *Dispatcher) Dispatch(trigger Trigger) {
	if !d.enabled {
		return
	}

	select {
	case d.slots <- struct{}{}:
	default:
		d.logger.Warn("Engagement dispatcher saturated, dropping trigger",
			zap.String("external_post_id", trigger.ExternalPostID))
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()

		// Detached from the run so that returning the summary does not
		// cancel the call.
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.send(ctx, trigger); err != nil {
			d.logger.Error("Engagement trigger failed",
				zap.String("external_post_id", trigger.ExternalPostID),
				zap.String("published_post_id", trigger.PublishedPostID),
				zap.Error(err))
			return
		}

		d.logger.Debug("Engagement trigger sent",
			zap.String("external_post_id", trigger.ExternalPostID))
	}()
}

func (d *Dispatcher) send(ctx context.Context, trigger Trigger) error {
	payload, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Scheduler-Secret", d.secret)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("engagement service returned status %d", resp.StatusCode)
	}

	return nil
}

// Wait blocks until in-flight dispatches finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
