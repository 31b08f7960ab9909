package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/herald/internal/models"
	"github.com/ifuryst/herald/internal/service/publisher"
	"github.com/ifuryst/herald/internal/store"
	"github.com/ifuryst/herald/pkg/util"
)

// publishScheduledItem publishes a legacy item. The posting API takes one
// account per call, so each eligible target gets its own call and keeps its
// own outcome. The item is published when at least one target succeeded.
func (p *Pipeline) publishScheduledItem(ctx context.Context, item *models.ScheduledItem) ItemResult {
	res := ItemResult{ID: item.ID.String()}
	logger := p.logger.With(zap.String("source", string(models.SourceLegacy)), zap.String("item_id", res.ID))

	err := p.store.TransitionScheduledItem(ctx, item.ID, models.ScheduledItemPending, models.ScheduledItemProcessing, store.Outcome{})
	if err != nil {
		return p.claimFailed(ctx, logger, models.SourceLegacy, res, err)
	}

	var eligible []models.ScheduledItemTarget
	for _, target := range item.Targets {
		if target.Account.Eligible() {
			eligible = append(eligible, target)
			continue
		}
		target.Status = models.ScheduledItemFailed
		target.ErrorMessage = ErrAccountInactive.Error()
		p.saveTarget(ctx, logger, &target)
	}

	if len(eligible) == 0 {
		return p.failScheduledItem(ctx, logger, item, res, ErrNoValidAccounts.Error(), nil)
	}

	var errs []string
	var lastErr map[string]interface{}
	var records []*models.PublishedRecord
	for i, target := range eligible {
		if i > 0 {
			p.renewScheduledClaim(ctx, logger, item)
		}

		text := item.TextFor(target)
		result, err := p.publisher.Publish(ctx, publisher.PublishRequest{
			AccountID:   target.Account.ExternalAccountID,
			Text:        text,
			Attachments: item.Attachments,
		})
		if err != nil {
			logger.Warn("Failed to publish to account",
				zap.String("account_id", target.Account.ExternalAccountID),
				zap.Error(err))
			target.Status = models.ScheduledItemFailed
			target.ErrorMessage = err.Error()
			errs = append(errs, fmt.Sprintf("%s: %s", target.Account.ExternalAccountID, err))
			lastErr = publishContext(target.Account.ExternalAccountID, err)
			p.saveTarget(ctx, logger, &target)
			continue
		}

		at := p.publishedAt(result)
		target.Status = models.ScheduledItemPublished
		target.ExternalPostID = result.PostID
		target.ErrorMessage = ""
		target.PublishedAt = &at
		p.saveTarget(ctx, logger, &target)

		records = append(records, &models.PublishedRecord{
			ProfileID:        target.Account.ProfileID,
			PostingAccountID: target.Account.ID,
			ExternalPostID:   result.PostID,
			PostURL:          result.URL,
			Content:          util.Truncate(text, models.ContentSnapshotLength),
			PublishedAt:      at,
			ScheduledItemID:  &item.ID,
		})

		if len(records) == 1 {
			res.ExternalPostID = result.PostID
			res.PostURL = result.URL
		}
	}

	if len(records) == 0 {
		return p.failScheduledItem(ctx, logger, item, res, strings.Join(errs, "; "), lastErr)
	}

	out := store.Outcome{At: records[0].PublishedAt}
	err = p.confirmPublished(logger,
		func() error {
			return p.store.TransitionScheduledItem(ctx, item.ID, models.ScheduledItemProcessing, models.ScheduledItemPublished, out)
		},
		func() error { return p.store.ConfirmScheduledItemPublished(ctx, item.ID, out) })
	if err != nil {
		return p.publishedButUnrecorded(ctx, logger, models.SourceLegacy, res, err)
	}

	for _, record := range records {
		p.writePublishedRecord(ctx, logger, record)
	}

	if len(errs) > 0 {
		logger.Warn("Scheduled post partially published",
			zap.Int("succeeded", len(records)),
			zap.Strings("errors", errs))
	} else {
		logger.Info("Published scheduled post", zap.Int("accounts", len(records)))
	}

	res.Success = true
	return res
}

// renewScheduledClaim keeps a multi-account publish from looking stale. A
// lost claim is not fatal here: posts already made are confirmed at the end.
func (p *Pipeline) renewScheduledClaim(ctx context.Context, logger *zap.Logger, item *models.ScheduledItem) {
	if err := p.store.RenewScheduledClaim(ctx, item.ID); err != nil {
		logger.Warn("Failed to renew claim on scheduled post", zap.Error(err))
	}
}

func (p *Pipeline) failScheduledItem(ctx context.Context, logger *zap.Logger, item *models.ScheduledItem, res ItemResult, msg string, details map[string]interface{}) ItemResult {
	msg = store.FailureMessage(msg)
	err := p.store.TransitionScheduledItem(ctx, item.ID, models.ScheduledItemProcessing, models.ScheduledItemFailed,
		store.Outcome{ErrorMessage: msg})
	if err != nil {
		logger.Error("Failed to mark scheduled post as failed", zap.Error(err))
	}

	logger.Warn("Scheduled post failed", zap.String("error", msg))
	p.recorder.RecordFailure(ctx, Failure{
		Source:  string(models.SourceLegacy),
		ItemID:  res.ID,
		Title:   "Scheduled post failed",
		Message: msg,
		Context: details,
	})

	res.Error = msg
	return res
}

func (p *Pipeline) saveTarget(ctx context.Context, logger *zap.Logger, target *models.ScheduledItemTarget) {
	if err := p.store.UpdateScheduledTarget(ctx, target); err != nil {
		logger.Error("Failed to update scheduled post account",
			zap.String("target_id", target.ID.String()),
			zap.Error(err))
	}
}

// publishAuthoredItem publishes an authored item and fans out on success.
// Every failure before the post goes live reverts the item to validated so
// the author can fix it.
func (p *Pipeline) publishAuthoredItem(ctx context.Context, item *models.AuthoredItem) ItemResult {
	res := ItemResult{ID: item.ID.String()}
	logger := p.logger.With(zap.String("source", string(models.SourceProduction)), zap.String("item_id", res.ID))

	err := p.store.TransitionAuthoredItem(ctx, item.ID, models.AuthoredItemScheduled, models.AuthoredItemPublishing, store.Outcome{})
	if err != nil {
		return p.claimFailed(ctx, logger, models.SourceProduction, res, err)
	}

	if item.AuthorID == nil {
		return p.revertAuthoredItem(ctx, logger, item, res, ErrNoAuthor, nil)
	}

	account, err := p.store.FindEligibleAccount(ctx, *item.AuthorID, p.opts.Provider)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrNoEligibleAccount
		}
		return p.revertAuthoredItem(ctx, logger, item, res, err, map[string]interface{}{
			"author_id": item.AuthorID.String(),
			"provider":  p.opts.Provider,
		})
	}

	attachments := item.MediaAttachments()
	result, err := p.publisher.Publish(ctx, publisher.PublishRequest{
		AccountID:   account.ExternalAccountID,
		Text:        item.Content(),
		Attachments: attachments,
		Mentions:    item.Mentions,
	})
	if err != nil {
		return p.revertAuthoredItem(ctx, logger, item, res, err, publishContext(account.ExternalAccountID, err))
	}

	res.ExternalPostID = result.PostID
	res.PostURL = result.URL

	at := p.publishedAt(result)
	out := store.Outcome{At: at}
	err = p.confirmPublished(logger,
		func() error {
			return p.store.TransitionAuthoredItem(ctx, item.ID, models.AuthoredItemPublishing, models.AuthoredItemPublished, out)
		},
		func() error { return p.store.ConfirmAuthoredItemPublished(ctx, item.ID, out) })
	if err != nil {
		return p.publishedButUnrecorded(ctx, logger, models.SourceProduction, res, err)
	}

	record := &models.PublishedRecord{
		ProfileID:        *item.AuthorID,
		PostingAccountID: account.ID,
		ExternalPostID:   result.PostID,
		PostURL:          result.URL,
		Content:          util.Truncate(item.Content(), models.ContentSnapshotLength),
		PublishedAt:      at,
		AuthoredItemID:   &item.ID,
	}
	if !p.writePublishedRecord(ctx, logger, record) {
		record = nil
	}

	logger.Info("Published production post", zap.String("post_id", result.PostID))

	res.Success = true

	if models.SourceProduction.FansOut() {
		res.CrossPosts = p.fanOut(ctx, item, attachments, record, result)
	}

	return res
}

func (p *Pipeline) revertAuthoredItem(ctx context.Context, logger *zap.Logger, item *models.AuthoredItem, res ItemResult, cause error, details map[string]interface{}) ItemResult {
	msg := store.FailureMessage(cause.Error())
	err := p.store.TransitionAuthoredItem(ctx, item.ID, models.AuthoredItemPublishing, models.AuthoredItemValidated,
		store.Outcome{ErrorMessage: msg})
	if err != nil {
		logger.Error("Failed to revert production post", zap.Error(err))
	}

	logger.Warn("Production post reverted to validated", zap.String("error", msg))
	p.recorder.RecordFailure(ctx, Failure{
		Source:  string(models.SourceProduction),
		ItemID:  res.ID,
		Title:   "Production post failed",
		Message: msg,
		Context: details,
	})

	res.Error = msg
	return res
}

// confirmPublished writes the published state of a post that is already
// live. If the claim was released meanwhile the state is forced: the post
// exists whatever the row says.
func (p *Pipeline) confirmPublished(logger *zap.Logger, transition, force func() error) error {
	err := transition()
	if errors.Is(err, store.ErrClaimLost) {
		logger.Warn("Claim released while publishing, forcing published state")
		err = force()
	}
	return err
}

// publishedButUnrecorded reports a live post whose status could not be
// written. It counts as failed and gets no history or fan-out, so the
// error log is the only trace of the post id.
func (p *Pipeline) publishedButUnrecorded(ctx context.Context, logger *zap.Logger, source models.Source, res ItemResult, cause error) ItemResult {
	msg := fmt.Sprintf("published as %s but failed to record: %v", res.ExternalPostID, cause)
	logger.Error("Post is live but its status could not be written",
		zap.String("post_id", res.ExternalPostID),
		zap.Error(cause))
	p.recorder.RecordFailure(ctx, Failure{
		Source:  string(source),
		ItemID:  res.ID,
		Title:   "Published post not recorded",
		Message: msg,
		Context: map[string]interface{}{
			"external_post_id": res.ExternalPostID,
			"post_url":         res.PostURL,
		},
	})

	res.Error = msg
	return res
}

// writePublishedRecord reports whether the history row was written. The
// post is live either way, so a failure here is only logged.
func (p *Pipeline) writePublishedRecord(ctx context.Context, logger *zap.Logger, record *models.PublishedRecord) bool {
	if err := p.store.CreatePublishedRecord(ctx, record); err != nil {
		logger.Error("Failed to write published post history",
			zap.String("post_id", record.ExternalPostID),
			zap.Error(err))
		return false
	}
	return true
}

// claimFailed turns a failed claim into a result. A lost claim is a skip;
// anything else leaves the item untouched for the next run.
func (p *Pipeline) claimFailed(ctx context.Context, logger *zap.Logger, source models.Source, res ItemResult, err error) ItemResult {
	if errors.Is(err, store.ErrClaimLost) {
		logger.Info("Item already claimed, skipping")
		res.Skipped = true
		return res
	}

	logger.Error("Failed to claim item", zap.Error(err))
	p.recorder.RecordFailure(ctx, Failure{
		Source:  string(source),
		ItemID:  res.ID,
		Title:   "Failed to claim item",
		Message: err.Error(),
	})
	res.Error = err.Error()
	return res
}

// publishedAt prefers the time the posting API acknowledged the post.
func (p *Pipeline) publishedAt(result *publisher.PublishResult) time.Time {
	if !result.PublishedAt.IsZero() {
		return result.PublishedAt
	}
	return p.now()
}

// publishContext describes a failed publish call for the error log.
func publishContext(accountID string, err error) map[string]interface{} {
	details := map[string]interface{}{"account_id": accountID}
	if code := publisher.StatusCode(err); code != 0 {
		details["status_code"] = code
	}
	return details
}
