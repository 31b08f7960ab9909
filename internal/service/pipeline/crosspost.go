package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ifuryst/herald/internal/models"
	"github.com/ifuryst/herald/internal/service/publisher"
	"github.com/ifuryst/herald/internal/store"
)

// executeCrossPostJob runs a deferred cross-post that has come due.
func (p *Pipeline) executeCrossPostJob(ctx context.Context, job *models.CrossPostJob) ItemResult {
	res := ItemResult{ID: job.ID.String()}
	logger := p.logger.With(zap.String("source", string(models.SourceCompany)), zap.String("item_id", res.ID))

	// The page may have been deactivated since the job was scheduled.
	if !job.Page.Publishable() {
		err := p.store.TransitionCrossPostJob(ctx, job.ID, models.CrossPostPending, models.CrossPostFailed,
			store.Outcome{ErrorMessage: ErrPageUnavailable.Error()})
		if err != nil {
			return p.claimFailed(ctx, logger, models.SourceCompany, res, err)
		}
		logger.Warn("Company page inactive or account disconnected")
		p.recorder.RecordFailure(ctx, Failure{
			Source:  string(models.SourceCompany),
			ItemID:  res.ID,
			Title:   "Company post failed",
			Message: ErrPageUnavailable.Error(),
			Context: map[string]interface{}{"company_page_id": job.CompanyPageID.String()},
		})
		res.Error = ErrPageUnavailable.Error()
		return res
	}

	err := p.store.TransitionCrossPostJob(ctx, job.ID, models.CrossPostPending, models.CrossPostPublishing, store.Outcome{})
	if err != nil {
		return p.claimFailed(ctx, logger, models.SourceCompany, res, err)
	}

	result, err := p.publisher.Publish(ctx, publisher.PublishRequest{
		AccountID:      job.Page.AdminAccount.ExternalAccountID,
		Text:           job.Content,
		Attachments:    p.resolveAttachments(ctx, logger, job),
		AsOrganization: job.Page.OrganizationURN,
	})
	if err != nil {
		msg := store.FailureMessage(err.Error())
		if terr := p.store.TransitionCrossPostJob(ctx, job.ID, models.CrossPostPublishing, models.CrossPostFailed,
			store.Outcome{ErrorMessage: msg}); terr != nil {
			logger.Error("Failed to mark company post as failed", zap.Error(terr))
		}
		logger.Warn("Company post failed", zap.Error(err))
		details := publishContext(job.Page.AdminAccount.ExternalAccountID, err)
		details["company_page_id"] = job.CompanyPageID.String()
		p.recorder.RecordFailure(ctx, Failure{
			Source:  string(models.SourceCompany),
			ItemID:  res.ID,
			Title:   "Company post failed",
			Message: msg,
			Context: details,
		})
		res.Error = msg
		return res
	}

	res.ExternalPostID = result.PostID
	res.PostURL = result.URL

	out := store.Outcome{
		ExternalPostID: result.PostID,
		PostURL:        result.URL,
		At:             p.publishedAt(result),
	}
	err = p.confirmPublished(logger,
		func() error {
			return p.store.TransitionCrossPostJob(ctx, job.ID, models.CrossPostPublishing, models.CrossPostPublished, out)
		},
		func() error { return p.store.ConfirmCrossPostJobPublished(ctx, job.ID, out) })
	if err != nil {
		return p.publishedButUnrecorded(ctx, logger, models.SourceCompany, res, err)
	}

	logger.Info("Published company post", zap.String("post_id", result.PostID))

	res.Success = true
	return res
}

// resolveAttachments reads the media of the original authored item as it is
// now. Nothing is snapshotted when the job is scheduled, so a removed
// original means a text-only post.
func (p *Pipeline) resolveAttachments(ctx context.Context, logger *zap.Logger, job *models.CrossPostJob) []models.Attachment {
	original, err := p.store.GetAuthoredItem(ctx, job.OriginalPostID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("Original post not found, publishing without attachments",
				zap.String("original_post_id", job.OriginalPostID.String()))
		} else {
			logger.Error("Failed to load original post, publishing without attachments", zap.Error(err))
		}
		p.recorder.RecordFailure(ctx, Failure{
			Source:  string(models.SourceCompany),
			ItemID:  job.ID.String(),
			Title:   "Company post published without attachments",
			Message: err.Error(),
			Warning: true,
			Context: map[string]interface{}{"original_post_id": job.OriginalPostID.String()},
		})
		return nil
	}
	return original.MediaAttachments()
}
