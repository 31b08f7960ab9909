package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ifuryst/herald/internal/models"
	"github.com/ifuryst/herald/internal/service/engagement"
	"github.com/ifuryst/herald/internal/service/publisher"
	"github.com/ifuryst/herald/internal/store"
	"github.com/ifuryst/herald/pkg/util"
)

// fanOut runs the follow-up actions of a successful authored publish. It
// never changes the outcome of the publish itself.
func (p *Pipeline) fanOut(ctx context.Context, item *models.AuthoredItem, attachments []models.Attachment, record *models.PublishedRecord, result *publisher.PublishResult) []ItemResult {
	logger := p.logger.With(zap.String("item_id", item.ID.String()))

	if result.PostID != "" {
		trigger := engagement.Trigger{
			ExternalPostID:      result.PostID,
			PostContent:         item.Content(),
			PostAuthorProfileID: item.AuthorID.String(),
		}
		if record != nil {
			trigger.PublishedPostID = record.ID.String()
		}
		p.dispatcher.Dispatch(trigger)
	}

	rules, err := p.store.ActiveCrossPostRules(ctx, *item.AuthorID)
	if err != nil {
		logger.Error("Failed to load cross-post rules", zap.Error(err))
		p.recorder.RecordFailure(ctx, Failure{
			Source:  string(models.SourceCompany),
			ItemID:  item.ID.String(),
			Title:   "Failed to load cross-post rules",
			Message: err.Error(),
			Warning: true,
		})
		return nil
	}
	if len(rules) == 0 {
		return nil
	}

	logger.Info("Applying cross-post rules", zap.Int("rules", len(rules)))

	results := make([]ItemResult, 0, len(rules))
	for i := range rules {
		results = append(results, p.applyRule(ctx, logger, item, attachments, record, &rules[i]))
	}
	return results
}

// applyRule evaluates one cross-post rule. A panic or error stays inside
// the rule.
func (p *Pipeline) applyRule(ctx context.Context, logger *zap.Logger, item *models.AuthoredItem, attachments []models.Attachment, record *models.PublishedRecord, rule *models.CrossPostRule) (res ItemResult) {
	res = ItemResult{ID: rule.ID.String()}
	logger = logger.With(zap.String("rule_id", res.ID), zap.String("page", rule.Page.Name))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Cross-post rule panicked", zap.Any("panic", r))
			res = ItemResult{ID: rule.ID.String(), Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	job := &models.CrossPostJob{
		OriginalPostID: item.ID,
		CompanyPageID:  rule.TargetPageID,
		RuleID:         &rule.ID,
		Content:        util.Truncate(composeCrossPostContent(rule.AddPrefix, item.Content(), rule.AddSuffix), models.CrossPostContentLength),
	}
	if record != nil {
		job.OriginalPublishedPostID = &record.ID
	}

	if !rule.Page.Publishable() {
		logger.Warn("Company page inactive or account disconnected, not cross-posting")
		job.Status = models.CrossPostFailed
		job.ErrorMessage = ErrPageUnavailable.Error()
		p.saveCrossPostJob(ctx, logger, job)
		res.Error = job.ErrorMessage
		return res
	}

	if delay := rule.Delay(); delay > 0 {
		scheduledFor := p.now().Add(delay)
		job.Status = models.CrossPostPending
		job.ScheduledFor = &scheduledFor
		if err := p.store.CreateCrossPostJob(ctx, job); err != nil {
			logger.Error("Failed to schedule cross-post", zap.Error(err))
			res.Error = err.Error()
			return res
		}

		logger.Info("Cross-post scheduled", zap.Time("scheduled_for", scheduledFor))
		res.ID = job.ID.String()
		res.Success = true
		return res
	}

	result, err := p.publisher.Publish(ctx, publisher.PublishRequest{
		AccountID:      rule.Page.AdminAccount.ExternalAccountID,
		Text:           job.Content,
		Attachments:    attachments,
		AsOrganization: rule.Page.OrganizationURN,
	})
	if err != nil {
		logger.Warn("Cross-post failed", zap.Error(err))
		job.Status = models.CrossPostFailed
		job.ErrorMessage = store.FailureMessage(err.Error())
		p.saveCrossPostJob(ctx, logger, job)
		details := publishContext(rule.Page.AdminAccount.ExternalAccountID, err)
		details["company_page_id"] = rule.TargetPageID.String()
		p.recorder.RecordFailure(ctx, Failure{
			Source:  string(models.SourceCompany),
			ItemID:  item.ID.String(),
			Title:   "Cross-post failed",
			Message: job.ErrorMessage,
			Context: details,
		})
		res.ID = job.ID.String()
		res.Error = job.ErrorMessage
		return res
	}

	at := p.publishedAt(result)
	job.Status = models.CrossPostPublished
	job.ExternalPostID = result.PostID
	job.PostURL = result.URL
	job.PublishedAt = &at
	p.saveCrossPostJob(ctx, logger, job)

	logger.Info("Cross-posted to company page", zap.String("post_id", result.PostID))

	res.ID = job.ID.String()
	res.Success = true
	res.ExternalPostID = result.PostID
	res.PostURL = result.URL
	return res
}

func (p *Pipeline) saveCrossPostJob(ctx context.Context, logger *zap.Logger, job *models.CrossPostJob) {
	if err := p.store.CreateCrossPostJob(ctx, job); err != nil {
		logger.Error("Failed to record cross-post",
			zap.String("status", string(job.Status)),
			zap.Error(err))
	}
}

// composeCrossPostContent puts prefix and suffix around body, each separated
// by a blank line. Empty parts add no separator.
func composeCrossPostContent(prefix, body, suffix string) string {
	return util.JoinNonEmpty("\n\n", prefix, body, suffix)
}
