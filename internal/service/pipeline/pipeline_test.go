package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ifuryst/herald/internal/models"
	"github.com/ifuryst/herald/internal/service/publisher"
	"github.com/ifuryst/herald/internal/store"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store      *memStore
	pub        *mockPublisher
	dispatcher *recordingDispatcher
	recorder   *recordingRecorder
	pipeline   *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:      newMemStore(),
		pub:        &mockPublisher{},
		dispatcher: &recordingDispatcher{},
		recorder:   &recordingRecorder{},
	}
	f.pipeline = New(f.store, f.pub, f.dispatcher, f.recorder, Options{
		BatchSize:       10,
		Concurrency:     4,
		StaleClaimAfter: 15 * time.Minute,
		Provider:        "LINKEDIN",
	}, zap.NewNop())
	f.pipeline.SetClock(func() time.Time { return testNow })

	return f
}

func (f *fixture) run() *Summary {
	return f.pipeline.Run(context.Background(), "test")
}

func (f *fixture) addAccount(externalID string, status models.AccountStatus, active bool) models.PostingAccount {
	acc := models.PostingAccount{
		ID:                uuid.New(),
		ProfileID:         uuid.New(),
		Provider:          "LINKEDIN",
		ExternalAccountID: externalID,
		Status:            status,
		IsActive:          active,
	}
	f.store.accounts = append(f.store.accounts, acc)
	return acc
}

func (f *fixture) addAuthoredItem(authorID *uuid.UUID, content string) *models.AuthoredItem {
	due := testNow.Add(-time.Minute)
	item := &models.AuthoredItem{
		ID:              uuid.New(),
		FinalContent:    &content,
		AuthorID:        authorID,
		PublicationDate: &due,
		Status:          models.AuthoredItemScheduled,
		MediaURL:        "https://cdn.example.com/cover.png",
		Attachments:     []models.Attachment{{URL: "https://cdn.example.com/extra.jpg", Type: "image"}},
	}
	f.store.authored[item.ID] = item
	return item
}

func (f *fixture) addPage(name string, active bool, adminStatus models.AccountStatus) models.OrganizationPage {
	admin := f.addAccount("admin-"+name, adminStatus, true)
	page := models.OrganizationPage{
		ID:              uuid.New(),
		OrganizationURN: "urn:li:organization:" + name,
		Name:            name,
		IsActive:        active,
		AdminAccountID:  admin.ID,
		AdminAccount:    admin,
	}
	f.store.pages[page.ID] = page
	return page
}

func (f *fixture) addRule(authorID uuid.UUID, page models.OrganizationPage, delayMinutes int, prefix, suffix string) models.CrossPostRule {
	rule := models.CrossPostRule{
		ID:               uuid.New(),
		SourceProfileID:  authorID,
		TargetPageID:     page.ID,
		PostDelayMinutes: delayMinutes,
		AddPrefix:        prefix,
		AddSuffix:        suffix,
		IsActive:         true,
		Page:             page,
	}
	f.store.rules = append(f.store.rules, rule)
	return rule
}

func (f *fixture) jobsWithStatus(status models.CrossPostJobStatus) []models.CrossPostJob {
	var out []models.CrossPostJob
	for _, job := range f.store.jobsList() {
		if job.Status == status {
			out = append(out, job)
		}
	}
	return out
}

// An author with one healthy account and no cross-post rules.
func TestRun_AuthoredItemPublished(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	item := f.addAuthoredItem(&acc.ProfileID, "Shipping day")

	f.pub.On("Publish", mock.Anything, mock.MatchedBy(func(req publisher.PublishRequest) bool {
		return req.AccountID == "acc-1" && req.Text == "Shipping day" && len(req.Attachments) == 2 &&
			req.Attachments[0].URL == "https://cdn.example.com/cover.png"
	})).Return(published("urn:li:activity:1"), nil).Once()

	summary := f.run()

	f.pub.AssertExpectations(t)
	assert.Equal(t, models.AuthoredItemPublished, item.Status)
	assert.Equal(t, testNow, *item.PublicationDate)
	assert.Empty(t, item.ErrorMessage)

	require.Len(t, f.store.records, 1)
	record := f.store.records[0]
	assert.Equal(t, "urn:li:activity:1", record.ExternalPostID)
	assert.Equal(t, acc.ProfileID, record.ProfileID)
	assert.Equal(t, acc.ID, record.PostingAccountID)
	assert.Equal(t, item.ID, *record.AuthoredItemID)
	assert.Empty(t, f.store.jobsList())

	assert.Equal(t, Counter{Attempted: 1, Success: 1}, summary.Production)
	require.Len(t, summary.ProductionResults, 1)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:activity:1", summary.ProductionResults[0].PostURL)

	require.Len(t, f.dispatcher.triggers, 1)
	trigger := f.dispatcher.triggers[0]
	assert.Equal(t, record.ID.String(), trigger.PublishedPostID)
	assert.Equal(t, "urn:li:activity:1", trigger.ExternalPostID)
	assert.Equal(t, "Shipping day", trigger.PostContent)
	assert.Equal(t, acc.ProfileID.String(), trigger.PostAuthorProfileID)
}

func TestRun_AuthoredItemKeepsAcknowledgedTime(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	item := f.addAuthoredItem(&acc.ProfileID, "Acked")

	acked := testNow.Add(3 * time.Second)
	result := published("personal-1")
	result.PublishedAt = acked
	f.pub.On("Publish", mock.Anything, forAccount("acc-1")).Return(result, nil).Once()

	f.run()

	assert.Equal(t, acked, *item.PublicationDate)
	require.Len(t, f.store.records, 1)
	assert.Equal(t, acked, f.store.records[0].PublishedAt)
}

// An author without an eligible account is put back to validated.
func TestRun_AuthoredItemWithoutAccount(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountDisconnected, true)
	item := f.addAuthoredItem(&acc.ProfileID, "Nobody will see this")

	summary := f.run()

	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	assert.Equal(t, models.AuthoredItemValidated, item.Status)
	assert.Equal(t, "no active account for author", item.ErrorMessage)
	assert.Empty(t, f.store.records)
	assert.Equal(t, Counter{Attempted: 1, Failed: 1}, summary.Production)
	assert.Empty(t, f.dispatcher.triggers)
}

func TestRun_AuthoredItemWithoutAuthor(t *testing.T) {
	f := newFixture(t)
	item := f.addAuthoredItem(nil, "Orphan")

	f.run()

	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	assert.Equal(t, models.AuthoredItemValidated, item.Status)
	assert.Equal(t, "no author assigned", item.ErrorMessage)
}

// A failed publish reverts to validated and writes no history.
func TestRun_AuthoredItemPublishFailureReverts(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	item := f.addAuthoredItem(&acc.ProfileID, "Will fail")
	f.addRule(acc.ProfileID, f.addPage("acme", true, models.AccountOK), 0, "", "")

	f.pub.On("Publish", mock.Anything, forAccount("acc-1")).
		Return(nil, &publisher.APIError{StatusCode: 422, Detail: "Text too long"}).Once()

	summary := f.run()

	f.pub.AssertExpectations(t)
	f.pub.AssertNumberOfCalls(t, "Publish", 1)
	assert.Equal(t, models.AuthoredItemValidated, item.Status)
	assert.Equal(t, "Text too long", item.ErrorMessage)
	assert.Empty(t, f.store.records)
	assert.Empty(t, f.store.jobsList())
	assert.Empty(t, f.dispatcher.triggers)
	assert.Equal(t, "Text too long", summary.ProductionResults[0].Error)
	assert.Contains(t, f.recorder.failures, "production: Text too long")
	require.Len(t, f.recorder.recorded, 1)
	assert.Equal(t, map[string]interface{}{"account_id": "acc-1", "status_code": 422}, f.recorder.recorded[0].Context)
}

// A zero-delay rule posts to the page at once and stores the job as published.
func TestRun_ImmediateCrossPost(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	f.addAuthoredItem(&acc.ProfileID, "Body")
	page := f.addPage("acme", true, models.AccountOK)
	f.addRule(acc.ProfileID, page, 0, "From our team:", "#hiring")

	f.pub.On("Publish", mock.Anything, forAccount("acc-1")).Return(published("personal-1"), nil).Once()
	f.pub.On("Publish", mock.Anything, mock.MatchedBy(func(req publisher.PublishRequest) bool {
		return req.AsOrganization == page.OrganizationURN &&
			req.AccountID == "admin-acme" &&
			req.Text == "From our team:\n\nBody\n\n#hiring" &&
			len(req.Attachments) == 2
	})).Return(published("company-1"), nil).Once()

	summary := f.run()

	f.pub.AssertExpectations(t)
	jobs := f.jobsWithStatus(models.CrossPostPublished)
	require.Len(t, jobs, 1)
	assert.Equal(t, "company-1", jobs[0].ExternalPostID)
	assert.Equal(t, "https://www.linkedin.com/feed/update/company-1", jobs[0].PostURL)
	assert.NotNil(t, jobs[0].OriginalPublishedPostID)
	assert.NotNil(t, jobs[0].PublishedAt)

	require.Len(t, summary.ProductionResults[0].CrossPosts, 1)
	assert.True(t, summary.ProductionResults[0].CrossPosts[0].Success)
	// Immediate cross-posts are not part of the deferred category.
	assert.Equal(t, 0, summary.Company.Attempted)
}

// A delayed rule only schedules a job; nothing reaches the page yet.
func TestRun_DelayedCrossPost(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	f.addAuthoredItem(&acc.ProfileID, "Body")
	page := f.addPage("acme", true, models.AccountOK)
	f.addRule(acc.ProfileID, page, 30, "", "")

	f.pub.On("Publish", mock.Anything, forAccount("acc-1")).Return(published("personal-1"), nil).Once()

	f.run()

	f.pub.AssertNumberOfCalls(t, "Publish", 1)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, asOrganization(page.OrganizationURN))

	jobs := f.jobsWithStatus(models.CrossPostPending)
	require.Len(t, jobs, 1)
	assert.Equal(t, testNow.Add(30*time.Minute), *jobs[0].ScheduledFor)
	assert.Equal(t, "Body", jobs[0].Content)
	assert.Empty(t, jobs[0].ExternalPostID)
}

// A due deferred job is published on the next run with the original
// item's current media.
func TestRun_DeferredCrossPostExecuted(t *testing.T) {
	f := newFixture(t)
	page := f.addPage("acme", true, models.AccountOK)

	original := f.addAuthoredItem(nil, "Body")
	original.Status = models.AuthoredItemPublished
	original.MediaURL = "https://cdn.example.com/updated.png"
	original.Attachments = nil

	scheduledFor := testNow.Add(-5 * time.Minute)
	job := &models.CrossPostJob{
		ID:             uuid.New(),
		OriginalPostID: original.ID,
		CompanyPageID:  page.ID,
		Content:        "Body",
		Status:         models.CrossPostPending,
		ScheduledFor:   &scheduledFor,
	}
	f.store.jobs[job.ID] = job

	f.pub.On("Publish", mock.Anything, mock.MatchedBy(func(req publisher.PublishRequest) bool {
		return req.AsOrganization == page.OrganizationURN &&
			len(req.Attachments) == 1 &&
			req.Attachments[0].URL == "https://cdn.example.com/updated.png"
	})).Return(published("company-9"), nil).Once()

	summary := f.run()

	f.pub.AssertExpectations(t)
	assert.Equal(t, models.CrossPostPublished, job.Status)
	assert.Equal(t, "company-9", job.ExternalPostID)
	assert.Equal(t, "https://www.linkedin.com/feed/update/company-9", job.PostURL)
	assert.Equal(t, Counter{Attempted: 1, Success: 1}, summary.Company)
	assert.Equal(t, job.ID.String(), summary.CompanyPostResults[0].ID)
}

func TestRun_DeferredCrossPostFails(t *testing.T) {
	f := newFixture(t)
	page := f.addPage("acme", true, models.AccountOK)

	scheduledFor := testNow.Add(-time.Minute)
	job := &models.CrossPostJob{
		ID:             uuid.New(),
		OriginalPostID: uuid.New(), // original deleted since
		CompanyPageID:  page.ID,
		Content:        "Body",
		Status:         models.CrossPostPending,
		ScheduledFor:   &scheduledFor,
	}
	f.store.jobs[job.ID] = job

	f.pub.On("Publish", mock.Anything, mock.MatchedBy(func(req publisher.PublishRequest) bool {
		return len(req.Attachments) == 0
	})).Return(nil, errors.New("context deadline exceeded")).Once()

	summary := f.run()

	f.pub.AssertExpectations(t)
	assert.Equal(t, models.CrossPostFailed, job.Status)
	assert.Equal(t, "context deadline exceeded", job.ErrorMessage)
	assert.Equal(t, Counter{Attempted: 1, Failed: 1}, summary.Company)
}

func TestRun_DeferredCrossPostPageDisconnected(t *testing.T) {
	f := newFixture(t)
	page := f.addPage("acme", true, models.AccountCredentials)

	scheduledFor := testNow.Add(-time.Minute)
	job := &models.CrossPostJob{
		ID:            uuid.New(),
		CompanyPageID: page.ID,
		Content:       "Body",
		Status:        models.CrossPostPending,
		ScheduledFor:  &scheduledFor,
	}
	f.store.jobs[job.ID] = job

	f.run()

	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	assert.Equal(t, models.CrossPostFailed, job.Status)
	assert.Equal(t, "company page inactive or account disconnected", job.ErrorMessage)
}

// One failing rule does not stop the others.
func TestRun_CrossPostRulesAreIsolated(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	f.addAuthoredItem(&acc.ProfileID, "Body")
	broken := f.addPage("broken", true, models.AccountOK)
	healthy := f.addPage("healthy", true, models.AccountOK)
	f.addRule(acc.ProfileID, broken, 0, "", "")
	f.addRule(acc.ProfileID, healthy, 0, "", "")

	f.pub.On("Publish", mock.Anything, forAccount("acc-1")).Return(published("personal-1"), nil).Once()
	f.pub.On("Publish", mock.Anything, asOrganization(broken.OrganizationURN)).
		Return(nil, &publisher.APIError{StatusCode: 403, Detail: "Not an admin"}).Once()
	f.pub.On("Publish", mock.Anything, asOrganization(healthy.OrganizationURN)).
		Return(published("company-2"), nil).Once()

	summary := f.run()

	f.pub.AssertExpectations(t)
	assert.Equal(t, Counter{Attempted: 1, Success: 1}, summary.Production)

	failed := f.jobsWithStatus(models.CrossPostFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, broken.ID, failed[0].CompanyPageID)
	assert.Equal(t, "Not an admin", failed[0].ErrorMessage)

	ok := f.jobsWithStatus(models.CrossPostPublished)
	require.Len(t, ok, 1)
	assert.Equal(t, healthy.ID, ok[0].CompanyPageID)
}

// Inactive pages and disconnected admin accounts are never attempted.
func TestRun_InactiveTargetsNeverAttempted(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	f.addAuthoredItem(&acc.ProfileID, "Body")
	inactive := f.addPage("inactive", false, models.AccountOK)
	disconnected := f.addPage("disconnected", true, models.AccountDisconnected)
	f.addRule(acc.ProfileID, inactive, 0, "", "")
	f.addRule(acc.ProfileID, disconnected, 30, "", "")

	f.pub.On("Publish", mock.Anything, forAccount("acc-1")).Return(published("personal-1"), nil).Once()

	f.run()

	f.pub.AssertNumberOfCalls(t, "Publish", 1)
	failed := f.jobsWithStatus(models.CrossPostFailed)
	require.Len(t, failed, 2)
	for _, job := range failed {
		assert.Equal(t, "company page inactive or account disconnected", job.ErrorMessage)
	}
	assert.Empty(t, f.jobsWithStatus(models.CrossPostPending))
}

// Overlapping runs publish each item once.
func TestRun_OverlappingRunsPublishOnce(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	item := f.addAuthoredItem(&acc.ProfileID, "Once")

	f.pub.On("Publish", mock.Anything, forAccount("acc-1")).
		After(20*time.Millisecond).
		Return(published("personal-1"), nil)

	var wg sync.WaitGroup
	summaries := make([]*Summary, 2)
	for i := range summaries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summaries[i] = f.run()
		}()
	}
	wg.Wait()

	f.pub.AssertNumberOfCalls(t, "Publish", 1)
	assert.Equal(t, 1, f.store.terminalWrites[item.ID])
	assert.Len(t, f.store.records, 1)
	assert.Equal(t, 1, summaries[0].Production.Success+summaries[1].Production.Success)
	assert.Equal(t, 0, summaries[0].Production.Failed+summaries[1].Production.Failed)
}

// A claim released while the post was going out does not undo the post:
// the item is forced to published and everything downstream still runs.
func TestRun_AuthoredItemReleasedMidPublish(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	item := f.addAuthoredItem(&acc.ProfileID, "Slow upload")
	page := f.addPage("acme", true, models.AccountOK)
	f.addRule(acc.ProfileID, page, 0, "", "")

	f.pub.On("Publish", mock.Anything, forAccount("acc-1")).
		Run(func(mock.Arguments) {
			f.store.mu.Lock()
			defer f.store.mu.Unlock()
			item.Status = models.AuthoredItemValidated
			item.ErrorMessage = store.InterruptedMessage
		}).
		Return(published("personal-1"), nil).Once()
	f.pub.On("Publish", mock.Anything, asOrganization(page.OrganizationURN)).Return(published("company-1"), nil).Once()

	summary := f.run()

	f.pub.AssertExpectations(t)
	assert.Equal(t, models.AuthoredItemPublished, item.Status)
	assert.Empty(t, item.ErrorMessage)
	require.Len(t, f.store.records, 1)
	assert.Equal(t, "personal-1", f.store.records[0].ExternalPostID)
	assert.Equal(t, Counter{Attempted: 1, Success: 1}, summary.Production)
	assert.Len(t, f.dispatcher.triggers, 1)
	assert.Len(t, f.jobsWithStatus(models.CrossPostPublished), 1)
}

// A live post whose status cannot be written is reported as failed with its
// post id, and gets no history, engagement or cross-posts.
func TestRun_AuthoredItemStatusWriteFails(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	item := f.addAuthoredItem(&acc.ProfileID, "Lost write")
	f.addRule(acc.ProfileID, f.addPage("acme", true, models.AccountOK), 0, "", "")
	f.store.publishedWriteErr = errors.New("connection reset")

	f.pub.On("Publish", mock.Anything, forAccount("acc-1")).Return(published("personal-1"), nil).Once()

	summary := f.run()

	f.pub.AssertNumberOfCalls(t, "Publish", 1)
	assert.Equal(t, models.AuthoredItemPublishing, item.Status)
	assert.Empty(t, f.store.records)
	assert.Empty(t, f.dispatcher.triggers)
	assert.Equal(t, 0, f.store.rulesLookups)
	assert.Empty(t, f.store.jobsList())

	assert.Equal(t, Counter{Attempted: 1, Failed: 1}, summary.Production)
	res := summary.ProductionResults[0]
	assert.False(t, res.Success)
	assert.Equal(t, "personal-1", res.ExternalPostID)
	assert.Contains(t, res.Error, "failed to record")

	require.Len(t, f.recorder.recorded, 1)
	assert.Equal(t, "Published post not recorded", f.recorder.recorded[0].Title)
	assert.Equal(t, "personal-1", f.recorder.recorded[0].Context["external_post_id"])
}

func TestRun_DeferredCrossPostReleasedMidPublish(t *testing.T) {
	f := newFixture(t)
	page := f.addPage("acme", true, models.AccountOK)
	original := f.addAuthoredItem(nil, "Body")
	original.Status = models.AuthoredItemPublished

	scheduledFor := testNow.Add(-5 * time.Minute)
	job := &models.CrossPostJob{
		ID:             uuid.New(),
		OriginalPostID: original.ID,
		CompanyPageID:  page.ID,
		Content:        "Body",
		Status:         models.CrossPostPending,
		ScheduledFor:   &scheduledFor,
	}
	f.store.jobs[job.ID] = job

	f.pub.On("Publish", mock.Anything, asOrganization(page.OrganizationURN)).
		Run(func(mock.Arguments) {
			f.store.mu.Lock()
			defer f.store.mu.Unlock()
			job.Status = models.CrossPostFailed
			job.ErrorMessage = store.InterruptedMessage
		}).
		Return(published("company-9"), nil).Once()

	summary := f.run()

	assert.Equal(t, models.CrossPostPublished, job.Status)
	assert.Equal(t, "company-9", job.ExternalPostID)
	assert.Equal(t, Counter{Attempted: 1, Success: 1}, summary.Company)
}

func TestRun_SelectionErrorIsolatedToCategory(t *testing.T) {
	f := newFixture(t)
	acc := f.addAccount("acc-1", models.AccountOK, true)
	f.addAuthoredItem(&acc.ProfileID, "Still goes out")
	f.store.selectErr[models.SourceLegacy] = errors.New("connection reset")

	f.pub.On("Publish", mock.Anything, forAccount("acc-1")).Return(published("personal-1"), nil).Once()

	summary := f.run()

	assert.Equal(t, 0, summary.Legacy.Attempted)
	assert.Equal(t, []ItemResult{}, summary.Results)
	assert.Equal(t, 1, summary.Production.Success)
	assert.Contains(t, f.recorder.failures, "selector: connection reset")
}

func TestRun_RecordsRunAndReleasesStaleClaims(t *testing.T) {
	f := newFixture(t)

	summary := f.run()

	assert.Equal(t, "Processed 0 legacy + 0 production + 0 company posts", summary.Message)
	assert.Equal(t, testNow.Add(-15*time.Minute), f.store.staleCutoff)
	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, "test", f.recorder.runs[0].Trigger)
	assert.Equal(t, testNow, f.recorder.runs[0].StartedAt)
}

func TestSummary_JSONShape(t *testing.T) {
	summary := NewSummary(nil, []ItemResult{{ID: "a", Success: true}, {ID: "b", Skipped: true}}, nil)

	data, err := json.Marshal(summary)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"message", "legacy", "production", "company", "results", "productionResults", "companyPostResults"} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, []interface{}{}, decoded["results"])

	production := decoded["production"].(map[string]interface{})
	assert.Equal(t, float64(2), production["attempted"])
	assert.Equal(t, float64(1), production["success"])
	assert.Equal(t, float64(1), production["skipped"])
	assert.Equal(t, float64(0), production["failed"])
}

func TestComposeCrossPostContent(t *testing.T) {
	tests := []struct {
		name, prefix, suffix, want string
	}{
		{name: "body only", want: "Body"},
		{name: "prefix", prefix: "Hi", want: "Hi\n\nBody"},
		{name: "suffix", suffix: "#tag", want: "Body\n\n#tag"},
		{name: "both", prefix: "Hi", suffix: "#tag", want: "Hi\n\nBody\n\n#tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, composeCrossPostContent(tt.prefix, "Body", tt.suffix))
		})
	}
}
