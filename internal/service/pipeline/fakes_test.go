package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ifuryst/herald/internal/models"
	"github.com/ifuryst/herald/internal/service/engagement"
	"github.com/ifuryst/herald/internal/service/publisher"
	"github.com/ifuryst/herald/internal/store"
)

// memStore is an in-memory store.Store with the same compare-and-swap
// semantics as the gorm implementation.
type memStore struct {
	mu sync.Mutex

	scheduled map[uuid.UUID]*models.ScheduledItem
	authored  map[uuid.UUID]*models.AuthoredItem
	accounts  []models.PostingAccount
	rules     []models.CrossPostRule
	pages     map[uuid.UUID]models.OrganizationPage
	jobs      map[uuid.UUID]*models.CrossPostJob
	records   []models.PublishedRecord

	terminalWrites map[uuid.UUID]int
	selectErr      map[models.Source]error
	rulesLookups   int
	staleCutoff    time.Time
	renewals       map[uuid.UUID]int

	// publishedWriteErr fails every write of a published status.
	publishedWriteErr error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		scheduled:      map[uuid.UUID]*models.ScheduledItem{},
		authored:       map[uuid.UUID]*models.AuthoredItem{},
		pages:          map[uuid.UUID]models.OrganizationPage{},
		jobs:           map[uuid.UUID]*models.CrossPostJob{},
		terminalWrites: map[uuid.UUID]int{},
		selectErr:      map[models.Source]error{},
		renewals:       map[uuid.UUID]int{},
	}
}

func (m *memStore) DueScheduledItems(ctx context.Context, now time.Time, limit int) ([]models.ScheduledItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.selectErr[models.SourceLegacy]; err != nil {
		return nil, err
	}

	var out []models.ScheduledItem
	for _, item := range m.scheduled {
		if item.Status == models.ScheduledItemPending && !item.ScheduledAt.After(now) && len(out) < limit {
			cp := *item
			cp.Targets = append([]models.ScheduledItemTarget(nil), item.Targets...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *memStore) DueAuthoredItems(ctx context.Context, now time.Time, limit int) ([]models.AuthoredItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.selectErr[models.SourceProduction]; err != nil {
		return nil, err
	}

	var out []models.AuthoredItem
	for _, item := range m.authored {
		if item.Status == models.AuthoredItemScheduled && item.FinalContent != nil &&
			item.PublicationDate != nil && !item.PublicationDate.After(now) && len(out) < limit {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *memStore) DueCrossPostJobs(ctx context.Context, now time.Time, limit int) ([]models.CrossPostJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.selectErr[models.SourceCompany]; err != nil {
		return nil, err
	}

	var out []models.CrossPostJob
	for _, job := range m.jobs {
		if job.Status == models.CrossPostPending && job.ScheduledFor != nil && !job.ScheduledFor.After(now) && len(out) < limit {
			cp := *job
			cp.Page = m.pages[job.CompanyPageID]
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *memStore) TransitionScheduledItem(ctx context.Context, id uuid.UUID, from, to models.ScheduledItemStatus, out store.Outcome) error {
	if err := from.ValidateTransition(to); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == models.ScheduledItemPublished && m.publishedWriteErr != nil {
		return m.publishedWriteErr
	}
	item, ok := m.scheduled[id]
	if !ok || item.Status != from {
		return store.ErrClaimLost
	}
	m.applyScheduled(item, to, out)
	return nil
}

func (m *memStore) applyScheduled(item *models.ScheduledItem, to models.ScheduledItemStatus, out store.Outcome) {
	item.Status = to
	switch to {
	case models.ScheduledItemPublished:
		at := out.At
		item.PublishedAt = &at
		item.ErrorMessage = ""
	case models.ScheduledItemFailed:
		item.ErrorMessage = store.FailureMessage(out.ErrorMessage)
	}
	if to.IsTerminal() {
		m.terminalWrites[item.ID]++
	}
}

func (m *memStore) TransitionAuthoredItem(ctx context.Context, id uuid.UUID, from, to models.AuthoredItemStatus, out store.Outcome) error {
	if err := from.ValidateTransition(to); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == models.AuthoredItemPublished && m.publishedWriteErr != nil {
		return m.publishedWriteErr
	}
	item, ok := m.authored[id]
	if !ok || item.Status != from {
		return store.ErrClaimLost
	}
	m.applyAuthored(item, to, out)
	return nil
}

func (m *memStore) applyAuthored(item *models.AuthoredItem, to models.AuthoredItemStatus, out store.Outcome) {
	item.Status = to
	switch to {
	case models.AuthoredItemPublished:
		at := out.At
		item.PublicationDate = &at
		item.ErrorMessage = ""
		m.terminalWrites[item.ID]++
	case models.AuthoredItemValidated:
		item.ErrorMessage = store.FailureMessage(out.ErrorMessage)
		m.terminalWrites[item.ID]++
	}
}

func (m *memStore) TransitionCrossPostJob(ctx context.Context, id uuid.UUID, from, to models.CrossPostJobStatus, out store.Outcome) error {
	if err := from.ValidateTransition(to); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == models.CrossPostPublished && m.publishedWriteErr != nil {
		return m.publishedWriteErr
	}
	job, ok := m.jobs[id]
	if !ok || job.Status != from {
		return store.ErrClaimLost
	}
	m.applyCrossPost(job, to, out)
	return nil
}

func (m *memStore) applyCrossPost(job *models.CrossPostJob, to models.CrossPostJobStatus, out store.Outcome) {
	job.Status = to
	switch to {
	case models.CrossPostPublished:
		at := out.At
		job.ExternalPostID = out.ExternalPostID
		job.PostURL = out.PostURL
		job.PublishedAt = &at
	case models.CrossPostFailed:
		job.ErrorMessage = store.FailureMessage(out.ErrorMessage)
	}
	if to.IsTerminal() {
		m.terminalWrites[job.ID]++
	}
}

func (m *memStore) RenewScheduledClaim(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.scheduled[id]
	if !ok || item.Status != models.ScheduledItemProcessing {
		return store.ErrClaimLost
	}
	m.renewals[id]++
	return nil
}

func (m *memStore) ConfirmScheduledItemPublished(ctx context.Context, id uuid.UUID, out store.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishedWriteErr != nil {
		return m.publishedWriteErr
	}
	item, ok := m.scheduled[id]
	if !ok {
		return store.ErrNotFound
	}
	m.applyScheduled(item, models.ScheduledItemPublished, out)
	return nil
}

func (m *memStore) ConfirmAuthoredItemPublished(ctx context.Context, id uuid.UUID, out store.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishedWriteErr != nil {
		return m.publishedWriteErr
	}
	item, ok := m.authored[id]
	if !ok {
		return store.ErrNotFound
	}
	m.applyAuthored(item, models.AuthoredItemPublished, out)
	return nil
}

func (m *memStore) ConfirmCrossPostJobPublished(ctx context.Context, id uuid.UUID, out store.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishedWriteErr != nil {
		return m.publishedWriteErr
	}
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	m.applyCrossPost(job, models.CrossPostPublished, out)
	return nil
}

func (m *memStore) UpdateScheduledTarget(ctx context.Context, target *models.ScheduledItemTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.scheduled[target.ScheduledItemID]
	if !ok {
		return store.ErrNotFound
	}
	for i := range item.Targets {
		if item.Targets[i].ID == target.ID {
			item.Targets[i] = *target
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) FindEligibleAccount(ctx context.Context, profileID uuid.UUID, provider string) (*models.PostingAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, acc := range m.accounts {
		if acc.ProfileID == profileID && acc.Provider == provider && acc.Eligible() {
			cp := acc
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetAuthoredItem(ctx context.Context, id uuid.UUID) (*models.AuthoredItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.authored[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *memStore) ActiveCrossPostRules(ctx context.Context, profileID uuid.UUID) ([]models.CrossPostRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rulesLookups++
	var out []models.CrossPostRule
	for _, rule := range m.rules {
		if rule.SourceProfileID == profileID && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (m *memStore) CreatePublishedRecord(ctx context.Context, record *models.PublishedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *memStore) CreateCrossPostJob(ctx context.Context, job *models.CrossPostJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memStore) ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.staleCutoff = cutoff
	return 0, nil
}

func (m *memStore) jobsList() []models.CrossPostJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.CrossPostJob
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	return out
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, req publisher.PublishRequest) (*publisher.PublishResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*publisher.PublishResult)
	return res, args.Error(1)
}

func published(postID string) *publisher.PublishResult {
	return &publisher.PublishResult{
		PostID: postID,
		URL:    "https://www.linkedin.com/feed/update/" + postID,
	}
}

func forAccount(accountID string) interface{} {
	return mock.MatchedBy(func(req publisher.PublishRequest) bool {
		return req.AccountID == accountID && req.AsOrganization == ""
	})
}

func asOrganization(urn string) interface{} {
	return mock.MatchedBy(func(req publisher.PublishRequest) bool {
		return req.AsOrganization == urn
	})
}

type recordingDispatcher struct {
	mu       sync.Mutex
	triggers []engagement.Trigger
}

func (d *recordingDispatcher) Dispatch(trigger engagement.Trigger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.triggers = append(d.triggers, trigger)
}

type recordingRecorder struct {
	mu       sync.Mutex
	failures []string
	recorded []Failure
	runs     []*models.PipelineRun
}

func (r *recordingRecorder) RecordFailure(ctx context.Context, f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f.Source+": "+f.Message)
	r.recorded = append(r.recorded, f)
}

func (r *recordingRecorder) RecordRun(ctx context.Context, run *models.PipelineRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
}
