package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ifuryst/herald/internal/models"
)

// GormStore implements Store on top of a gorm connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

// DueScheduledItems also returns items with no target rows, so the executor
// fails them instead of leaving them pending forever.
func (s *GormStore) DueScheduledItems(ctx context.Context, now time.Time, limit int) ([]models.ScheduledItem, error) {
	var items []models.ScheduledItem
	err := s.db.WithContext(ctx).
		Preload("Targets.Account").
		Where("status = ? AND scheduled_at <= ?", models.ScheduledItemPending, now).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select due scheduled posts: %w", err)
	}
	return items, nil
}

func (s *GormStore) DueAuthoredItems(ctx context.Context, now time.Time, limit int) ([]models.AuthoredItem, error) {
	var items []models.AuthoredItem
	err := s.db.WithContext(ctx).
		Where("status = ? AND publication_date <= ? AND final_content IS NOT NULL", models.AuthoredItemScheduled, now).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select due production posts: %w", err)
	}
	return items, nil
}

func (s *GormStore) DueCrossPostJobs(ctx context.Context, now time.Time, limit int) ([]models.CrossPostJob, error) {
	var jobs []models.CrossPostJob
	err := s.db.WithContext(ctx).
		Preload("Page.AdminAccount").
		Where("status = ? AND scheduled_for <= ?", models.CrossPostPending, now).
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select due company posts: %w", err)
	}
	return jobs, nil
}

func (s *GormStore) TransitionScheduledItem(ctx context.Context, id uuid.UUID, from, to models.ScheduledItemStatus, out Outcome) error {
	if err := from.ValidateTransition(to); err != nil {
		return err
	}

	return s.casUpdate(ctx, &models.ScheduledItem{}, id, from, scheduledUpdates(to, out))
}

func scheduledUpdates(to models.ScheduledItemStatus, out Outcome) map[string]interface{} {
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.ScheduledItemPublished:
		updates["published_at"] = out.At
		updates["error_message"] = ""
	case models.ScheduledItemFailed:
		updates["error_message"] = FailureMessage(out.ErrorMessage)
	}
	return updates
}

func (s *GormStore) TransitionAuthoredItem(ctx context.Context, id uuid.UUID, from, to models.AuthoredItemStatus, out Outcome) error {
	if err := from.ValidateTransition(to); err != nil {
		return err
	}

	return s.casUpdate(ctx, &models.AuthoredItem{}, id, from, authoredUpdates(to, out))
}

func authoredUpdates(to models.AuthoredItemStatus, out Outcome) map[string]interface{} {
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.AuthoredItemPublished:
		updates["publication_date"] = out.At
		updates["error_message"] = ""
	case models.AuthoredItemValidated:
		updates["error_message"] = FailureMessage(out.ErrorMessage)
	}
	return updates
}

func (s *GormStore) TransitionCrossPostJob(ctx context.Context, id uuid.UUID, from, to models.CrossPostJobStatus, out Outcome) error {
	if err := from.ValidateTransition(to); err != nil {
		return err
	}

	return s.casUpdate(ctx, &models.CrossPostJob{}, id, from, crossPostUpdates(to, out))
}

func crossPostUpdates(to models.CrossPostJobStatus, out Outcome) map[string]interface{} {
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.CrossPostPublished:
		updates["external_post_id"] = out.ExternalPostID
		updates["post_url"] = out.PostURL
		updates["published_at"] = out.At
		updates["error_message"] = ""
	case models.CrossPostFailed:
		updates["error_message"] = FailureMessage(out.ErrorMessage)
	}
	return updates
}

func (s *GormStore) ConfirmScheduledItemPublished(ctx context.Context, id uuid.UUID, out Outcome) error {
	return s.forceUpdate(ctx, &models.ScheduledItem{}, id, scheduledUpdates(models.ScheduledItemPublished, out))
}

func (s *GormStore) ConfirmAuthoredItemPublished(ctx context.Context, id uuid.UUID, out Outcome) error {
	return s.forceUpdate(ctx, &models.AuthoredItem{}, id, authoredUpdates(models.AuthoredItemPublished, out))
}

func (s *GormStore) ConfirmCrossPostJobPublished(ctx context.Context, id uuid.UUID, out Outcome) error {
	return s.forceUpdate(ctx, &models.CrossPostJob{}, id, crossPostUpdates(models.CrossPostPublished, out))
}

func (s *GormStore) RenewScheduledClaim(ctx context.Context, id uuid.UUID) error {
	return s.casUpdate(ctx, &models.ScheduledItem{}, id, models.ScheduledItemProcessing,
		map[string]interface{}{"updated_at": time.Now()})
}

// casUpdate applies updates only when the row still has status from.
func (s *GormStore) casUpdate(ctx context.Context, model interface{}, id uuid.UUID, from interface{}, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update status of %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrClaimLost
	}
	return nil
}

// forceUpdate applies updates whatever the current status is.
func (s *GormStore) forceUpdate(ctx context.Context, model interface{}, id uuid.UUID, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update status of %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UpdateScheduledTarget(ctx context.Context, target *models.ScheduledItemTarget) error {
	err := s.db.WithContext(ctx).
		Model(&models.ScheduledItemTarget{}).
		Where("id = ?", target.ID).
		Updates(map[string]interface{}{
			"status":           target.Status,
			"external_post_id": target.ExternalPostID,
			"error_message":    target.ErrorMessage,
			"published_at":     target.PublishedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update scheduled post account %s: %w", target.ID, err)
	}
	return nil
}

func (s *GormStore) FindEligibleAccount(ctx context.Context, profileID uuid.UUID, provider string) (*models.PostingAccount, error) {
	var account models.PostingAccount
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND provider = ? AND status = ? AND is_active = ?", profileID, provider, models.AccountOK, true).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find posting account: %w", err)
	}
	return &account, nil
}

func (s *GormStore) GetAuthoredItem(ctx context.Context, id uuid.UUID) (*models.AuthoredItem, error) {
	var item models.AuthoredItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get production post %s: %w", id, err)
	}
	return &item, nil
}

func (s *GormStore) ActiveCrossPostRules(ctx context.Context, profileID uuid.UUID) ([]models.CrossPostRule, error) {
	var rules []models.CrossPostRule
	err := s.db.WithContext(ctx).
		Preload("Page.AdminAccount").
		Where("source_profile_id = ? AND is_active = ?", profileID, true).
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load company auto post rules: %w", err)
	}
	return rules, nil
}

func (s *GormStore) CreatePublishedRecord(ctx context.Context, record *models.PublishedRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create published post: %w", err)
	}
	return nil
}

func (s *GormStore) CreateCrossPostJob(ctx context.Context, job *models.CrossPostJob) error {
	// The page is read-only here, never upsert it through the association.
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create company post: %w", err)
	}
	return nil
}

func (s *GormStore) ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	stale := []struct {
		model      interface{}
		claimed    string
		failedInto string
	}{
		{&models.ScheduledItem{}, string(models.ScheduledItemProcessing), string(models.ScheduledItemFailed)},
		{&models.AuthoredItem{}, string(models.AuthoredItemPublishing), string(models.AuthoredItemValidated)},
		{&models.CrossPostJob{}, string(models.CrossPostPublishing), string(models.CrossPostFailed)},
	}

	var released int64
	for _, st := range stale {
		result := s.db.WithContext(ctx).
			Model(st.model).
			Where("status = ? AND updated_at < ?", st.claimed, cutoff).
			Updates(map[string]interface{}{
				"status":        st.failedInto,
				"error_message": InterruptedMessage,
			})
		if result.Error != nil {
			return released, fmt.Errorf("failed to release stale claims: %w", result.Error)
		}
		released += result.RowsAffected
	}

	return released, nil
}
