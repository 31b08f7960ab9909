package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Attachment is a media reference stored as JSON on an item.
type Attachment struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Mention tags a profile inside a post.
type Mention struct {
	Name      string `json:"name"`
	ProfileID string `json:"profile_id"`
}

// ScheduledItem is a post created through the legacy scheduling flow.
type ScheduledItem struct {
	ID           uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	Content      string                          `gorm:"type:text;not null" json:"content"`
	ScheduledAt  time.Time                       `gorm:"not null;index" json:"scheduled_at"`
	Status       ScheduledItemStatus             `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ErrorMessage string                          `gorm:"type:text" json:"error_message"`
	Attachments  datatypes.JSONSlice[Attachment] `gorm:"type:jsonb" json:"attachments"`
	PublishedAt  *time.Time                      `json:"published_at"`
	CreatedAt    time.Time                       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                       `gorm:"autoUpdateTime" json:"updated_at"`

	Targets []ScheduledItemTarget `gorm:"foreignKey:ScheduledItemID" json:"targets"`
}

func (ScheduledItem) TableName() string {
	return "scheduled_posts"
}

func (s *ScheduledItem) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ScheduledItemTarget binds a legacy item to one posting account and keeps
// that account's own publish outcome.
type ScheduledItemTarget struct {
	ID               uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduledItemID  uuid.UUID           `gorm:"column:scheduled_post_id;type:uuid;not null;index" json:"scheduled_post_id"`
	PostingAccountID uuid.UUID           `gorm:"type:uuid;not null;index" json:"posting_account_id"`
	ContentOverride  string              `gorm:"type:text" json:"content_override"`
	Status           ScheduledItemStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	ExternalPostID   string              `gorm:"size:255" json:"external_post_id"`
	ErrorMessage     string              `gorm:"type:text" json:"error_message"`
	PublishedAt      *time.Time          `json:"published_at"`

	Account PostingAccount `gorm:"foreignKey:PostingAccountID" json:"account"`
}

func (ScheduledItemTarget) TableName() string {
	return "scheduled_post_accounts"
}

func (t *ScheduledItemTarget) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TextFor returns the content to publish for the given target.
func (s *ScheduledItem) TextFor(target ScheduledItemTarget) string {
	if target.ContentOverride != "" {
		return target.ContentOverride
	}
	return s.Content
}
