package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentSnapshotLength is the number of runes of content kept on a
// PublishedRecord.
const ContentSnapshotLength = 500

// PublishedRecord is the append-only history of successful publishes.
type PublishedRecord struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"profile_id"`
	PostingAccountID uuid.UUID  `gorm:"column:unipile_account_id;type:uuid;not null" json:"posting_account_id"`
	ExternalPostID   string     `gorm:"size:255;not null" json:"external_post_id"`
	PostURL          string     `gorm:"type:text" json:"post_url"`
	Content          string     `gorm:"type:text" json:"content"`
	PublishedAt      time.Time  `gorm:"not null;index" json:"published_at"`
	AuthoredItemID   *uuid.UUID `gorm:"column:production_post_id;type:uuid;index" json:"production_post_id,omitempty"`
	ScheduledItemID  *uuid.UUID `gorm:"column:scheduled_post_id;type:uuid;index" json:"scheduled_post_id,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (PublishedRecord) TableName() string {
	return "published_posts"
}

func (p *PublishedRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
