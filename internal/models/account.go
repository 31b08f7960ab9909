package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostingAccount is a social account connected through the posting API.
// The pipeline only reads it.
type PostingAccount struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"profile_id"`
	Provider          string        `gorm:"size:50;not null" json:"provider"`
	ExternalAccountID string        `gorm:"column:unipile_account_id;size:255;not null" json:"external_account_id"`
	Status            AccountStatus `gorm:"size:20;not null" json:"status"`
	IsActive          bool          `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PostingAccount) TableName() string {
	return "unipile_accounts"
}

func (p *PostingAccount) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Eligible reports whether posts can be published through this account.
func (p *PostingAccount) Eligible() bool {
	return p.Status == AccountOK && p.IsActive
}
