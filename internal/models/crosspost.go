package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CrossPostContentLength caps the text of a cross-post.
const CrossPostContentLength = 3000

// CrossPostRule republishes an author's posts to an organization page.
type CrossPostRule struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceProfileID  uuid.UUID `gorm:"type:uuid;not null;index" json:"source_profile_id"`
	TargetPageID     uuid.UUID `gorm:"column:target_company_page_id;type:uuid;not null" json:"target_company_page_id"`
	PostDelayMinutes int       `gorm:"default:0" json:"post_delay_minutes"`
	AddPrefix        string    `gorm:"type:text" json:"add_prefix"`
	AddSuffix        string    `gorm:"type:text" json:"add_suffix"`
	IsActive         bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Page OrganizationPage `gorm:"foreignKey:TargetPageID" json:"page"`
}

func (CrossPostRule) TableName() string {
	return "company_auto_post_rules"
}

func (r *CrossPostRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Delay returns the configured wait before cross-posting.
func (r *CrossPostRule) Delay() time.Duration {
	if r.PostDelayMinutes <= 0 {
		return 0
	}
	return time.Duration(r.PostDelayMinutes) * time.Minute
}

// OrganizationPage is a company page administered through a posting account.
type OrganizationPage struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationURN string    `gorm:"size:255;not null" json:"organization_urn"`
	Name            string    `gorm:"size:255" json:"name"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	AdminAccountID  uuid.UUID `gorm:"column:unipile_account_id;type:uuid;not null" json:"admin_account_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	AdminAccount PostingAccount `gorm:"foreignKey:AdminAccountID" json:"admin_account"`
}

func (OrganizationPage) TableName() string {
	return "company_pages"
}

func (p *OrganizationPage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Publishable reports whether the page can receive posts right now. The
// admin account must be preloaded.
func (p *OrganizationPage) Publishable() bool {
	return p.IsActive && p.AdminAccount.Status == AccountOK
}

// CrossPostJob is one cross-post of an authored item to an organization page.
type CrossPostJob struct {
	ID                      uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	OriginalPostID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"original_post_id"`
	OriginalPublishedPostID *uuid.UUID         `gorm:"type:uuid" json:"original_published_post_id"`
	CompanyPageID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"company_page_id"`
	RuleID                  *uuid.UUID         `gorm:"type:uuid" json:"rule_id"`
	Content                 string             `gorm:"type:text;not null" json:"content"`
	Status                  CrossPostJobStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ScheduledFor            *time.Time         `gorm:"index" json:"scheduled_for"`
	ExternalPostID          string             `gorm:"size:255" json:"external_post_id"`
	PostURL                 string             `gorm:"type:text" json:"post_url"`
	ErrorMessage            string             `gorm:"type:text" json:"error_message"`
	PublishedAt             *time.Time         `json:"published_at"`
	CreatedAt               time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	Page OrganizationPage `gorm:"foreignKey:CompanyPageID" json:"page"`
}

func (CrossPostJob) TableName() string {
	return "company_published_posts"
}

func (j *CrossPostJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
