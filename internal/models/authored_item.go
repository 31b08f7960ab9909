package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuthoredItem is a post produced by the content authoring flow.
type AuthoredItem struct {
	ID              uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string                          `gorm:"size:500" json:"title"`
	FinalContent    *string                         `gorm:"type:text" json:"final_content"`
	AuthorID        *uuid.UUID                      `gorm:"type:uuid;index" json:"author_id"`
	PublicationDate *time.Time                      `gorm:"index" json:"publication_date"`
	Status          AuthoredItemStatus              `gorm:"size:20;not null;default:'draft';index" json:"status"`
	MediaURL        string                          `gorm:"type:text" json:"media_url"`
	MediaType       string                          `gorm:"size:50" json:"media_type"`
	Attachments     datatypes.JSONSlice[Attachment] `gorm:"type:jsonb" json:"attachments"`
	Mentions        datatypes.JSONSlice[Mention]    `gorm:"type:jsonb" json:"mentions"`
	ErrorMessage    string                          `gorm:"type:text" json:"error_message"`
	CreatedAt       time.Time                       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AuthoredItem) TableName() string {
	return "production_posts"
}

func (a *AuthoredItem) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Content returns the final content, or "" when it was never set.
func (a *AuthoredItem) Content() string {
	if a.FinalContent == nil {
		return ""
	}
	return *a.FinalContent
}

// MediaAttachments lists the media to attach: media_url first, then the
// older attachments column. Both are used, duplicates are dropped.
func (a *AuthoredItem) MediaAttachments() []Attachment {
	var out []Attachment
	seen := make(map[string]bool)

	if a.MediaURL != "" {
		mediaType := a.MediaType
		if mediaType == "" {
			mediaType = "image"
		}
		out = append(out, Attachment{URL: a.MediaURL, Type: mediaType})
		seen[a.MediaURL] = true
	}

	for _, att := range a.Attachments {
		if att.URL == "" || seen[att.URL] {
			continue
		}
		seen[att.URL] = true
		out = append(out, att)
	}

	return out
}
