package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PipelineRun 每次调度执行的汇总记录
type PipelineRun struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Trigger             string     `gorm:"size:50;not null;index" json:"trigger"` // http, scheduler, cli
	StartedAt           time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt          *time.Time `json:"finished_at"`
	LegacyAttempted     int        `gorm:"default:0" json:"legacy_attempted"`
	LegacySuccess       int        `gorm:"default:0" json:"legacy_success"`
	LegacyFailed        int        `gorm:"default:0" json:"legacy_failed"`
	ProductionAttempted int        `gorm:"default:0" json:"production_attempted"`
	ProductionSuccess   int        `gorm:"default:0" json:"production_success"`
	ProductionFailed    int        `gorm:"default:0" json:"production_failed"`
	CompanyAttempted    int        `gorm:"default:0" json:"company_attempted"`
	CompanySuccess      int        `gorm:"default:0" json:"company_success"`
	CompanyFailed       int        `gorm:"default:0" json:"company_failed"`
	Skipped             int        `gorm:"default:0" json:"skipped"` // claims lost to a concurrent run
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (p *PipelineRun) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Duration 运行耗时
func (p *PipelineRun) Duration() time.Duration {
	if p.FinishedAt == nil {
		return 0
	}
	return p.FinishedAt.Sub(p.StartedAt)
}

// ErrorLog 错误日志表
type ErrorLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Level      string         `gorm:"size:20;not null;index" json:"level"` // ERROR, WARN, INFO
	Source     string         `gorm:"size:100;not null;index" json:"source"` // legacy, production, company, selector
	ItemID     string         `gorm:"size:64;index" json:"item_id"`
	RunID      *uuid.UUID     `gorm:"type:uuid;index" json:"run_id"`
	Title      string         `gorm:"size:500;not null" json:"title"`
	Message    string         `gorm:"type:text;not null" json:"message"`
	Context    datatypes.JSON `gorm:"type:jsonb" json:"context"`
	Resolved   bool           `gorm:"default:false;index" json:"resolved"`
	ResolvedAt *time.Time     `json:"resolved_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (e *ErrorLog) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
