package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/herald/internal/models"
	"github.com/ifuryst/herald/internal/service/pipeline"
)

const (
	LevelError = "ERROR"
	LevelWarn  = "WARN"
)

// MonitoringService persists run history and failures, and forwards
// failures to Sentry when it is configured.
type MonitoringService struct {
	db     *gorm.DB
	logger *zap.Logger
	sentry bool
}

func NewMonitoringService(db *gorm.DB, logger *zap.Logger, sentryEnabled bool) *MonitoringService {
	return &MonitoringService{
		db:     db,
		logger: logger,
		sentry: sentryEnabled,
	}
}

// RecordError 记录错误日志
func (m *MonitoringService) RecordError(ctx context.Context, level, source, title, message string, options ...ErrorLogOption) error {
	errorLog := &models.ErrorLog{
		Level:   level,
		Source:  source,
		Title:   title,
		Message: message,
	}

	// 应用选项
	for _, option := range options {
		option(errorLog)
	}

	if m.sentry && level == LevelError {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("source", source)
			if errorLog.ItemID != "" {
				scope.SetTag("item_id", errorLog.ItemID)
			}
			sentry.CaptureException(fmt.Errorf("%s: %s", title, message))
		})
	}

	return m.db.WithContext(ctx).Create(errorLog).Error
}

// ErrorLogOption 错误日志选项
type ErrorLogOption func(*models.ErrorLog)

// WithItem 设置相关条目ID
func WithItem(itemID string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.ItemID = itemID
	}
}

// WithContext 设置上下文信息
func WithContext(context map[string]interface{}) ErrorLogOption {
	return func(e *models.ErrorLog) {
		if contextBytes, err := json.Marshal(context); err == nil {
			e.Context = contextBytes
		}
	}
}

// RecordFailure stores a failed item. It satisfies pipeline.Recorder.
func (m *MonitoringService) RecordFailure(ctx context.Context, f pipeline.Failure) {
	level := LevelError
	if f.Warning {
		level = LevelWarn
	}

	options := []ErrorLogOption{WithItem(f.ItemID)}
	if len(f.Context) > 0 {
		options = append(options, WithContext(f.Context))
	}

	if err := m.RecordError(ctx, level, f.Source, f.Title, f.Message, options...); err != nil {
		m.logger.Error("Failed to record error log",
			zap.String("source", f.Source),
			zap.String("item_id", f.ItemID),
			zap.Error(err))
	}
}

// RecordRun stores the outcome of a pipeline run.
func (m *MonitoringService) RecordRun(ctx context.Context, run *models.PipelineRun) {
	if err := m.db.WithContext(ctx).Create(run).Error; err != nil {
		m.logger.Error("Failed to record pipeline run", zap.Error(err))
	}
}

// GetRecentRuns 获取最近的运行记录
func (m *MonitoringService) GetRecentRuns(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	var runs []models.PipelineRun
	err := m.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// GetRecentErrors 获取最近的错误日志
func (m *MonitoringService) GetRecentErrors(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	var errors []models.ErrorLog
	err := m.db.WithContext(ctx).Where("resolved = ?", false).Order("created_at DESC").Limit(limit).Find(&errors).Error
	return errors, err
}

// CleanupOldData 清理旧数据
func (m *MonitoringService) CleanupOldData(ctx context.Context, daysToKeep int) error {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)

	if err := m.db.WithContext(ctx).Where("started_at < ?", cutoff).Delete(&models.PipelineRun{}).Error; err != nil {
		return fmt.Errorf("failed to cleanup pipeline runs: %w", err)
	}

	// 只清理已解决的错误日志
	if err := m.db.WithContext(ctx).Where("created_at < ? AND resolved = ?", cutoff, true).Delete(&models.ErrorLog{}).Error; err != nil {
		return fmt.Errorf("failed to cleanup error logs: %w", err)
	}

	return nil
}
