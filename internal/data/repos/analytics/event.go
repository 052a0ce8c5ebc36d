package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

// DailyCount is one day's event volume.
type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// NameCount is one event name's volume over a window.
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type EventRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, events []*types.AnalyticsEvent) error
	CountPerDay(ctx context.Context, tx *gorm.DB, since time.Time) ([]DailyCount, error)
	TopNames(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]NameCount, error)
	UniqueVisitors(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	repoLog := baseLog.With("repo", "EventRepo")
	return &eventRepo{db: db, log: repoLog}
}

func (er *eventRepo) CreateBatch(ctx context.Context, tx *gorm.DB, events []*types.AnalyticsEvent) error {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	if len(events) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&events).Error
}

func (er *eventRepo) CountPerDay(ctx context.Context, tx *gorm.DB, since time.Time) ([]DailyCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	var results []DailyCount
	if err := transaction.WithContext(ctx).
		Model(&types.AnalyticsEvent{}).
		Select("DATE_TRUNC('day', created_at) AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("day").
		Order("day ASC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (er *eventRepo) TopNames(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]NameCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	if limit <= 0 {
		limit = 10
	}

	var results []NameCount
	if err := transaction.WithContext(ctx).
		Model(&types.AnalyticsEvent{}).
		Select("name, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("name").
		Order("count DESC").
		Limit(limit).
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (er *eventRepo) UniqueVisitors(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.AnalyticsEvent{}).
		Where("created_at >= ? AND distinct_id <> ''", since).
		Distinct("distinct_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (er *eventRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	res := transaction.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&types.AnalyticsEvent{})
	return res.RowsAffected, res.Error
}
