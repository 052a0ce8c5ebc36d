package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	analyticsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/analytics"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/observability"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/envutil"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"gorm.io/datatypes"
)

// maxEventBatch bounds one ingest call; anything larger is rejected
// rather than truncated.
const maxEventBatch = 50

type EventInput struct {
	Name       string         `json:"name"`
	DistinctID string         `json:"distinct_id"`
	SessionID  string         `json:"session_id"`
	URL        string         `json:"url"`
	Referrer   string         `json:"referrer"`
	Props      map[string]any `json:"props"`
}

type AnalyticsSummary struct {
	PerDay         []analyticsrepo.DailyCount `json:"per_day"`
	TopNames       []analyticsrepo.NameCount  `json:"top_names"`
	UniqueVisitors int64                      `json:"unique_visitors"`
	WindowDays     int                        `json:"window_days"`
}

type AnalyticsService interface {
	Ingest(ctx context.Context, events []EventInput) (int, error)
	Summary(ctx context.Context, windowDays int) (*AnalyticsSummary, error)
	Retention(ctx context.Context) (int64, error)
}

type analyticsService struct {
	db            *gorm.DB
	log           *logger.Logger
	eventRepo     analyticsrepo.EventRepo
	retentionDays int
}

func NewAnalyticsService(db *gorm.DB, log *logger.Logger, eventRepo analyticsrepo.EventRepo) AnalyticsService {
	serviceLog := log.With("service", "AnalyticsService")
	return &analyticsService{
		db:            db,
		log:           serviceLog,
		eventRepo:     eventRepo,
		retentionDays: envutil.Int("ANALYTICS_RETENTION_DAYS", 180),
	}
}

func (an *analyticsService) Ingest(ctx context.Context, events []EventInput) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	if len(events) > maxEventBatch {
		return 0, apierr.BadRequest("batch_too_large", fmt.Errorf("at most %d events per call", maxEventBatch))
	}

	rows := make([]*types.AnalyticsEvent, 0, len(events))
	for _, in := range events {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return 0, apierr.BadRequest("missing_name", fmt.Errorf("every event needs a name"))
		}
		row := &types.AnalyticsEvent{
			Name:       name,
			DistinctID: in.DistinctID,
			SessionID:  in.SessionID,
			URL:        in.URL,
			Referrer:   in.Referrer,
		}
		if len(in.Props) > 0 {
			raw, err := json.Marshal(in.Props)
			if err != nil {
				return 0, apierr.BadRequest("invalid_props", fmt.Errorf("props not serializable: %w", err))
			}
			row.Props = datatypes.JSON(raw)
		}
		rows = append(rows, row)
	}

	if err := an.eventRepo.CreateBatch(ctx, nil, rows); err != nil {
		return 0, fmt.Errorf("store events: %w", err)
	}
	observability.Current().AddAnalyticsEvents(len(rows))
	return len(rows), nil
}

func (an *analyticsService) Summary(ctx context.Context, windowDays int) (*AnalyticsSummary, error) {
	if windowDays < 1 {
		windowDays = 30
	}
	if windowDays > 365 {
		windowDays = 365
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	perDay, err := an.eventRepo.CountPerDay(ctx, nil, since)
	if err != nil {
		return nil, fmt.Errorf("count per day: %w", err)
	}
	topNames, err := an.eventRepo.TopNames(ctx, nil, since, 10)
	if err != nil {
		return nil, fmt.Errorf("top names: %w", err)
	}
	visitors, err := an.eventRepo.UniqueVisitors(ctx, nil, since)
	if err != nil {
		return nil, fmt.Errorf("unique visitors: %w", err)
	}
	return &AnalyticsSummary{
		PerDay:         perDay,
		TopNames:       topNames,
		UniqueVisitors: visitors,
		WindowDays:     windowDays,
	}, nil
}

// Retention drops events past the configured window. Run from cron.
func (an *analyticsService) Retention(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -an.retentionDays)
	n, err := an.eventRepo.DeleteOlderThan(ctx, nil, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	if n > 0 {
		an.log.Info("pruned analytics events", "count", n, "cutoff", cutoff.Format("2006-01-02"))
	}
	return n, nil
}
