package cfp

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type ReviewRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, review *types.Review) (*types.Review, error)
	ListBySubmissionID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]*types.Review, error)
	AverageRating(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (float64, int64, error)
}

type reviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	repoLog := baseLog.With("repo", "ReviewRepo")
	return &reviewRepo{db: db, log: repoLog}
}

// Upsert inserts, or replaces the reviewer's earlier rating/comment on
// conflict of the (submission, reviewer) pair.
func (rr *reviewRepo) Upsert(ctx context.Context, tx *gorm.DB, review *types.Review) (*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_id"}, {Name: "reviewer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
		}).
		Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (rr *reviewRepo) ListBySubmissionID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.Review
	if err := transaction.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *reviewRepo) AverageRating(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (float64, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var row struct {
		Avg   *float64
		Count int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("submission_id = ?", submissionID).
		Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	if row.Avg == nil {
		return 0, row.Count, nil
	}
	return *row.Avg, row.Count, nil
}
