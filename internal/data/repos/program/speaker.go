package program

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type SpeakerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, speaker *types.Speaker) (*types.Speaker, error)
	GetByID(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID) (*types.Speaker, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Speaker, error)
	SlugExists(ctx context.Context, tx *gorm.DB, slug string) (bool, error)
	ListPublished(ctx context.Context, tx *gorm.DB) ([]*types.Speaker, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Speaker, error)
	Update(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID) error
}

type speakerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpeakerRepo(db *gorm.DB, baseLog *logger.Logger) SpeakerRepo {
	repoLog := baseLog.With("repo", "SpeakerRepo")
	return &speakerRepo{db: db, log: repoLog}
}

func (sr *speakerRepo) Create(ctx context.Context, tx *gorm.DB, speaker *types.Speaker) (*types.Speaker, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if err := transaction.WithContext(ctx).Create(speaker).Error; err != nil {
		return nil, err
	}
	return speaker, nil
}

func (sr *speakerRepo) GetByID(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID) (*types.Speaker, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.Speaker
	if err := transaction.WithContext(ctx).
		Where("id = ?", speakerID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *speakerRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Speaker, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.Speaker
	if err := transaction.WithContext(ctx).
		Where("slug = ?", slug).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *speakerRepo) SlugExists(ctx context.Context, tx *gorm.DB, slug string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Speaker{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListPublished orders featured speakers first, then by name, which is
// the order the site renders them in.
func (sr *speakerRepo) ListPublished(ctx context.Context, tx *gorm.DB) ([]*types.Speaker, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Speaker
	if err := transaction.WithContext(ctx).
		Where("published = ?", true).
		Order("featured DESC, name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *speakerRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Speaker, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Speaker
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *speakerRepo) Update(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Speaker{}).
		Where("id = ?", speakerID).
		Updates(fields).Error
}

func (sr *speakerRepo) Delete(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", speakerID).
		Delete(&types.Speaker{}).Error
}
