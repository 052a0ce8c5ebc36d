package program

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.Session) (*types.Session, error)
	GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.Session, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Session, error)
	SlugExists(ctx context.Context, tx *gorm.DB, slug string) (bool, error)
	ListPublished(ctx context.Context, tx *gorm.DB, track string) ([]*types.Session, error)
	ListScheduled(ctx context.Context, tx *gorm.DB) ([]*types.Session, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Session, error)
	ListBySpeakerID(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID) ([]*types.Session, error)
	Update(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	repoLog := baseLog.With("repo", "SessionRepo")
	return &sessionRepo{db: db, log: repoLog}
}

func (sr *sessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.Session) (*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (sr *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.Session
	if err := transaction.WithContext(ctx).
		Preload("Speaker").
		Where("id = ?", sessionID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *sessionRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.Session
	if err := transaction.WithContext(ctx).
		Preload("Speaker").
		Where("slug = ?", slug).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *sessionRepo) SlugExists(ctx context.Context, tx *gorm.DB, slug string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Session{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (sr *sessionRepo) ListPublished(ctx context.Context, tx *gorm.DB, track string) ([]*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	query := transaction.WithContext(ctx).
		Preload("Speaker").
		Where("published = ?", true)
	if track != "" {
		query = query.Where("track = ?", track)
	}

	var results []*types.Session
	if err := query.
		Order("title ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListScheduled returns published sessions that have a start time,
// ordered the way the schedule page renders them.
func (sr *sessionRepo) ListScheduled(ctx context.Context, tx *gorm.DB) ([]*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Session
	if err := transaction.WithContext(ctx).
		Preload("Speaker").
		Where("published = ? AND starts_at IS NOT NULL", true).
		Order("starts_at ASC, room ASC, title ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *sessionRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Session
	if err := transaction.WithContext(ctx).
		Preload("Speaker").
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *sessionRepo) ListBySpeakerID(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID) ([]*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Session
	if err := transaction.WithContext(ctx).
		Where("speaker_id = ? AND published = ?", speakerID, true).
		Order("starts_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *sessionRepo) Update(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Session{}).
		Where("id = ?", sessionID).
		Updates(fields).Error
}

func (sr *sessionRepo) Delete(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", sessionID).
		Delete(&types.Session{}).Error
}
