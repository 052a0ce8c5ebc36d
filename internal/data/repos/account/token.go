package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type TokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, token *types.AccountToken) (*types.AccountToken, error)
	GetByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) (*types.AccountToken, error)
	GetByAccessToken(ctx context.Context, tx *gorm.DB, accessToken string) (*types.AccountToken, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error
	DeleteByAccessToken(ctx context.Context, tx *gorm.DB, accessToken string) error
	DeleteByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) error
	DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

type tokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTokenRepo(db *gorm.DB, baseLog *logger.Logger) TokenRepo {
	repoLog := baseLog.With("repo", "TokenRepo")
	return &tokenRepo{db: db, log: repoLog}
}

func (tr *tokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.AccountToken) (*types.AccountToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if err := transaction.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

func (tr *tokenRepo) GetByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) (*types.AccountToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var result types.AccountToken
	if err := transaction.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (tr *tokenRepo) GetByAccessToken(ctx context.Context, tx *gorm.DB, accessToken string) (*types.AccountToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var result types.AccountToken
	if err := transaction.WithContext(ctx).
		Where("access_token = ?", accessToken).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (tr *tokenRepo) DeleteByID(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", tokenID).
		Delete(&types.AccountToken{}).Error
}

func (tr *tokenRepo) DeleteByAccessToken(ctx context.Context, tx *gorm.DB, accessToken string) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	return transaction.WithContext(ctx).
		Where("access_token = ?", accessToken).
		Delete(&types.AccountToken{}).Error
}

func (tr *tokenRepo) DeleteByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	return transaction.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&types.AccountToken{}).Error
}

func (tr *tokenRepo) DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	res := transaction.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&types.AccountToken{})
	return res.RowsAffected, res.Error
}
