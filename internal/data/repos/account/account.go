package account

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type AccountRepo interface {
	Create(ctx context.Context, tx *gorm.DB, account *types.Account) (*types.Account, error)
	GetByID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.Account, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Account, error)
	EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	UpdateProfile(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, fields map[string]any) error
	UpdateRole(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, role string) error
	UpdateAvatarFields(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, avatarKey, avatarURL string) error
	ListByRole(ctx context.Context, tx *gorm.DB, role string) ([]*types.Account, error)
	ListMarketingOptIn(ctx context.Context, tx *gorm.DB) ([]*types.Account, error)
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	repoLog := baseLog.With("repo", "AccountRepo")
	return &accountRepo{db: db, log: repoLog}
}

func (ar *accountRepo) Create(ctx context.Context, tx *gorm.DB, account *types.Account) (*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	if err := transaction.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func (ar *accountRepo) GetByID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var result types.Account
	if err := transaction.WithContext(ctx).
		Where("id = ?", accountID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *accountRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var result types.Account
	if err := transaction.WithContext(ctx).
		Where("email = ?", email).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *accountRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Account{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateProfile applies a whitelisted field map; callers build the map
// from their own validated input.
func (ar *accountRepo) UpdateProfile(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Account{}).
		Where("id = ?", accountID).
		Updates(fields).Error
}

func (ar *accountRepo) UpdateRole(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, role string) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Account{}).
		Where("id = ?", accountID).
		Update("role", role).Error
}

func (ar *accountRepo) UpdateAvatarFields(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, avatarKey, avatarURL string) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"avatar_key": avatarKey,
			"avatar_url": avatarURL,
		}).Error
}

func (ar *accountRepo) ListByRole(ctx context.Context, tx *gorm.DB, role string) ([]*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.Account
	if err := transaction.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *accountRepo) ListMarketingOptIn(ctx context.Context, tx *gorm.DB) ([]*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.Account
	if err := transaction.WithContext(ctx).
		Where("marketing_opt_in = ?", true).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
