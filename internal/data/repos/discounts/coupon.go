package discounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

// ErrRedemptionExhausted is returned by the guarded redeem updates
// when another transaction took the last redemption.
var ErrRedemptionExhausted = errors.New("redemption limit reached")

type CouponRepo interface {
	Create(ctx context.Context, tx *gorm.DB, coupon *types.Coupon) (*types.Coupon, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Coupon, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Coupon, error)
	Update(ctx context.Context, tx *gorm.DB, couponID uuid.UUID, fields map[string]any) error
	Redeem(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error
}

type couponRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCouponRepo(db *gorm.DB, baseLog *logger.Logger) CouponRepo {
	repoLog := baseLog.With("repo", "CouponRepo")
	return &couponRepo{db: db, log: repoLog}
}

func (cr *couponRepo) Create(ctx context.Context, tx *gorm.DB, coupon *types.Coupon) (*types.Coupon, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).Create(coupon).Error; err != nil {
		return nil, err
	}
	return coupon, nil
}

func (cr *couponRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Coupon, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Coupon
	if err := transaction.WithContext(ctx).
		Where("code = ?", code).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *couponRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Coupon, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Coupon
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *couponRepo) Update(ctx context.Context, tx *gorm.DB, couponID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Coupon{}).
		Where("id = ?", couponID).
		Updates(fields).Error
}

// Redeem bumps the counter with the limit guard in the WHERE clause;
// max_redemptions = 0 means unlimited.
func (cr *couponRepo) Redeem(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Coupon{}).
		Where("id = ? AND (max_redemptions = 0 OR redeemed < max_redemptions)", couponID).
		Update("redeemed", gorm.Expr("redeemed + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRedemptionExhausted
	}
	return nil
}
