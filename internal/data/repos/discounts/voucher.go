package discounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type VoucherRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, vouchers []*types.Voucher) ([]*types.Voucher, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Voucher, error)
	List(ctx context.Context, tx *gorm.DB, kind string) ([]*types.Voucher, error)
	Update(ctx context.Context, tx *gorm.DB, voucherID uuid.UUID, fields map[string]any) error
	Redeem(ctx context.Context, tx *gorm.DB, voucherID uuid.UUID) error
}

type voucherRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVoucherRepo(db *gorm.DB, baseLog *logger.Logger) VoucherRepo {
	repoLog := baseLog.With("repo", "VoucherRepo")
	return &voucherRepo{db: db, log: repoLog}
}

func (vr *voucherRepo) CreateBatch(ctx context.Context, tx *gorm.DB, vouchers []*types.Voucher) ([]*types.Voucher, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	if len(vouchers) == 0 {
		return []*types.Voucher{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

func (vr *voucherRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Voucher, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var result types.Voucher
	if err := transaction.WithContext(ctx).
		Where("code = ?", code).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (vr *voucherRepo) List(ctx context.Context, tx *gorm.DB, kind string) ([]*types.Voucher, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	query := transaction.WithContext(ctx)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var results []*types.Voucher
	if err := query.
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (vr *voucherRepo) Update(ctx context.Context, tx *gorm.DB, voucherID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Voucher{}).
		Where("id = ?", voucherID).
		Updates(fields).Error
}

func (vr *voucherRepo) Redeem(ctx context.Context, tx *gorm.DB, voucherID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Voucher{}).
		Where("id = ? AND (max_redemptions = 0 OR redeemed < max_redemptions)", voucherID).
		Update("redeemed", gorm.Expr("redeemed + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRedemptionExhausted
	}
	return nil
}
