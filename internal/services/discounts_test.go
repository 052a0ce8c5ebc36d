package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

// recordingVoucherRepo captures the transaction handed to CreateBatch.
type recordingVoucherRepo struct {
	gotTx   *gorm.DB
	created []*types.Voucher
}

func (r *recordingVoucherRepo) CreateBatch(ctx context.Context, tx *gorm.DB, vouchers []*types.Voucher) ([]*types.Voucher, error) {
	r.gotTx = tx
	r.created = append(r.created, vouchers...)
	return vouchers, nil
}

func (r *recordingVoucherRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Voucher, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *recordingVoucherRepo) List(ctx context.Context, tx *gorm.DB, kind string) ([]*types.Voucher, error) {
	return r.created, nil
}

func (r *recordingVoucherRepo) Update(ctx context.Context, tx *gorm.DB, voucherID uuid.UUID, fields map[string]any) error {
	return nil
}

func (r *recordingVoucherRepo) Redeem(ctx context.Context, tx *gorm.DB, voucherID uuid.UUID) error {
	return nil
}

func TestMintVouchersJoinsCallerTransaction(t *testing.T) {
	repo := &recordingVoucherRepo{}
	ds := NewDiscountService(nil, logger.NewNop(), nil, repo, nil)

	sentinel := &gorm.DB{}
	vouchers, err := ds.MintVouchers(context.Background(), sentinel, MintVouchersInput{
		Kind:  types.VoucherSpeaker,
		Count: 1,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if len(vouchers) != 1 {
		t.Fatalf("minted %d vouchers, want 1", len(vouchers))
	}
	if repo.gotTx != sentinel {
		t.Fatal("CreateBatch did not receive the caller's transaction")
	}
}

func TestMintVouchersWithoutTransaction(t *testing.T) {
	repo := &recordingVoucherRepo{}
	ds := NewDiscountService(nil, logger.NewNop(), nil, repo, nil)

	if _, err := ds.MintVouchers(context.Background(), nil, MintVouchersInput{Count: 2}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if repo.gotTx != nil {
		t.Fatal("expected nil tx to pass through")
	}
	if len(repo.created) != 2 {
		t.Fatalf("minted %d vouchers, want 2", len(repo.created))
	}
}
