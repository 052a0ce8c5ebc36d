package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	discountsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/discounts"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	discountsdomain "github.com/borealisconf/borealis-backend/internal/domain/discounts"
	"github.com/borealisconf/borealis-backend/internal/pkg/codes"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"github.com/borealisconf/borealis-backend/internal/platform/stripe"
)

type CreateCouponInput struct {
	Code           string
	PercentOff     *int
	AmountOffCents *int64
	Currency       string
	MaxRedemptions int
	ExpiresAt      *time.Time
}

type MintVouchersInput struct {
	Kind           string
	Count          int
	TicketTypeID   *uuid.UUID
	MaxRedemptions int
	ExpiresAt      *time.Time
	Note           string
	CreatedBy      *uuid.UUID
}

type DiscountService interface {
	CreateCoupon(ctx context.Context, input CreateCouponInput) (*types.Coupon, error)
	DeactivateCoupon(ctx context.Context, couponID uuid.UUID) error
	ListCoupons(ctx context.Context) ([]*types.Coupon, error)
	MintVouchers(ctx context.Context, tx *gorm.DB, input MintVouchersInput) ([]*types.Voucher, error)
	ListVouchers(ctx context.Context, kind string) ([]*types.Voucher, error)
	DeactivateVoucher(ctx context.Context, voucherID uuid.UUID) error
}

type discountService struct {
	db           *gorm.DB
	log          *logger.Logger
	couponRepo   discountsrepo.CouponRepo
	voucherRepo  discountsrepo.VoucherRepo
	stripeClient stripe.Client
}

func NewDiscountService(
	db *gorm.DB,
	log *logger.Logger,
	couponRepo discountsrepo.CouponRepo,
	voucherRepo discountsrepo.VoucherRepo,
	stripeClient stripe.Client,
) DiscountService {
	serviceLog := log.With("service", "DiscountService")
	return &discountService{
		db:           db,
		log:          serviceLog,
		couponRepo:   couponRepo,
		voucherRepo:  voucherRepo,
		stripeClient: stripeClient,
	}
}

// CreateCoupon stores the coupon and mirrors it to Stripe so the same
// code also works inside the hosted checkout page.
func (ds *discountService) CreateCoupon(ctx context.Context, input CreateCouponInput) (*types.Coupon, error) {
	code := codes.Normalize(input.Code)
	if code == "" {
		return nil, apierr.BadRequest("missing_code", fmt.Errorf("coupon code is required"))
	}
	if (input.PercentOff == nil) == (input.AmountOffCents == nil) {
		return nil, apierr.BadRequest("invalid_discount", fmt.Errorf("exactly one of percent_off / amount_off_cents is required"))
	}
	if input.PercentOff != nil && (*input.PercentOff < 1 || *input.PercentOff > 100) {
		return nil, apierr.BadRequest("invalid_discount", fmt.Errorf("percent_off must be 1-100"))
	}
	if input.AmountOffCents != nil && *input.AmountOffCents < 1 {
		return nil, apierr.BadRequest("invalid_discount", fmt.Errorf("amount_off_cents must be positive"))
	}

	if existing, err := ds.couponRepo.GetByCode(ctx, nil, code); err == nil && existing != nil {
		return nil, apierr.Conflict("code_taken", fmt.Errorf("coupon %s already exists", code))
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = "eur"
	}
	stripeCoupon, err := ds.stripeClient.CreateCoupon(ctx, stripe.CouponParams{
		Name:       code,
		PercentOff: input.PercentOff,
		AmountOff:  input.AmountOffCents,
		Currency:   currency,
	})
	if err != nil {
		return nil, apierr.Upstream("stripe_unavailable", fmt.Errorf("mirror coupon: %w", err))
	}
	promotion, err := ds.stripeClient.CreatePromotionCode(ctx, stripeCoupon.ID, code)
	if err != nil {
		return nil, apierr.Upstream("stripe_unavailable", fmt.Errorf("mirror promotion code: %w", err))
	}

	coupon := &types.Coupon{
		ID:                uuid.New(),
		Code:              code,
		PercentOff:        input.PercentOff,
		AmountOffCents:    input.AmountOffCents,
		StripeCouponID:    stripeCoupon.ID,
		StripePromotionID: promotion.ID,
		MaxRedemptions:    input.MaxRedemptions,
		ExpiresAt:         input.ExpiresAt,
		Active:            true,
	}
	if _, err := ds.couponRepo.Create(ctx, nil, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	ds.log.Info("coupon created", "code", code)
	return coupon, nil
}

func (ds *discountService) DeactivateCoupon(ctx context.Context, couponID uuid.UUID) error {
	if err := ds.couponRepo.Update(ctx, nil, couponID, map[string]any{"active": false}); err != nil {
		return fmt.Errorf("deactivate coupon: %w", err)
	}
	return nil
}

func (ds *discountService) ListCoupons(ctx context.Context) ([]*types.Coupon, error) {
	return ds.couponRepo.ListAll(ctx, nil)
}

// MintVouchers creates a batch of single-purpose codes. The prefix
// encodes the kind so a code is recognizable at the registration desk.
// A non-nil tx joins the caller's transaction, so CFP acceptance can
// mint the speaker voucher atomically with the decision.
func (ds *discountService) MintVouchers(ctx context.Context, tx *gorm.DB, input MintVouchersInput) ([]*types.Voucher, error) {
	if input.Count < 1 || input.Count > 500 {
		return nil, apierr.BadRequest("invalid_count", fmt.Errorf("count must be 1-500"))
	}
	kind := input.Kind
	if kind == "" {
		kind = types.VoucherComp
	}
	if !discountsdomain.ValidVoucherKind(kind) {
		return nil, apierr.BadRequest("invalid_kind", fmt.Errorf("unknown voucher kind %q", kind))
	}
	maxRedemptions := input.MaxRedemptions
	if maxRedemptions < 1 {
		maxRedemptions = 1
	}

	vouchers := make([]*types.Voucher, 0, input.Count)
	for i := 0; i < input.Count; i++ {
		vouchers = append(vouchers, &types.Voucher{
			ID:             uuid.New(),
			Code:           codes.Voucher(voucherPrefix(kind)),
			Kind:           kind,
			TicketTypeID:   input.TicketTypeID,
			MaxRedemptions: maxRedemptions,
			ExpiresAt:      input.ExpiresAt,
			CreatedBy:      input.CreatedBy,
			Note:           input.Note,
			Active:         true,
		})
	}
	created, err := ds.voucherRepo.CreateBatch(ctx, tx, vouchers)
	if err != nil {
		return nil, fmt.Errorf("mint vouchers: %w", err)
	}
	ds.log.Info("vouchers minted", "kind", kind, "count", len(created))
	return created, nil
}

func (ds *discountService) ListVouchers(ctx context.Context, kind string) ([]*types.Voucher, error) {
	if kind != "" && !discountsdomain.ValidVoucherKind(kind) {
		return nil, apierr.BadRequest("invalid_kind", fmt.Errorf("unknown voucher kind %q", kind))
	}
	return ds.voucherRepo.List(ctx, nil, kind)
}

func (ds *discountService) DeactivateVoucher(ctx context.Context, voucherID uuid.UUID) error {
	if err := ds.voucherRepo.Update(ctx, nil, voucherID, map[string]any{"active": false}); err != nil {
		return fmt.Errorf("deactivate voucher: %w", err)
	}
	return nil
}

func voucherPrefix(kind string) string {
	switch kind {
	case types.VoucherSpeaker:
		return "SPKR"
	case types.VoucherSponsor:
		return "SPNS"
	default:
		return "COMP"
	}
}
