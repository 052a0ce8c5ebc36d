package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cartrepo "github.com/borealisconf/borealis-backend/internal/data/repos/cart"
	discountsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/discounts"
	ticketsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/tickets"
	cartdomain "github.com/borealisconf/borealis-backend/internal/domain/cart"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/pkg/codes"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/envutil"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type CartItemInput struct {
	TicketTypeID uuid.UUID
	Quantity     int
}

type CartAttendeeInput struct {
	TicketTypeID uuid.UUID
	Name         string
	Email        string
	Company      string
	Dietary      string
	TShirtSize   string
}

// CartView is a cart with server-computed totals attached. Totals are
// never stored; they are derived from the item rows on every read.
type CartView struct {
	*types.Cart
	SubtotalCents int64 `json:"subtotal_cents"`
	TotalCents    int64 `json:"total_cents"`
}

type CartService interface {
	Create(ctx context.Context, accountID *uuid.UUID, email string) (*CartView, error)
	Get(ctx context.Context, token uuid.UUID) (*CartView, error)
	SetItems(ctx context.Context, token uuid.UUID, items []CartItemInput) (*CartView, error)
	SetAttendees(ctx context.Context, token uuid.UUID, attendees []CartAttendeeInput) (*CartView, error)
	Advance(ctx context.Context, token uuid.UUID) (*CartView, error)
	Back(ctx context.Context, token uuid.UUID) (*CartView, error)
	ApplyCode(ctx context.Context, token uuid.UUID, code string) (*CartView, error)
	RemoveCode(ctx context.Context, token uuid.UUID) (*CartView, error)
	ExpireSweep(ctx context.Context) (int, error)
}

type cartService struct {
	db             *gorm.DB
	log            *logger.Logger
	cartRepo       cartrepo.CartRepo
	ticketTypeRepo ticketsrepo.TicketTypeRepo
	couponRepo     discountsrepo.CouponRepo
	voucherRepo    discountsrepo.VoucherRepo
	ttl            time.Duration
}

func NewCartService(
	db *gorm.DB,
	log *logger.Logger,
	cartRepo cartrepo.CartRepo,
	ticketTypeRepo ticketsrepo.TicketTypeRepo,
	couponRepo discountsrepo.CouponRepo,
	voucherRepo discountsrepo.VoucherRepo,
) CartService {
	serviceLog := log.With("service", "CartService")
	ttl := envutil.Duration("CART_TTL", 48*time.Hour)
	return &cartService{
		db:             db,
		log:            serviceLog,
		cartRepo:       cartRepo,
		ticketTypeRepo: ticketTypeRepo,
		couponRepo:     couponRepo,
		voucherRepo:    voucherRepo,
		ttl:            ttl,
	}
}

func (cs *cartService) Create(ctx context.Context, accountID *uuid.UUID, email string) (*CartView, error) {
	c := &types.Cart{
		ID:        uuid.New(),
		Token:     uuid.New(),
		AccountID: accountID,
		Email:     strings.TrimSpace(email),
		Status:    types.CartOpen,
		Step:      types.CartStepReview,
		ExpiresAt: time.Now().Add(cs.ttl),
	}
	if _, err := cs.cartRepo.Create(ctx, nil, c); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	cs.log.Info("cart created", "cart_id", c.ID)
	return cs.view(ctx, nil, c)
}

func (cs *cartService) Get(ctx context.Context, token uuid.UUID) (*CartView, error) {
	c, err := cs.cartRepo.GetByToken(ctx, nil, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("cart_not_found", fmt.Errorf("no such cart"))
		}
		return nil, err
	}
	return cs.view(ctx, nil, c)
}

func (cs *cartService) SetItems(ctx context.Context, token uuid.UUID, items []CartItemInput) (*CartView, error) {
	return cs.mutate(ctx, token, func(tx *gorm.DB, c *types.Cart) error {
		if c.Step != types.CartStepReview && c.Step != types.CartStepAttendees {
			return apierr.Conflict("wrong_step", fmt.Errorf("items can only change during review or attendees"))
		}
		if len(items) == 0 {
			return apierr.BadRequest("empty_cart", fmt.Errorf("at least one item is required"))
		}

		seen := map[uuid.UUID]bool{}
		ids := make([]uuid.UUID, 0, len(items))
		for _, it := range items {
			if seen[it.TicketTypeID] {
				return apierr.BadRequest("duplicate_item", fmt.Errorf("ticket type %s listed twice", it.TicketTypeID))
			}
			seen[it.TicketTypeID] = true
			if it.Quantity < 1 {
				return apierr.BadRequest("invalid_quantity", fmt.Errorf("quantity must be at least 1"))
			}
			ids = append(ids, it.TicketTypeID)
		}

		ticketTypes, err := cs.ticketTypeRepo.GetByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		byID := map[uuid.UUID]*types.TicketType{}
		for _, tt := range ticketTypes {
			byID[tt.ID] = tt
		}

		now := time.Now()
		rows := make([]*types.CartItem, 0, len(items))
		unitCount := map[uuid.UUID]int{}
		for _, it := range items {
			tt, ok := byID[it.TicketTypeID]
			if !ok || !tt.Active {
				return apierr.BadRequest("ticket_type_unavailable", fmt.Errorf("ticket type %s is not for sale", it.TicketTypeID))
			}
			if !tt.InSalesWindow(now) {
				return apierr.BadRequest("sales_closed", fmt.Errorf("%s is outside its sales window", tt.Slug))
			}
			if it.Quantity > tt.MaxPerOrder {
				return apierr.BadRequest("over_max_per_order", fmt.Errorf("%s allows at most %d per order", tt.Slug, tt.MaxPerOrder))
			}
			if it.Quantity > tt.Remaining() {
				return apierr.Conflict("sold_out", fmt.Errorf("only %d of %s remaining", tt.Remaining(), tt.Slug))
			}
			rows = append(rows, &types.CartItem{
				ID:             uuid.New(),
				CartID:         c.ID,
				TicketTypeID:   tt.ID,
				Quantity:       it.Quantity,
				UnitPriceCents: tt.PriceCents,
			})
			if !tt.Upsell {
				unitCount[tt.ID] = it.Quantity
			}
		}

		if err := cs.cartRepo.ReplaceItems(ctx, tx, c.ID, rows); err != nil {
			return fmt.Errorf("replace items: %w", err)
		}

		// Shrinking a conference-ticket line orphans its tail
		// attendees; drop anyone whose slot no longer exists.
		kept := make([]*types.CartAttendee, 0, len(c.Attendees))
		for i := range c.Attendees {
			at := c.Attendees[i]
			if at.Idx < unitCount[at.TicketTypeID] {
				copied := at
				copied.ID = uuid.New()
				kept = append(kept, &copied)
			}
		}
		if len(kept) != len(c.Attendees) {
			if err := cs.cartRepo.ReplaceAttendees(ctx, tx, c.ID, kept); err != nil {
				return fmt.Errorf("trim attendees: %w", err)
			}
		}
		return nil
	})
}

func (cs *cartService) SetAttendees(ctx context.Context, token uuid.UUID, attendees []CartAttendeeInput) (*CartView, error) {
	return cs.mutate(ctx, token, func(tx *gorm.DB, c *types.Cart) error {
		units, err := attendeeUnits(ctx, tx, cs.ticketTypeRepo, c)
		if err != nil {
			return err
		}

		perType := map[uuid.UUID]int{}
		rows := make([]*types.CartAttendee, 0, len(attendees))
		for _, in := range attendees {
			if strings.TrimSpace(in.Name) == "" || !strings.Contains(in.Email, "@") {
				return apierr.BadRequest("invalid_attendee", fmt.Errorf("attendee name and email are required"))
			}
			max, ok := units[in.TicketTypeID]
			if !ok {
				return apierr.BadRequest("attendee_without_ticket", fmt.Errorf("no ticket in cart for type %s", in.TicketTypeID))
			}
			idx := perType[in.TicketTypeID]
			if idx >= max {
				return apierr.BadRequest("too_many_attendees", fmt.Errorf("more attendees than tickets for type %s", in.TicketTypeID))
			}
			perType[in.TicketTypeID]++
			rows = append(rows, &types.CartAttendee{
				ID:           uuid.New(),
				CartID:       c.ID,
				TicketTypeID: in.TicketTypeID,
				Idx:          idx,
				Name:         strings.TrimSpace(in.Name),
				Email:        strings.TrimSpace(in.Email),
				Company:      in.Company,
				Dietary:      in.Dietary,
				TShirtSize:   in.TShirtSize,
			})
		}

		if err := cs.cartRepo.ReplaceAttendees(ctx, tx, c.ID, rows); err != nil {
			return fmt.Errorf("replace attendees: %w", err)
		}
		return nil
	})
}

func (cs *cartService) Advance(ctx context.Context, token uuid.UUID) (*CartView, error) {
	return cs.mutate(ctx, token, func(tx *gorm.DB, c *types.Cart) error {
		idx := cartdomain.StepIndex(c.Step)
		if idx < 0 || idx >= len(cartdomain.Steps)-1 {
			return apierr.Conflict("wrong_step", fmt.Errorf("cannot advance past %s", c.Step))
		}
		switch c.Step {
		case types.CartStepReview:
			if len(c.Items) == 0 {
				return apierr.BadRequest("empty_cart", fmt.Errorf("add a ticket before continuing"))
			}
		case types.CartStepAttendees:
			if err := requireCompleteAttendees(ctx, tx, cs.ticketTypeRepo, c); err != nil {
				return err
			}
		}
		return cs.cartRepo.Update(ctx, tx, c.ID, map[string]any{"step": cartdomain.Steps[idx+1]})
	})
}

func (cs *cartService) Back(ctx context.Context, token uuid.UUID) (*CartView, error) {
	return cs.mutate(ctx, token, func(tx *gorm.DB, c *types.Cart) error {
		idx := cartdomain.StepIndex(c.Step)
		if idx <= 0 {
			return apierr.Conflict("wrong_step", fmt.Errorf("already at the first step"))
		}
		return cs.cartRepo.Update(ctx, tx, c.ID, map[string]any{"step": cartdomain.Steps[idx-1]})
	})
}

func (cs *cartService) ApplyCode(ctx context.Context, token uuid.UUID, code string) (*CartView, error) {
	normalized := codes.Normalize(code)
	if normalized == "" {
		return nil, apierr.BadRequest("code_invalid", fmt.Errorf("empty code"))
	}
	return cs.mutate(ctx, token, func(tx *gorm.DB, c *types.Cart) error {
		now := time.Now()

		// Vouchers win over coupons when a code exists on both sides.
		voucher, err := cs.voucherRepo.GetByCode(ctx, tx, normalized)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if voucher != nil {
			if ok, reason := voucher.Usable(now); !ok {
				return apierr.BadRequest(reason, fmt.Errorf("voucher %s not usable", normalized))
			}
			discount, err := cs.voucherDiscount(ctx, tx, c, voucher)
			if err != nil {
				return err
			}
			if discount == 0 {
				return apierr.BadRequest("code_invalid", fmt.Errorf("voucher does not match any cart item"))
			}
			return cs.cartRepo.Update(ctx, tx, c.ID, map[string]any{
				"voucher_code":   normalized,
				"coupon_code":    nil,
				"discount_cents": discount,
			})
		}

		coupon, err := cs.couponRepo.GetByCode(ctx, tx, normalized)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.BadRequest("code_invalid", fmt.Errorf("unknown code %s", normalized))
			}
			return err
		}
		if ok, reason := coupon.Usable(now); !ok {
			return apierr.BadRequest(reason, fmt.Errorf("coupon %s not usable", normalized))
		}
		subtotal := subtotalCents(c.Items)
		discount := couponDiscount(coupon, subtotal)
		return cs.cartRepo.Update(ctx, tx, c.ID, map[string]any{
			"coupon_code":    normalized,
			"voucher_code":   nil,
			"discount_cents": discount,
		})
	})
}

func (cs *cartService) RemoveCode(ctx context.Context, token uuid.UUID) (*CartView, error) {
	return cs.mutate(ctx, token, func(tx *gorm.DB, c *types.Cart) error {
		return cs.cartRepo.Update(ctx, tx, c.ID, map[string]any{
			"coupon_code":    nil,
			"voucher_code":   nil,
			"discount_cents": 0,
		})
	})
}

func (cs *cartService) ExpireSweep(ctx context.Context) (int, error) {
	stale, err := cs.cartRepo.ListExpired(ctx, nil, time.Now(), 200)
	if err != nil {
		return 0, fmt.Errorf("list expired carts: %w", err)
	}
	expired := 0
	for _, c := range stale {
		if err := cs.cartRepo.Update(ctx, nil, c.ID, map[string]any{"status": types.CartExpired}); err != nil {
			cs.log.Error("expire cart", "cart_id", c.ID, "error", err)
			continue
		}
		expired++
	}
	if expired > 0 {
		cs.log.Info("expired stale carts", "count", expired)
	}
	return expired, nil
}

// mutate locks the cart row, rejects mutation on terminal statuses,
// applies fn, refreshes the TTL, and returns the updated view.
func (cs *cartService) mutate(ctx context.Context, token uuid.UUID, fn func(tx *gorm.DB, c *types.Cart) error) (*CartView, error) {
	var view *CartView
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := cs.cartRepo.GetByTokenForUpdate(ctx, tx, token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("cart_not_found", fmt.Errorf("no such cart"))
			}
			return err
		}
		now := time.Now()
		switch {
		case c.Status == types.CartLocked:
			return apierr.Conflict("cart_locked", fmt.Errorf("payment in progress"))
		case c.Status == types.CartCompleted:
			return apierr.Conflict("cart_completed", fmt.Errorf("cart already completed"))
		case c.Status == types.CartExpired, now.After(c.ExpiresAt):
			return apierr.Conflict("cart_expired", fmt.Errorf("cart expired"))
		}
		if err := fn(tx, c); err != nil {
			return err
		}
		if err := cs.cartRepo.Update(ctx, tx, c.ID, map[string]any{"expires_at": now.Add(cs.ttl)}); err != nil {
			return err
		}
		refreshed, err := cs.cartRepo.GetByToken(ctx, tx, token)
		if err != nil {
			return err
		}
		if err := cs.recomputeDiscount(ctx, tx, refreshed); err != nil {
			return err
		}
		v, err := cs.view(ctx, tx, refreshed)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// recomputeDiscount keeps DiscountCents in sync with the item rows
// after any mutation while a code is applied. A code that no longer
// matches anything is silently dropped.
func (cs *cartService) recomputeDiscount(ctx context.Context, tx *gorm.DB, c *types.Cart) error {
	switch {
	case c.VoucherCode != nil:
		voucher, err := cs.voucherRepo.GetByCode(ctx, tx, *c.VoucherCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return cs.clearDiscount(ctx, tx, c)
			}
			return err
		}
		discount, err := cs.voucherDiscount(ctx, tx, c, voucher)
		if err != nil {
			return err
		}
		if discount == 0 {
			return cs.clearDiscount(ctx, tx, c)
		}
		if discount != c.DiscountCents {
			c.DiscountCents = discount
			return cs.cartRepo.Update(ctx, tx, c.ID, map[string]any{"discount_cents": discount})
		}
	case c.CouponCode != nil:
		coupon, err := cs.couponRepo.GetByCode(ctx, tx, *c.CouponCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return cs.clearDiscount(ctx, tx, c)
			}
			return err
		}
		discount := couponDiscount(coupon, subtotalCents(c.Items))
		if discount != c.DiscountCents {
			c.DiscountCents = discount
			return cs.cartRepo.Update(ctx, tx, c.ID, map[string]any{"discount_cents": discount})
		}
	}
	return nil
}

func (cs *cartService) clearDiscount(ctx context.Context, tx *gorm.DB, c *types.Cart) error {
	c.CouponCode = nil
	c.VoucherCode = nil
	c.DiscountCents = 0
	return cs.cartRepo.Update(ctx, tx, c.ID, map[string]any{
		"coupon_code":    nil,
		"voucher_code":   nil,
		"discount_cents": 0,
	})
}

func (cs *cartService) view(ctx context.Context, tx *gorm.DB, c *types.Cart) (*CartView, error) {
	subtotal := subtotalCents(c.Items)
	total := subtotal - c.DiscountCents
	if total < 0 {
		total = 0
	}
	return &CartView{Cart: c, SubtotalCents: subtotal, TotalCents: total}, nil
}

// attendeeUnits maps each non-upsell ticket type in the cart to the
// number of attendee slots it demands.
func attendeeUnits(ctx context.Context, tx *gorm.DB, ticketTypeRepo ticketsrepo.TicketTypeRepo, c *types.Cart) (map[uuid.UUID]int, error) {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.TicketTypeID)
	}
	ticketTypes, err := ticketTypeRepo.GetByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	upsell := map[uuid.UUID]bool{}
	for _, tt := range ticketTypes {
		upsell[tt.ID] = tt.Upsell
	}
	units := map[uuid.UUID]int{}
	for _, it := range c.Items {
		if !upsell[it.TicketTypeID] {
			units[it.TicketTypeID] = it.Quantity
		}
	}
	return units, nil
}

func requireCompleteAttendees(ctx context.Context, tx *gorm.DB, ticketTypeRepo ticketsrepo.TicketTypeRepo, c *types.Cart) error {
	units, err := attendeeUnits(ctx, tx, ticketTypeRepo, c)
	if err != nil {
		return err
	}
	have := map[uuid.UUID]int{}
	for _, at := range c.Attendees {
		have[at.TicketTypeID]++
	}
	for ttID, want := range units {
		if have[ttID] != want {
			return apierr.BadRequest("incomplete_attendees", fmt.Errorf("need %d attendees for type %s, have %d", want, ttID, have[ttID]))
		}
	}
	return nil
}

// voucherDiscount comps every unit of the matching ticket type. A
// voucher without a ticket type matches all conference-kind units.
func (cs *cartService) voucherDiscount(ctx context.Context, tx *gorm.DB, c *types.Cart, v *types.Voucher) (int64, error) {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.TicketTypeID)
	}
	ticketTypes, err := cs.ticketTypeRepo.GetByIDs(ctx, tx, ids)
	if err != nil {
		return 0, err
	}
	kind := map[uuid.UUID]string{}
	for _, tt := range ticketTypes {
		kind[tt.ID] = tt.Kind
	}

	var discount int64
	for _, it := range c.Items {
		matches := false
		if v.TicketTypeID != nil {
			matches = *v.TicketTypeID == it.TicketTypeID
		} else {
			matches = kind[it.TicketTypeID] == types.TicketKindConference
		}
		if matches {
			discount += int64(it.Quantity) * it.UnitPriceCents
		}
	}
	subtotal := subtotalCents(c.Items)
	if discount > subtotal {
		discount = subtotal
	}
	return discount, nil
}

func subtotalCents(items []types.CartItem) int64 {
	var sum int64
	for _, it := range items {
		sum += int64(it.Quantity) * it.UnitPriceCents
	}
	return sum
}

func couponDiscount(c *types.Coupon, subtotalCents int64) int64 {
	var discount int64
	switch {
	case c.PercentOff != nil:
		discount = subtotalCents * int64(*c.PercentOff) / 100
	case c.AmountOffCents != nil:
		discount = *c.AmountOffCents
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
