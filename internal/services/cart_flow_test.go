package services

import (
	"context"
	"errors"
	"testing"

	cartrepo "github.com/borealisconf/borealis-backend/internal/data/repos/cart"
	discountsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/discounts"
	"github.com/borealisconf/borealis-backend/internal/data/repos/testutil"
	ticketsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/tickets"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"gorm.io/gorm"
)

func newTestCartService(t *testing.T) (CartService, *gorm.DB) {
	t.Helper()
	tx := testutil.DB(t)
	log := logger.NewNop()
	return NewCartService(
		tx,
		log,
		cartrepo.NewCartRepo(tx, log),
		ticketsrepo.NewTicketTypeRepo(tx, log),
		discountsrepo.NewCouponRepo(tx, log),
		discountsrepo.NewVoucherRepo(tx, log),
	), tx
}

func apiCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}
	return apiErr.Code
}

func TestCartWizardFlow(t *testing.T) {
	cs, tx := newTestCartService(t)
	ctx := context.Background()
	tt := testutil.NewTicketType(t, tx, 10)

	view, err := cs.Create(ctx, nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.Step != types.CartStepReview || view.Status != types.CartOpen {
		t.Fatalf("new cart step=%q status=%q", view.Step, view.Status)
	}

	// Items required before leaving review.
	if _, err := cs.Advance(ctx, view.Token); apiCode(t, err) != "empty_cart" {
		t.Fatalf("expected empty_cart, got %v", err)
	}

	view, err = cs.SetItems(ctx, view.Token, []CartItemInput{{TicketTypeID: tt.ID, Quantity: 2}})
	if err != nil {
		t.Fatalf("set items: %v", err)
	}
	if view.SubtotalCents != 2*49900 || view.TotalCents != 2*49900 {
		t.Fatalf("subtotal=%d total=%d", view.SubtotalCents, view.TotalCents)
	}

	view, err = cs.Advance(ctx, view.Token)
	if err != nil {
		t.Fatalf("advance to attendees: %v", err)
	}
	if view.Step != types.CartStepAttendees {
		t.Fatalf("step = %q", view.Step)
	}

	// Attendee set must be complete before leaving attendees.
	if _, err := cs.Advance(ctx, view.Token); apiCode(t, err) != "incomplete_attendees" {
		t.Fatalf("expected incomplete_attendees, got %v", err)
	}

	view, err = cs.SetAttendees(ctx, view.Token, []CartAttendeeInput{
		{TicketTypeID: tt.ID, Name: "Ada Lovelace", Email: "ada@example.com"},
		{TicketTypeID: tt.ID, Name: "Alan Turing", Email: "alan@example.com"},
	})
	if err != nil {
		t.Fatalf("set attendees: %v", err)
	}
	if len(view.Attendees) != 2 || view.Attendees[0].Idx != 0 || view.Attendees[1].Idx != 1 {
		t.Fatalf("attendees not indexed: %+v", view.Attendees)
	}

	for _, want := range []string{types.CartStepUpsells, types.CartStepCheckout} {
		view, err = cs.Advance(ctx, view.Token)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if view.Step != want {
			t.Fatalf("step = %q, want %q", view.Step, want)
		}
	}

	// No step past checkout.
	if _, err := cs.Advance(ctx, view.Token); apiCode(t, err) != "wrong_step" {
		t.Fatalf("expected wrong_step, got %v", err)
	}

	view, err = cs.Back(ctx, view.Token)
	if err != nil {
		t.Fatalf("back: %v", err)
	}
	if view.Step != types.CartStepUpsells || len(view.Attendees) != 2 {
		t.Fatalf("back lost state: step=%q attendees=%d", view.Step, len(view.Attendees))
	}
}

func TestCartSetItemsValidation(t *testing.T) {
	cs, tx := newTestCartService(t)
	ctx := context.Background()
	tt := testutil.NewTicketType(t, tx, 3)

	view, err := cs.Create(ctx, nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = cs.SetItems(ctx, view.Token, []CartItemInput{{TicketTypeID: tt.ID, Quantity: 11}})
	if apiCode(t, err) != "over_max_per_order" {
		t.Fatalf("expected over_max_per_order, got %v", err)
	}

	_, err = cs.SetItems(ctx, view.Token, []CartItemInput{{TicketTypeID: tt.ID, Quantity: 4}})
	if apiCode(t, err) != "sold_out" {
		t.Fatalf("expected sold_out, got %v", err)
	}

	if err := tx.Model(&types.TicketType{}).Where("id = ?", tt.ID).Update("active", false).Error; err != nil {
		t.Fatal(err)
	}
	_, err = cs.SetItems(ctx, view.Token, []CartItemInput{{TicketTypeID: tt.ID, Quantity: 1}})
	if apiCode(t, err) != "ticket_type_unavailable" {
		t.Fatalf("expected ticket_type_unavailable, got %v", err)
	}
}

func TestCartDiscountCodes(t *testing.T) {
	cs, tx := newTestCartService(t)
	ctx := context.Background()
	tt := testutil.NewTicketType(t, tx, 10)

	view, err := cs.Create(ctx, nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view, err = cs.SetItems(ctx, view.Token, []CartItemInput{{TicketTypeID: tt.ID, Quantity: 1}}); err != nil {
		t.Fatalf("set items: %v", err)
	}

	_, err = cs.ApplyCode(ctx, view.Token, "NOPE")
	if apiCode(t, err) != "code_invalid" {
		t.Fatalf("expected code_invalid, got %v", err)
	}

	percent := 10
	coupon := &types.Coupon{Code: "EARLYBIRD", PercentOff: &percent, Active: true}
	if err := tx.Create(coupon).Error; err != nil {
		t.Fatal(err)
	}

	view, err = cs.ApplyCode(ctx, view.Token, "earlybird")
	if err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	if view.CouponCode == nil || *view.CouponCode != "EARLYBIRD" {
		t.Fatalf("coupon code = %v", view.CouponCode)
	}
	if view.DiscountCents != 4990 || view.TotalCents != 49900-4990 {
		t.Fatalf("discount=%d total=%d", view.DiscountCents, view.TotalCents)
	}

	// A full-price voucher displaces the coupon and zeroes the total.
	voucher := &types.Voucher{Code: "SPKR-FREE1", Kind: types.VoucherSpeaker, MaxRedemptions: 1, Active: true}
	if err := tx.Create(voucher).Error; err != nil {
		t.Fatal(err)
	}
	view, err = cs.ApplyCode(ctx, view.Token, "spkr-free1")
	if err != nil {
		t.Fatalf("apply voucher: %v", err)
	}
	if view.VoucherCode == nil || view.CouponCode != nil {
		t.Fatalf("voucher=%v coupon=%v", view.VoucherCode, view.CouponCode)
	}
	if view.TotalCents != 0 {
		t.Fatalf("total = %d, want 0", view.TotalCents)
	}

	view, err = cs.RemoveCode(ctx, view.Token)
	if err != nil {
		t.Fatalf("remove code: %v", err)
	}
	if view.DiscountCents != 0 || view.VoucherCode != nil || view.TotalCents != 49900 {
		t.Fatalf("code not removed: %+v", view)
	}
}
