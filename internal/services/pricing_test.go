package services

import (
	"testing"

	types "github.com/borealisconf/borealis-backend/internal/domain"
)

func TestSubtotalCents(t *testing.T) {
	items := []types.CartItem{
		{Quantity: 2, UnitPriceCents: 49900},
		{Quantity: 1, UnitPriceCents: 9900},
	}
	if got := subtotalCents(items); got != 109700 {
		t.Fatalf("subtotal = %d, want 109700", got)
	}
	if got := subtotalCents(nil); got != 0 {
		t.Fatalf("empty subtotal = %d, want 0", got)
	}
}

func TestCouponDiscountPercent(t *testing.T) {
	percent := 20
	c := &types.Coupon{PercentOff: &percent}
	if got := couponDiscount(c, 10000); got != 2000 {
		t.Fatalf("discount = %d, want 2000", got)
	}
	// Integer cents round down.
	if got := couponDiscount(c, 9999); got != 1999 {
		t.Fatalf("discount = %d, want 1999", got)
	}
}

func TestCouponDiscountAmountCappedAtSubtotal(t *testing.T) {
	amount := int64(5000)
	c := &types.Coupon{AmountOffCents: &amount}
	if got := couponDiscount(c, 10000); got != 5000 {
		t.Fatalf("discount = %d, want 5000", got)
	}
	if got := couponDiscount(c, 3000); got != 3000 {
		t.Fatalf("capped discount = %d, want 3000", got)
	}
}

func TestCouponDiscountNeitherSet(t *testing.T) {
	if got := couponDiscount(&types.Coupon{}, 10000); got != 0 {
		t.Fatalf("discount = %d, want 0", got)
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{49900, "499.00 EUR"},
		{9, "0.09 EUR"},
		{100, "1.00 EUR"},
	}
	for _, tc := range cases {
		if got := formatCents(tc.cents, "EUR"); got != tc.want {
			t.Errorf("formatCents(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestVoucherPrefix(t *testing.T) {
	if got := voucherPrefix(types.VoucherSpeaker); got != "SPKR" {
		t.Fatalf("speaker prefix = %q", got)
	}
	if got := voucherPrefix(types.VoucherSponsor); got != "SPNS" {
		t.Fatalf("sponsor prefix = %q", got)
	}
	if got := voucherPrefix(types.VoucherComp); got != "COMP" {
		t.Fatalf("comp prefix = %q", got)
	}
}
