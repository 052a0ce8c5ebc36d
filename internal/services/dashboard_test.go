package services

import (
	"testing"
	"time"

	types "github.com/borealisconf/borealis-backend/internal/domain"
)

func TestRevenueByDayBucketsAndSorts(t *testing.T) {
	morning := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 1, 23, 30, 0, 0, time.UTC)
	later := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)

	orders := []*types.Order{
		{TotalCents: 49900, PaidAt: &later},
		{TotalCents: 39900, PaidAt: &morning},
		{TotalCents: 7900, PaidAt: &evening},
		{TotalCents: 1000}, // no paid_at, must not be counted
	}

	got := revenueByDay(orders)
	if len(got) != 2 {
		t.Fatalf("buckets = %d, want 2", len(got))
	}
	if got[0].Day != "2026-08-01" || got[0].RevenueCents != 47800 || got[0].Orders != 2 {
		t.Errorf("day[0] = %+v, want 2026-08-01 / 47800 / 2", got[0])
	}
	if got[1].Day != "2026-08-03" || got[1].RevenueCents != 49900 || got[1].Orders != 1 {
		t.Errorf("day[1] = %+v, want 2026-08-03 / 49900 / 1", got[1])
	}
}

func TestRevenueByDayEmpty(t *testing.T) {
	if got := revenueByDay(nil); len(got) != 0 {
		t.Fatalf("buckets = %d, want 0", len(got))
	}
}
