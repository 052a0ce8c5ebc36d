package tickets

import (
	"testing"
	"time"
)

func TestRemaining(t *testing.T) {
	tt := TicketType{Capacity: 100, Sold: 40}
	if got := tt.Remaining(); got != 60 {
		t.Fatalf("Remaining = %d, want 60", got)
	}
	tt.Sold = 120
	if got := tt.Remaining(); got != 0 {
		t.Fatalf("Remaining should floor at 0, got %d", got)
	}
}

func TestInSalesWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	cases := []struct {
		name string
		tt   TicketType
		want bool
	}{
		{"no bounds", TicketType{}, true},
		{"inside", TicketType{SalesOpenAt: &before, SalesCloseAt: &after}, true},
		{"not yet open", TicketType{SalesOpenAt: &after}, false},
		{"already closed", TicketType{SalesCloseAt: &before}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tt.InSalesWindow(now); got != tc.want {
				t.Fatalf("InSalesWindow = %v, want %v", got, tc.want)
			}
		})
	}
}
