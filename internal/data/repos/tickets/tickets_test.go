package tickets

import (
	"context"
	"errors"
	"testing"

	"github.com/borealisconf/borealis-backend/internal/data/repos/testutil"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

func TestTicketTypeRepo_ReserveSold(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewTicketTypeRepo(tx, logger.NewNop())
	ctx := context.Background()

	tt := testutil.NewTicketType(t, tx, 5)

	if err := repo.ReserveSold(ctx, tx, tt.ID, 3); err != nil {
		t.Fatalf("reserve 3 of 5: %v", err)
	}
	if err := repo.ReserveSold(ctx, tx, tt.ID, 2); err != nil {
		t.Fatalf("reserve remaining 2: %v", err)
	}

	err := repo.ReserveSold(ctx, tx, tt.ID, 1)
	if !errors.Is(err, ErrSoldOut) {
		t.Fatalf("expected ErrSoldOut, got %v", err)
	}

	got, err := repo.GetByID(ctx, tx, tt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Sold != 5 {
		t.Fatalf("sold = %d, want 5", got.Sold)
	}
	if got.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", got.Remaining())
	}
}

func TestTicketTypeRepo_ReserveRejectsPartialOverflow(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewTicketTypeRepo(tx, logger.NewNop())
	ctx := context.Background()

	tt := testutil.NewTicketType(t, tx, 2)

	// 3 > capacity: must fail atomically, not sell 2 of 3.
	err := repo.ReserveSold(ctx, tx, tt.ID, 3)
	if !errors.Is(err, ErrSoldOut) {
		t.Fatalf("expected ErrSoldOut, got %v", err)
	}

	got, err := repo.GetByID(ctx, tx, tt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Sold != 0 {
		t.Fatalf("sold = %d, want 0", got.Sold)
	}
}

func TestTicketTypeRepo_ReleaseSoldFloorsAtZero(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewTicketTypeRepo(tx, logger.NewNop())
	ctx := context.Background()

	tt := testutil.NewTicketType(t, tx, 10)
	if err := repo.ReserveSold(ctx, tx, tt.ID, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := repo.ReleaseSold(ctx, tx, tt.ID, 5); err != nil {
		t.Fatalf("release: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, tt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Sold != 0 {
		t.Fatalf("sold = %d, want 0 after over-release", got.Sold)
	}
}

func TestTicketTypeRepo_ListActive(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewTicketTypeRepo(tx, logger.NewNop())
	ctx := context.Background()

	active := testutil.NewTicketType(t, tx, 100)
	inactive := testutil.NewTicketType(t, tx, 100)
	if err := repo.Update(ctx, tx, inactive.ID, map[string]any{"active": false}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	results, err := repo.ListActive(ctx, tx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	for _, tt := range results {
		if tt.ID == inactive.ID {
			t.Fatal("inactive ticket type leaked into active listing")
		}
	}
	found := false
	for _, tt := range results {
		if tt.ID == active.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("active ticket type missing from listing")
	}
}
