package cart

import (
	"context"
	"testing"
	"time"

	"github.com/borealisconf/borealis-backend/internal/data/repos/testutil"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

func TestCartRepo_ReplaceItems(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewCartRepo(tx, logger.NewNop())
	ctx := context.Background()

	c := testutil.NewCart(t, tx)
	tt := testutil.NewTicketType(t, tx, 100)

	items := []*types.CartItem{
		{CartID: c.ID, TicketTypeID: tt.ID, Quantity: 2, UnitPriceCents: tt.PriceCents},
	}
	if err := repo.ReplaceItems(ctx, tx, c.ID, items); err != nil {
		t.Fatalf("replace items: %v", err)
	}

	got, err := repo.GetByToken(ctx, tx, c.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", got.Items)
	}

	// Replacing with a new set drops the old rows.
	other := testutil.NewTicketType(t, tx, 100)
	if err := repo.ReplaceItems(ctx, tx, c.ID, []*types.CartItem{
		{CartID: c.ID, TicketTypeID: other.ID, Quantity: 1, UnitPriceCents: other.PriceCents},
	}); err != nil {
		t.Fatalf("replace items again: %v", err)
	}

	got, err = repo.GetByToken(ctx, tx, c.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].TicketTypeID != other.ID {
		t.Fatalf("unexpected items after replace: %+v", got.Items)
	}

	if err := repo.ReplaceItems(ctx, tx, c.ID, nil); err != nil {
		t.Fatalf("clear items: %v", err)
	}
	got, err = repo.GetByToken(ctx, tx, c.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if len(got.Items) != 0 {
		t.Fatalf("expected empty items, got %+v", got.Items)
	}
}

func TestCartRepo_ReplaceAttendeesOrdered(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewCartRepo(tx, logger.NewNop())
	ctx := context.Background()

	c := testutil.NewCart(t, tx)
	tt := testutil.NewTicketType(t, tx, 100)

	attendees := []*types.CartAttendee{
		{CartID: c.ID, TicketTypeID: tt.ID, Idx: 1, Name: "Second", Email: "second@example.test"},
		{CartID: c.ID, TicketTypeID: tt.ID, Idx: 0, Name: "First", Email: "first@example.test"},
	}
	if err := repo.ReplaceAttendees(ctx, tx, c.ID, attendees); err != nil {
		t.Fatalf("replace attendees: %v", err)
	}

	got, err := repo.GetByToken(ctx, tx, c.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if len(got.Attendees) != 2 {
		t.Fatalf("got %d attendees, want 2", len(got.Attendees))
	}
	if got.Attendees[0].Name != "First" || got.Attendees[1].Name != "Second" {
		t.Fatalf("attendees not ordered by idx: %+v", got.Attendees)
	}
}

func TestCartRepo_ListExpired(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewCartRepo(tx, logger.NewNop())
	ctx := context.Background()

	now := time.Now()

	expired := testutil.NewCart(t, tx)
	if err := repo.Update(ctx, tx, expired.ID, map[string]any{"expires_at": now.Add(-time.Minute)}); err != nil {
		t.Fatalf("backdate cart: %v", err)
	}

	// Locked carts past their deadline stay out of the sweep.
	locked := testutil.NewCart(t, tx)
	if err := repo.Update(ctx, tx, locked.ID, map[string]any{
		"expires_at": now.Add(-time.Minute),
		"status":     types.CartLocked,
	}); err != nil {
		t.Fatalf("lock cart: %v", err)
	}

	fresh := testutil.NewCart(t, tx)

	results, err := repo.ListExpired(ctx, tx, now, 100)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}

	seen := map[string]bool{}
	for _, c := range results {
		seen[c.ID.String()] = true
	}
	if !seen[expired.ID.String()] {
		t.Fatal("expired open cart missing from sweep")
	}
	if seen[locked.ID.String()] {
		t.Fatal("locked cart should not be swept")
	}
	if seen[fresh.ID.String()] {
		t.Fatal("fresh cart should not be swept")
	}
}

func TestCartRepo_CountByStatus(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewCartRepo(tx, logger.NewNop())
	ctx := context.Background()

	testutil.NewCart(t, tx)
	testutil.NewCart(t, tx)
	completed := testutil.NewCart(t, tx)
	if err := repo.Update(ctx, tx, completed.ID, map[string]any{"status": types.CartCompleted}); err != nil {
		t.Fatalf("complete cart: %v", err)
	}

	counts, err := repo.CountByStatus(ctx, tx)
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if counts[types.CartOpen] < 2 {
		t.Fatalf("open count = %d, want >= 2", counts[types.CartOpen])
	}
	if counts[types.CartCompleted] < 1 {
		t.Fatalf("completed count = %d, want >= 1", counts[types.CartCompleted])
	}
}
