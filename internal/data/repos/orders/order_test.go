package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/borealisconf/borealis-backend/internal/data/repos/testutil"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

func newOrderRow(t *testing.T, repo OrderRepo, tx *gorm.DB, n int, status string, paidAt *time.Time, createdAt time.Time) *types.Order {
	t.Helper()
	order := &types.Order{
		Number:          fmt.Sprintf("BOR-TEST-%03d", n),
		CartID:          uuid.New(),
		Email:           fmt.Sprintf("buyer%d@example.com", n),
		Status:          status,
		SubtotalCents:   10000,
		TotalCents:      10000,
		Currency:        "EUR",
		StripeSessionID: fmt.Sprintf("cs_test_%d", n),
		PaidAt:          paidAt,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	created, err := repo.Create(context.Background(), tx, order)
	if err != nil {
		t.Fatalf("create order %d: %v", n, err)
	}
	return created
}

func TestOrderRepo_ListRecentNewestFirst(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewOrderRepo(tx, logger.NewNop())
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	newOrderRow(t, repo, tx, 1, types.OrderPending, nil, base)
	newOrderRow(t, repo, tx, 2, types.OrderPending, nil, base.Add(time.Minute))
	newest := newOrderRow(t, repo, tx, 3, types.OrderPending, nil, base.Add(2*time.Minute))

	got, err := repo.ListRecent(ctx, tx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("listed %d orders, want 2", len(got))
	}
	if got[0].Number != newest.Number {
		t.Errorf("first = %q, want newest %q", got[0].Number, newest.Number)
	}
	if got[1].Number != "BOR-TEST-002" {
		t.Errorf("second = %q, want BOR-TEST-002", got[1].Number)
	}
}

func TestOrderRepo_ListPaidSinceFiltersStatusAndWindow(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewOrderRepo(tx, logger.NewNop())
	ctx := context.Background()

	now := time.Now()
	recent := now.Add(-time.Hour)
	stale := now.Add(-40 * 24 * time.Hour)

	newOrderRow(t, repo, tx, 10, types.OrderPaid, &recent, recent)
	newOrderRow(t, repo, tx, 11, types.OrderPaid, &stale, stale)    // outside window
	newOrderRow(t, repo, tx, 12, types.OrderPending, nil, recent)   // never paid
	newOrderRow(t, repo, tx, 13, types.OrderRefunded, &recent, recent)

	got, err := repo.ListPaidSince(ctx, tx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("list paid since: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("listed %d orders, want 1", len(got))
	}
	if got[0].Number != "BOR-TEST-010" {
		t.Errorf("got %q, want BOR-TEST-010", got[0].Number)
	}
}
