package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
)

func NewAccount(t *testing.T, tx *gorm.DB, role string) *types.Account {
	t.Helper()
	acct := &types.Account{
		Email:        fmt.Sprintf("%s@example.test", uuid.NewString()),
		PasswordHash: "x",
		Name:         "Test Account",
		Role:         role,
	}
	if err := tx.Create(acct).Error; err != nil {
		t.Fatalf("create account fixture: %v", err)
	}
	return acct
}

func NewTicketType(t *testing.T, tx *gorm.DB, capacity int) *types.TicketType {
	t.Helper()
	suffix := uuid.NewString()[:8]
	open := time.Now().Add(-24 * time.Hour)
	closeAt := time.Now().Add(24 * time.Hour)
	tt := &types.TicketType{
		Name:         "General Admission " + suffix,
		Slug:         "general-admission-" + suffix,
		PriceCents:   49900,
		Currency:     "EUR",
		Capacity:     capacity,
		MaxPerOrder:  10,
		SalesOpenAt:  &open,
		SalesCloseAt: &closeAt,
		Kind:         types.TicketKindConference,
		Active:       true,
	}
	if err := tx.Create(tt).Error; err != nil {
		t.Fatalf("create ticket type fixture: %v", err)
	}
	return tt
}

func NewCart(t *testing.T, tx *gorm.DB) *types.Cart {
	t.Helper()
	cart := &types.Cart{
		Token:     uuid.New(),
		Status:    types.CartOpen,
		Step:      types.CartStepReview,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := tx.Create(cart).Error; err != nil {
		t.Fatalf("create cart fixture: %v", err)
	}
	return cart
}

func NewSpeaker(t *testing.T, tx *gorm.DB, published bool) *types.Speaker {
	t.Helper()
	suffix := uuid.NewString()[:8]
	sp := &types.Speaker{
		Name:      "Speaker " + suffix,
		Slug:      "speaker-" + suffix,
		Title:     "Engineer",
		Company:   "Example Co",
		Published: published,
	}
	if err := tx.Create(sp).Error; err != nil {
		t.Fatalf("create speaker fixture: %v", err)
	}
	return sp
}

func NewSubmission(t *testing.T, tx *gorm.DB, accountID uuid.UUID, status string) *types.Submission {
	t.Helper()
	sub := &types.Submission{
		AccountID: accountID,
		Title:     "Talk " + uuid.NewString()[:8],
		Abstract:  "An abstract.",
		Format:    types.SessionFormatTalk,
		Status:    status,
	}
	if err := tx.Create(sub).Error; err != nil {
		t.Fatalf("create submission fixture: %v", err)
	}
	return sub
}
