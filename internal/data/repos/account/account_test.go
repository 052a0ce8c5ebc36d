package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/borealisconf/borealis-backend/internal/data/repos/pgerr"
	"github.com/borealisconf/borealis-backend/internal/data/repos/testutil"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

func TestAccountRepo_CreateAndGet(t *testing.T) {
	tx := testutil.DB(t)
	log := logger.NewNop()
	repo := NewAccountRepo(tx, log)
	ctx := context.Background()

	created, err := repo.Create(ctx, tx, &types.Account{
		Email:        "ada@example.test",
		PasswordHash: "hash",
		Name:         "Ada Lovelace",
		Role:         types.RoleAttendee,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("expected generated id")
	}

	byEmail, err := repo.GetByEmail(ctx, tx, "ada@example.test")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("got id %s, want %s", byEmail.ID, created.ID)
	}

	exists, err := repo.EmailExists(ctx, tx, "ada@example.test")
	if err != nil {
		t.Fatalf("email exists: %v", err)
	}
	if !exists {
		t.Fatal("expected email to exist")
	}
}

func TestAccountRepo_DuplicateEmail(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewAccountRepo(tx, logger.NewNop())
	ctx := context.Background()

	acct := testutil.NewAccount(t, tx, types.RoleAttendee)

	_, err := repo.Create(ctx, tx, &types.Account{
		Email:        acct.Email,
		PasswordHash: "hash",
		Name:         "Dup",
		Role:         types.RoleAttendee,
	})
	if err == nil {
		t.Fatal("expected duplicate email to fail")
	}
	if !pgerr.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestAccountRepo_UpdateProfileAndRole(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewAccountRepo(tx, logger.NewNop())
	ctx := context.Background()

	acct := testutil.NewAccount(t, tx, types.RoleAttendee)

	if err := repo.UpdateProfile(ctx, tx, acct.ID, map[string]any{
		"name":             "Renamed",
		"marketing_opt_in": true,
	}); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if err := repo.UpdateRole(ctx, tx, acct.ID, types.RoleSpeaker); err != nil {
		t.Fatalf("update role: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, acct.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Renamed" || !got.MarketingOptIn || got.Role != types.RoleSpeaker {
		t.Fatalf("unexpected account after update: %+v", got)
	}
}

func TestTokenRepo_Lifecycle(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewTokenRepo(tx, logger.NewNop())
	ctx := context.Background()

	acct := testutil.NewAccount(t, tx, types.RoleAttendee)

	token, err := repo.Create(ctx, tx, &types.AccountToken{
		AccountID:    acct.ID,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	byRefresh, err := repo.GetByRefreshToken(ctx, tx, "refresh-1")
	if err != nil {
		t.Fatalf("get by refresh: %v", err)
	}
	if byRefresh.ID != token.ID {
		t.Fatalf("got token %s, want %s", byRefresh.ID, token.ID)
	}

	if err := repo.DeleteByID(ctx, tx, token.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = repo.GetByRefreshToken(ctx, tx, "refresh-1")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestTokenRepo_DeleteExpired(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewTokenRepo(tx, logger.NewNop())
	ctx := context.Background()

	acct := testutil.NewAccount(t, tx, types.RoleAttendee)
	now := time.Now()

	for i, expires := range []time.Time{now.Add(-time.Hour), now.Add(-time.Minute), now.Add(time.Hour)} {
		_, err := repo.Create(ctx, tx, &types.AccountToken{
			AccountID:    acct.ID,
			AccessToken:  "access",
			RefreshToken: "refresh-" + string(rune('a'+i)),
			ExpiresAt:    expires,
		})
		if err != nil {
			t.Fatalf("create token %d: %v", i, err)
		}
	}

	deleted, err := repo.DeleteExpired(ctx, tx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted %d tokens, want 2", deleted)
	}
}
