package cfp

import (
	"context"
	"testing"
	"time"

	"github.com/borealisconf/borealis-backend/internal/data/repos/testutil"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

func TestSubmissionRepo_ListByStatusExcludesDrafts(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewSubmissionRepo(tx, logger.NewNop())
	ctx := context.Background()

	owner := testutil.NewAccount(t, tx, types.RoleAttendee)
	draft := testutil.NewSubmission(t, tx, owner.ID, types.CFPDraft)
	submitted := testutil.NewSubmission(t, tx, owner.ID, types.CFPSubmitted)

	now := time.Now()
	if err := repo.Update(ctx, tx, submitted.ID, map[string]any{"submitted_at": now}); err != nil {
		t.Fatalf("stamp submitted_at: %v", err)
	}

	results, err := repo.ListByStatus(ctx, tx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, sub := range results {
		if sub.ID == draft.ID {
			t.Fatal("draft leaked into reviewer listing")
		}
	}

	onlySubmitted, err := repo.ListByStatus(ctx, tx, types.CFPSubmitted)
	if err != nil {
		t.Fatalf("list submitted: %v", err)
	}
	found := false
	for _, sub := range onlySubmitted {
		if sub.ID == submitted.ID {
			found = true
		}
		if sub.Status != types.CFPSubmitted {
			t.Fatalf("status filter leaked %s", sub.Status)
		}
	}
	if !found {
		t.Fatal("submitted submission missing from filtered listing")
	}
}

func TestReviewRepo_UpsertReplacesRating(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewReviewRepo(tx, logger.NewNop())
	ctx := context.Background()

	owner := testutil.NewAccount(t, tx, types.RoleAttendee)
	reviewer := testutil.NewAccount(t, tx, types.RoleAdmin)
	sub := testutil.NewSubmission(t, tx, owner.ID, types.CFPSubmitted)

	if _, err := repo.Upsert(ctx, tx, &types.Review{
		SubmissionID: sub.ID,
		ReviewerID:   reviewer.ID,
		Rating:       2,
		Comment:      "weak abstract",
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := repo.Upsert(ctx, tx, &types.Review{
		SubmissionID: sub.ID,
		ReviewerID:   reviewer.ID,
		Rating:       4,
		Comment:      "better after re-read",
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	reviews, err := repo.ListBySubmissionID(ctx, tx, sub.ID)
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("got %d reviews, want 1 after upsert", len(reviews))
	}
	if reviews[0].Rating != 4 {
		t.Fatalf("rating = %d, want 4", reviews[0].Rating)
	}
}

func TestReviewRepo_AverageRating(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewReviewRepo(tx, logger.NewNop())
	ctx := context.Background()

	owner := testutil.NewAccount(t, tx, types.RoleAttendee)
	sub := testutil.NewSubmission(t, tx, owner.ID, types.CFPUnderReview)

	for _, rating := range []int{3, 5} {
		reviewer := testutil.NewAccount(t, tx, types.RoleAdmin)
		if _, err := repo.Upsert(ctx, tx, &types.Review{
			SubmissionID: sub.ID,
			ReviewerID:   reviewer.ID,
			Rating:       rating,
		}); err != nil {
			t.Fatalf("upsert rating %d: %v", rating, err)
		}
	}

	avg, count, err := repo.AverageRating(ctx, tx, sub.ID)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if avg != 4 {
		t.Fatalf("avg = %f, want 4", avg)
	}

	// No reviews yet on a fresh submission.
	empty := testutil.NewSubmission(t, tx, owner.ID, types.CFPSubmitted)
	avg, count, err = repo.AverageRating(ctx, tx, empty.ID)
	if err != nil {
		t.Fatalf("average empty: %v", err)
	}
	if avg != 0 || count != 0 {
		t.Fatalf("got avg=%f count=%d, want zeros", avg, count)
	}
}
