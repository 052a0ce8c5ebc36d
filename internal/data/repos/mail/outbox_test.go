package mail

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/borealisconf/borealis-backend/internal/data/repos/testutil"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

func enqueueOne(t *testing.T, tx *gorm.DB, repo OutboxRepo, next time.Time) *types.EmailOutbox {
	t.Helper()
	emails, err := repo.Enqueue(context.Background(), tx, []*types.EmailOutbox{{
		ToEmail:       "recipient@example.test",
		Subject:       "Hello",
		HTML:          "<p>Hello</p>",
		Text:          "Hello",
		Template:      types.MailTemplateAnnouncement,
		Status:        types.MailPending,
		NextAttemptAt: next,
	}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return emails[0]
}

func TestOutboxRepo_ClaimDue(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewOutboxRepo(tx, logger.NewNop())
	ctx := context.Background()

	now := time.Now()
	due := enqueueOne(t, tx, repo, now.Add(-time.Minute))
	future := enqueueOne(t, tx, repo, now.Add(time.Hour))

	claimed, err := repo.ClaimDue(ctx, tx, now, 10)
	if err != nil {
		t.Fatalf("claim due: %v", err)
	}

	seen := map[string]bool{}
	for _, email := range claimed {
		seen[email.ID.String()] = true
	}
	if !seen[due.ID.String()] {
		t.Fatal("due email not claimed")
	}
	if seen[future.ID.String()] {
		t.Fatal("future email claimed early")
	}

	// Claimed rows are now sending and won't be claimed twice.
	again, err := repo.ClaimDue(ctx, tx, now, 10)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	for _, email := range again {
		if email.ID == due.ID {
			t.Fatal("email claimed twice")
		}
	}
}

func TestOutboxRepo_MarkSentAndRetry(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewOutboxRepo(tx, logger.NewNop())
	ctx := context.Background()

	now := time.Now()
	email := enqueueOne(t, tx, repo, now.Add(-time.Minute))

	if err := repo.MarkRetry(ctx, tx, email.ID, 1, now.Add(time.Minute), "upstream 429"); err != nil {
		t.Fatalf("mark retry: %v", err)
	}
	got, err := repo.GetByID(ctx, tx, email.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.MailPending || got.Attempts != 1 || got.LastError != "upstream 429" {
		t.Fatalf("unexpected row after retry: %+v", got)
	}

	if err := repo.MarkSent(ctx, tx, email.ID, "msg_123", now); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	got, err = repo.GetByID(ctx, tx, email.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.MailSent || got.MessageID != "msg_123" || got.SentAt == nil {
		t.Fatalf("unexpected row after sent: %+v", got)
	}
	if got.LastError != "" {
		t.Fatalf("last_error not cleared: %q", got.LastError)
	}
}

func TestOutboxRepo_RequeueStuck(t *testing.T) {
	tx := testutil.DB(t)
	repo := NewOutboxRepo(tx, logger.NewNop())
	ctx := context.Background()

	now := time.Now()
	email := enqueueOne(t, tx, repo, now.Add(-time.Minute))

	claimed, err := repo.ClaimDue(ctx, tx, now, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) == 0 {
		t.Fatal("expected a claim")
	}

	// A cutoff in the future makes the just-claimed row look stuck.
	requeued, err := repo.RequeueStuck(ctx, tx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("requeue stuck: %v", err)
	}
	if requeued < 1 {
		t.Fatalf("requeued %d rows, want >= 1", requeued)
	}

	got, err := repo.GetByID(ctx, tx, email.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.MailPending {
		t.Fatalf("status = %s, want pending after requeue", got.Status)
	}
}
