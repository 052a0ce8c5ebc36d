package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/dbctx"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"github.com/borealisconf/borealis-backend/internal/platform/resend"
)

// memOutbox is an in-memory OutboxRepo for worker tests.
type memOutbox struct {
	rows map[uuid.UUID]*types.EmailOutbox
}

func newMemOutbox() *memOutbox {
	return &memOutbox{rows: map[uuid.UUID]*types.EmailOutbox{}}
}

func (m *memOutbox) Enqueue(ctx context.Context, tx *gorm.DB, emails []*types.EmailOutbox) ([]*types.EmailOutbox, error) {
	for _, e := range emails {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		m.rows[e.ID] = e
	}
	return emails, nil
}

func (m *memOutbox) ClaimDue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*types.EmailOutbox, error) {
	var due []*types.EmailOutbox
	for _, e := range m.rows {
		if e.Status == types.MailPending && !e.NextAttemptAt.After(now) {
			e.Status = types.MailSending
			due = append(due, e)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (m *memOutbox) MarkSent(ctx context.Context, tx *gorm.DB, emailID uuid.UUID, messageID string, at time.Time) error {
	e := m.rows[emailID]
	e.Status = types.MailSent
	e.MessageID = messageID
	e.SentAt = &at
	e.LastError = ""
	return nil
}

func (m *memOutbox) MarkRetry(ctx context.Context, tx *gorm.DB, emailID uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error {
	e := m.rows[emailID]
	e.Status = types.MailPending
	e.Attempts = attempts
	e.NextAttemptAt = nextAttemptAt
	e.LastError = lastError
	return nil
}

func (m *memOutbox) MarkFailed(ctx context.Context, tx *gorm.DB, emailID uuid.UUID, attempts int, lastError string) error {
	e := m.rows[emailID]
	e.Status = types.MailFailed
	e.Attempts = attempts
	e.LastError = lastError
	return nil
}

func (m *memOutbox) RequeueStuck(ctx context.Context, tx *gorm.DB, olderThan time.Time) (int64, error) {
	var n int64
	for _, e := range m.rows {
		if e.Status == types.MailSending && e.UpdatedAt.Before(olderThan) {
			e.Status = types.MailPending
			n++
		}
	}
	return n, nil
}

func (m *memOutbox) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	out := map[string]int64{}
	for _, e := range m.rows {
		out[e.Status]++
	}
	return out, nil
}

func (m *memOutbox) ListRecent(ctx context.Context, tx *gorm.DB, status string, limit int) ([]*types.EmailOutbox, error) {
	var out []*types.EmailOutbox
	for _, e := range m.rows {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memOutbox) GetByID(ctx context.Context, tx *gorm.DB, emailID uuid.UUID) (*types.EmailOutbox, error) {
	e, ok := m.rows[emailID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

// fakeSender scripts resend responses.
type fakeSender struct {
	sent []resend.SendEmailRequest
	err  error
}

func (f *fakeSender) Send(ctx context.Context, req resend.SendEmailRequest) (*resend.SendEmailResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, req)
	return &resend.SendEmailResult{MessageID: fmt.Sprintf("msg_%d", len(f.sent))}, nil
}

func newTestMailService(t *testing.T, outbox *memOutbox, sender *fakeSender) MailService {
	t.Helper()
	return NewMailService(nil, logger.NewNop(), outbox, nil, sender)
}

func TestOrderConfirmationTemplate(t *testing.T) {
	outbox := newMemOutbox()
	ms := newTestMailService(t, outbox, &fakeSender{})

	order := &types.Order{Number: "BOR-2026-ABC123", Email: "buyer@example.com", TotalCents: 49900, Currency: "EUR"}
	tickets := []*types.Ticket{
		{AttendeeName: "Ada Lovelace", Code: uuid.New()},
		{AttendeeName: "Alan Turing", Code: uuid.New()},
	}
	if err := ms.EnqueueOrderConfirmation(dbctx.New(context.Background(), nil), order, tickets); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if len(outbox.rows) != 1 {
		t.Fatalf("queued %d rows, want 1", len(outbox.rows))
	}
	for _, row := range outbox.rows {
		if row.ToEmail != "buyer@example.com" {
			t.Errorf("to = %q", row.ToEmail)
		}
		if row.Template != types.MailTemplateOrderConfirmation {
			t.Errorf("template = %q", row.Template)
		}
		if !strings.Contains(row.Subject, "BOR-2026-ABC123") {
			t.Errorf("subject %q missing order number", row.Subject)
		}
		if !strings.Contains(row.HTML, "Ada Lovelace") || !strings.Contains(row.Text, "Alan Turing") {
			t.Errorf("bodies missing attendee names")
		}
		if !strings.Contains(row.HTML, "499.00 EUR") {
			t.Errorf("html %q missing total", row.HTML)
		}
		if row.Status != types.MailPending {
			t.Errorf("status = %q", row.Status)
		}
	}
}

func TestProcessDueDelivers(t *testing.T) {
	outbox := newMemOutbox()
	sender := &fakeSender{}
	ms := newTestMailService(t, outbox, sender)

	row := &types.EmailOutbox{
		ToEmail:       "a@example.com",
		ToName:        "Ada",
		Subject:       "hello",
		Text:          "hi",
		Status:        types.MailPending,
		NextAttemptAt: time.Now().Add(-time.Second),
	}
	if _, err := outbox.Enqueue(context.Background(), nil, []*types.EmailOutbox{row}); err != nil {
		t.Fatal(err)
	}

	sent, err := ms.ProcessDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	if row.Status != types.MailSent || row.MessageID == "" || row.SentAt == nil {
		t.Fatalf("row not marked sent: status=%q message_id=%q", row.Status, row.MessageID)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("provider calls = %d", len(sender.sent))
	}
	if got := sender.sent[0].To[0]; got != "Ada <a@example.com>" {
		t.Errorf("to header = %q", got)
	}
}

func TestProcessDueSkipsFuture(t *testing.T) {
	outbox := newMemOutbox()
	ms := newTestMailService(t, outbox, &fakeSender{})

	row := &types.EmailOutbox{
		ToEmail:       "a@example.com",
		Subject:       "later",
		Text:          "hi",
		Status:        types.MailPending,
		NextAttemptAt: time.Now().Add(time.Hour),
	}
	if _, err := outbox.Enqueue(context.Background(), nil, []*types.EmailOutbox{row}); err != nil {
		t.Fatal(err)
	}

	sent, err := ms.ProcessDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sent != 0 {
		t.Fatalf("sent = %d, want 0", sent)
	}
	if row.Status != types.MailPending {
		t.Fatalf("status = %q, want pending", row.Status)
	}
}

func TestProcessDueSchedulesRetryWithBackoff(t *testing.T) {
	outbox := newMemOutbox()
	sender := &fakeSender{err: fmt.Errorf("upstream 500")}
	ms := newTestMailService(t, outbox, sender)

	row := &types.EmailOutbox{
		ToEmail:       "a@example.com",
		Subject:       "retry me",
		Text:          "hi",
		Status:        types.MailPending,
		NextAttemptAt: time.Now().Add(-time.Second),
	}
	if _, err := outbox.Enqueue(context.Background(), nil, []*types.EmailOutbox{row}); err != nil {
		t.Fatal(err)
	}

	before := time.Now()
	sent, err := ms.ProcessDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sent != 0 {
		t.Fatalf("sent = %d, want 0", sent)
	}
	if row.Status != types.MailPending || row.Attempts != 1 {
		t.Fatalf("status=%q attempts=%d", row.Status, row.Attempts)
	}
	if !row.NextAttemptAt.After(before.Add(30 * time.Second)) {
		t.Fatalf("backoff too short: next=%v", row.NextAttemptAt)
	}
	if !strings.Contains(row.LastError, "upstream 500") {
		t.Fatalf("last_error = %q", row.LastError)
	}
}

func TestProcessDueFailsAfterMaxAttempts(t *testing.T) {
	outbox := newMemOutbox()
	sender := &fakeSender{err: fmt.Errorf("hard bounce")}
	ms := newTestMailService(t, outbox, sender)

	row := &types.EmailOutbox{
		ToEmail:       "a@example.com",
		Subject:       "doomed",
		Text:          "hi",
		Status:        types.MailPending,
		Attempts:      4, // default max is 5
		NextAttemptAt: time.Now().Add(-time.Second),
	}
	if _, err := outbox.Enqueue(context.Background(), nil, []*types.EmailOutbox{row}); err != nil {
		t.Fatal(err)
	}

	if _, err := ms.ProcessDue(context.Background(), time.Now()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if row.Status != types.MailFailed || row.Attempts != 5 {
		t.Fatalf("status=%q attempts=%d, want failed/5", row.Status, row.Attempts)
	}
}

func TestAnnounceRejectsUnknownAudience(t *testing.T) {
	outbox := newMemOutbox()
	ms := newTestMailService(t, outbox, &fakeSender{})

	_, err := ms.Announce(context.Background(), "bogus", "news", "<p>hi</p>", "hi")
	if err == nil {
		t.Fatal("expected error for unknown audience")
	}
	ae := apierr.From(err)
	if ae == nil || ae.Status != http.StatusBadRequest || ae.Code != "invalid_audience" {
		t.Fatalf("err = %v, want 400 invalid_audience", err)
	}
	if len(outbox.rows) != 0 {
		t.Fatalf("queued %d rows, want 0", len(outbox.rows))
	}
}
