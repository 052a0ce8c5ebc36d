package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	accountrepo "github.com/borealisconf/borealis-backend/internal/data/repos/account"
	mailrepo "github.com/borealisconf/borealis-backend/internal/data/repos/mail"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/observability"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/dbctx"
	"github.com/borealisconf/borealis-backend/internal/platform/envutil"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"github.com/borealisconf/borealis-backend/internal/platform/resend"
)

const (
	AudienceMarketing = "marketing"
	AudienceSpeakers  = "speakers"
	AudienceAttendees = "attendees"
)

type MailService interface {
	EnqueueOrderConfirmation(dbc dbctx.Context, order *types.Order, tickets []*types.Ticket) error
	EnqueueOrderRefunded(dbc dbctx.Context, order *types.Order) error
	EnqueueCFPReceived(dbc dbctx.Context, account *types.Account, submission *types.Submission) error
	EnqueueCFPAccepted(dbc dbctx.Context, account *types.Account, submission *types.Submission, voucherCode string) error
	EnqueueCFPRejected(dbc dbctx.Context, account *types.Account, submission *types.Submission) error
	Announce(ctx context.Context, audience, subject, htmlBody, textBody string) (int, error)
	StartWorker(ctx context.Context)
	ProcessDue(ctx context.Context, now time.Time) (int, error)
	RequeueStuck(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, status string, limit int) ([]*types.EmailOutbox, error)
}

type mailService struct {
	db          *gorm.DB
	log         *logger.Logger
	outboxRepo  mailrepo.OutboxRepo
	accountRepo accountrepo.AccountRepo
	resend      resend.Client

	// limiter paces outbound sends across all worker ticks so the
	// provider's per-minute quota is never exceeded.
	limiter      *rate.Limiter
	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	retryBase    time.Duration
	siteName     string
}

func NewMailService(
	db *gorm.DB,
	log *logger.Logger,
	outboxRepo mailrepo.OutboxRepo,
	accountRepo accountrepo.AccountRepo,
	resendClient resend.Client,
) MailService {
	serviceLog := log.With("service", "MailService")
	perMinute := envutil.Int("MAIL_RATE_PER_MINUTE", 100)
	if perMinute < 1 {
		perMinute = 1
	}
	return &mailService{
		db:           db,
		log:          serviceLog,
		outboxRepo:   outboxRepo,
		accountRepo:  accountRepo,
		resend:       resendClient,
		limiter:      rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 5),
		pollInterval: envutil.Duration("MAIL_POLL_INTERVAL", 5*time.Second),
		batchSize:    envutil.Int("MAIL_BATCH_SIZE", 25),
		maxAttempts:  envutil.Int("MAIL_MAX_ATTEMPTS", 5),
		retryBase:    envutil.Duration("MAIL_RETRY_BASE", time.Minute),
		siteName:     envutil.Str("SITE_NAME", "BorealisConf"),
	}
}

// --- enqueue ---

func (ms *mailService) EnqueueOrderConfirmation(dbc dbctx.Context, order *types.Order, tickets []*types.Ticket) error {
	var lines strings.Builder
	var textLines strings.Builder
	for _, tk := range tickets {
		fmt.Fprintf(&lines, "<li>%s — code <code>%s</code></li>", html.EscapeString(tk.AttendeeName), tk.Code)
		fmt.Fprintf(&textLines, "  - %s: %s\n", tk.AttendeeName, tk.Code)
	}
	subject := fmt.Sprintf("Your %s order %s", ms.siteName, order.Number)
	htmlBody := fmt.Sprintf(
		"<h1>Thanks for your order!</h1><p>Order <strong>%s</strong> is confirmed. Total: %s.</p><ul>%s</ul><p>See you at %s.</p>",
		html.EscapeString(order.Number), formatCents(order.TotalCents, order.Currency), lines.String(), html.EscapeString(ms.siteName))
	textBody := fmt.Sprintf(
		"Thanks for your order!\n\nOrder %s is confirmed. Total: %s.\n\nTickets:\n%s\nSee you at %s.\n",
		order.Number, formatCents(order.TotalCents, order.Currency), textLines.String(), ms.siteName)

	return ms.enqueue(dbc, order.Email, "", types.MailTemplateOrderConfirmation, subject, htmlBody, textBody, map[string]any{
		"order_number": order.Number,
		"total_cents":  order.TotalCents,
		"tickets":      len(tickets),
	})
}

func (ms *mailService) EnqueueOrderRefunded(dbc dbctx.Context, order *types.Order) error {
	subject := fmt.Sprintf("Your %s order %s was refunded", ms.siteName, order.Number)
	htmlBody := fmt.Sprintf(
		"<p>Order <strong>%s</strong> has been refunded in full (%s). The tickets on it are no longer valid.</p>",
		html.EscapeString(order.Number), formatCents(order.TotalCents, order.Currency))
	textBody := fmt.Sprintf(
		"Order %s has been refunded in full (%s). The tickets on it are no longer valid.\n",
		order.Number, formatCents(order.TotalCents, order.Currency))

	return ms.enqueue(dbc, order.Email, "", types.MailTemplateOrderRefunded, subject, htmlBody, textBody, map[string]any{
		"order_number": order.Number,
	})
}

func (ms *mailService) EnqueueCFPReceived(dbc dbctx.Context, account *types.Account, submission *types.Submission) error {
	subject := fmt.Sprintf("We received your %s proposal", ms.siteName)
	htmlBody := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your proposal <strong>%s</strong> is in. We'll get back to you once the review round closes.</p>",
		html.EscapeString(account.Name), html.EscapeString(submission.Title))
	textBody := fmt.Sprintf(
		"Hi %s,\n\nYour proposal %q is in. We'll get back to you once the review round closes.\n",
		account.Name, submission.Title)

	return ms.enqueue(dbc, account.Email, account.Name, types.MailTemplateCFPReceived, subject, htmlBody, textBody, map[string]any{
		"submission_id": submission.ID,
		"title":         submission.Title,
	})
}

func (ms *mailService) EnqueueCFPAccepted(dbc dbctx.Context, account *types.Account, submission *types.Submission, voucherCode string) error {
	subject := fmt.Sprintf("Your %s talk was accepted!", ms.siteName)
	voucherHTML := ""
	voucherText := ""
	if voucherCode != "" {
		voucherHTML = fmt.Sprintf("<p>Your speaker ticket voucher: <code>%s</code></p>", html.EscapeString(voucherCode))
		voucherText = fmt.Sprintf("Your speaker ticket voucher: %s\n", voucherCode)
	}
	htmlBody := fmt.Sprintf(
		"<p>Hi %s,</p><p>Great news — <strong>%s</strong> made the program. A program editor will reach out about scheduling.</p>%s",
		html.EscapeString(account.Name), html.EscapeString(submission.Title), voucherHTML)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nGreat news: %q made the program. A program editor will reach out about scheduling.\n%s",
		account.Name, submission.Title, voucherText)

	return ms.enqueue(dbc, account.Email, account.Name, types.MailTemplateCFPAccepted, subject, htmlBody, textBody, map[string]any{
		"submission_id": submission.ID,
		"title":         submission.Title,
	})
}

func (ms *mailService) EnqueueCFPRejected(dbc dbctx.Context, account *types.Account, submission *types.Submission) error {
	subject := fmt.Sprintf("Your %s proposal", ms.siteName)
	htmlBody := fmt.Sprintf(
		"<p>Hi %s,</p><p>Thank you for submitting <strong>%s</strong>. We couldn't fit it into this year's program, "+
			"but we'd love to see you submit again.</p>",
		html.EscapeString(account.Name), html.EscapeString(submission.Title))
	textBody := fmt.Sprintf(
		"Hi %s,\n\nThank you for submitting %q. We couldn't fit it into this year's program, but we'd love to see you submit again.\n",
		account.Name, submission.Title)

	return ms.enqueue(dbc, account.Email, account.Name, types.MailTemplateCFPRejected, subject, htmlBody, textBody, map[string]any{
		"submission_id": submission.ID,
		"title":         submission.Title,
	})
}

// Announce fans one message out to every account in the audience.
// Returns the number of emails queued.
func (ms *mailService) Announce(ctx context.Context, audience, subject, htmlBody, textBody string) (int, error) {
	var recipients []*types.Account
	var err error
	switch audience {
	case AudienceMarketing:
		recipients, err = ms.accountRepo.ListMarketingOptIn(ctx, nil)
	case AudienceSpeakers:
		recipients, err = ms.accountRepo.ListByRole(ctx, nil, types.RoleSpeaker)
	case AudienceAttendees:
		recipients, err = ms.accountRepo.ListByRole(ctx, nil, types.RoleAttendee)
	default:
		return 0, apierr.BadRequest("invalid_audience", fmt.Errorf("unknown audience %q", audience))
	}
	if err != nil {
		return 0, fmt.Errorf("list %s audience: %w", audience, err)
	}

	rows := make([]*types.EmailOutbox, 0, len(recipients))
	now := time.Now()
	for _, acct := range recipients {
		rows = append(rows, &types.EmailOutbox{
			ToEmail:       acct.Email,
			ToName:        acct.Name,
			Subject:       subject,
			HTML:          htmlBody,
			Text:          textBody,
			Template:      types.MailTemplateAnnouncement,
			Status:        types.MailPending,
			NextAttemptAt: now,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if _, err := ms.outboxRepo.Enqueue(ctx, nil, rows); err != nil {
		return 0, fmt.Errorf("enqueue announcement: %w", err)
	}
	ms.log.Info("announcement queued", "audience", audience, "count", len(rows))
	return len(rows), nil
}

func (ms *mailService) enqueue(dbc dbctx.Context, toEmail, toName, template, subject, htmlBody, textBody string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	row := &types.EmailOutbox{
		ToEmail:       toEmail,
		ToName:        toName,
		Subject:       subject,
		HTML:          htmlBody,
		Text:          textBody,
		Template:      template,
		Payload:       datatypes.JSON(raw),
		Status:        types.MailPending,
		NextAttemptAt: time.Now(),
	}
	if _, err := ms.outboxRepo.Enqueue(dbc.Ctx, dbc.Tx, []*types.EmailOutbox{row}); err != nil {
		return fmt.Errorf("enqueue %s: %w", template, err)
	}
	return nil
}

// --- delivery worker ---

func (ms *mailService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(ms.pollInterval)
		defer ticker.Stop()
		ms.log.Info("outbox worker started", "poll_interval", ms.pollInterval, "batch_size", ms.batchSize)
		for {
			select {
			case <-ctx.Done():
				ms.log.Info("outbox worker stopped")
				return
			case <-ticker.C:
				if _, err := ms.ProcessDue(ctx, time.Now()); err != nil {
					ms.log.Error("outbox tick", "error", err)
				}
			}
		}
	}()
}

// ProcessDue claims one batch of due emails and attempts delivery.
func (ms *mailService) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	claimed, err := ms.outboxRepo.ClaimDue(ctx, nil, now, ms.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due emails: %w", err)
	}
	sent := 0
	for _, email := range claimed {
		if err := ms.limiter.Wait(ctx); err != nil {
			return sent, err
		}
		if err := ms.deliver(ctx, email); err != nil {
			ms.retry(ctx, email, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (ms *mailService) deliver(ctx context.Context, email *types.EmailOutbox) error {
	to := email.ToEmail
	if email.ToName != "" {
		to = fmt.Sprintf("%s <%s>", email.ToName, email.ToEmail)
	}
	result, err := ms.resend.Send(ctx, resend.SendEmailRequest{
		To:      []string{to},
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return err
	}
	if err := ms.outboxRepo.MarkSent(ctx, nil, email.ID, result.MessageID, time.Now()); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	observability.Current().IncEmailSent()
	return nil
}

func (ms *mailService) retry(ctx context.Context, email *types.EmailOutbox, cause error) {
	attempts := email.Attempts + 1
	if attempts >= ms.maxAttempts {
		ms.log.Error("email failed permanently", "email_id", email.ID, "template", email.Template, "attempts", attempts, "error", cause)
		if err := ms.outboxRepo.MarkFailed(ctx, nil, email.ID, attempts, cause.Error()); err != nil {
			ms.log.Error("mark failed", "email_id", email.ID, "error", err)
		}
		observability.Current().IncEmailFailed()
		return
	}
	next := time.Now().Add(ms.retryBase * (1 << (attempts - 1)))
	ms.log.Warn("email delivery retry scheduled", "email_id", email.ID, "template", email.Template, "attempts", attempts, "next_attempt_at", next, "error", cause)
	if err := ms.outboxRepo.MarkRetry(ctx, nil, email.ID, attempts, next, cause.Error()); err != nil {
		ms.log.Error("mark retry", "email_id", email.ID, "error", err)
	}
}

// RequeueStuck returns emails stranded in `sending` (worker crash
// mid-batch) to the pending pool.
func (ms *mailService) RequeueStuck(ctx context.Context) (int64, error) {
	olderThan := time.Now().Add(-envutil.Duration("MAIL_STUCK_AFTER", 10*time.Minute))
	n, err := ms.outboxRepo.RequeueStuck(ctx, nil, olderThan)
	if err != nil {
		return 0, fmt.Errorf("requeue stuck emails: %w", err)
	}
	if n > 0 {
		ms.log.Warn("requeued stuck emails", "count", n)
	}
	return n, nil
}

func (ms *mailService) ListRecent(ctx context.Context, status string, limit int) ([]*types.EmailOutbox, error) {
	return ms.outboxRepo.ListRecent(ctx, nil, status, limit)
}

func formatCents(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
