package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	accountrepo "github.com/borealisconf/borealis-backend/internal/data/repos/account"
	cfprepo "github.com/borealisconf/borealis-backend/internal/data/repos/cfp"
	programrepo "github.com/borealisconf/borealis-backend/internal/data/repos/program"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	cfpdomain "github.com/borealisconf/borealis-backend/internal/domain/cfp"
	"github.com/borealisconf/borealis-backend/internal/observability"
	"github.com/borealisconf/borealis-backend/internal/pkg/slug"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/envutil"
	"github.com/borealisconf/borealis-backend/internal/platform/dbctx"
	"github.com/borealisconf/borealis-backend/internal/platform/gcs"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type SubmissionInput struct {
	Title         string
	Abstract      string
	Format        string
	Track         string
	AudienceLevel string
	SpeakerBio    string
	Notes         string
}

type ReviewInput struct {
	Rating  int
	Comment string
}

// SubmissionSummary decorates a submission with its review aggregate
// for the admin listing.
type SubmissionSummary struct {
	*types.Submission
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

type CFPService interface {
	// Owner operations, scoped to the authenticated account.
	CreateDraft(ctx context.Context, accountID uuid.UUID, input SubmissionInput) (*types.Submission, error)
	UpdateDraft(ctx context.Context, accountID, submissionID uuid.UUID, input SubmissionInput) (*types.Submission, error)
	Submit(ctx context.Context, accountID, submissionID uuid.UUID) (*types.Submission, error)
	Withdraw(ctx context.Context, accountID, submissionID uuid.UUID) (*types.Submission, error)
	ListOwn(ctx context.Context, accountID uuid.UUID) ([]*types.Submission, error)
	GetOwn(ctx context.Context, accountID, submissionID uuid.UUID) (*types.Submission, error)
	UploadSlides(ctx context.Context, accountID, submissionID uuid.UUID, filename string, r io.Reader) (*types.Submission, error)

	// Admin operations.
	ListByStatus(ctx context.Context, status string) ([]*SubmissionSummary, error)
	StartReview(ctx context.Context, submissionID uuid.UUID) (*types.Submission, error)
	Decide(ctx context.Context, submissionID uuid.UUID, accept bool) (*types.Submission, error)
	UpsertReview(ctx context.Context, reviewerID, submissionID uuid.UUID, input ReviewInput) (*types.Review, error)
	ListReviews(ctx context.Context, submissionID uuid.UUID) ([]*types.Review, error)
}

type cfpService struct {
	db              *gorm.DB
	log             *logger.Logger
	submissionRepo  cfprepo.SubmissionRepo
	reviewRepo      cfprepo.ReviewRepo
	accountRepo     accountrepo.AccountRepo
	speakerRepo     programrepo.SpeakerRepo
	sessionRepo     programrepo.SessionRepo
	discountService DiscountService
	mailService     MailService
	bucketService   gcs.BucketService

	windowOpen  *time.Time
	windowClose *time.Time
}

func NewCFPService(
	db *gorm.DB,
	log *logger.Logger,
	submissionRepo cfprepo.SubmissionRepo,
	reviewRepo cfprepo.ReviewRepo,
	accountRepo accountrepo.AccountRepo,
	speakerRepo programrepo.SpeakerRepo,
	sessionRepo programrepo.SessionRepo,
	discountService DiscountService,
	mailService MailService,
	bucketService gcs.BucketService,
) CFPService {
	serviceLog := log.With("service", "CFPService")
	return &cfpService{
		db:              db,
		log:             serviceLog,
		submissionRepo:  submissionRepo,
		reviewRepo:      reviewRepo,
		accountRepo:     accountRepo,
		speakerRepo:     speakerRepo,
		sessionRepo:     sessionRepo,
		discountService: discountService,
		mailService:     mailService,
		bucketService:   bucketService,
		windowOpen:      envTime(serviceLog, "CFP_OPENS_AT"),
		windowClose:     envTime(serviceLog, "CFP_CLOSES_AT"),
	}
}

// --- owner side ---

func (cf *cfpService) CreateDraft(ctx context.Context, accountID uuid.UUID, input SubmissionInput) (*types.Submission, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apierr.BadRequest("missing_title", fmt.Errorf("a title is required"))
	}
	if input.Format != "" && !validSessionFormat(input.Format) {
		return nil, apierr.BadRequest("invalid_format", fmt.Errorf("unknown format %q", input.Format))
	}
	sub := &types.Submission{
		ID:            uuid.New(),
		AccountID:     accountID,
		Status:        types.CFPDraft,
		Title:         strings.TrimSpace(input.Title),
		Abstract:      input.Abstract,
		Format:        input.Format,
		Track:         input.Track,
		AudienceLevel: input.AudienceLevel,
		SpeakerBio:    input.SpeakerBio,
		Notes:         input.Notes,
	}
	if _, err := cf.submissionRepo.Create(ctx, nil, sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return sub, nil
}

func (cf *cfpService) UpdateDraft(ctx context.Context, accountID, submissionID uuid.UUID, input SubmissionInput) (*types.Submission, error) {
	var updated *types.Submission
	err := cf.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := cf.getOwned(ctx, tx, accountID, submissionID)
		if err != nil {
			return err
		}
		if !cfpdomain.Editable(sub.Status) {
			return apierr.Conflict("not_editable", fmt.Errorf("submission is %s", sub.Status))
		}
		if input.Format != "" && !validSessionFormat(input.Format) {
			return apierr.BadRequest("invalid_format", fmt.Errorf("unknown format %q", input.Format))
		}

		fields := map[string]any{}
		if title := strings.TrimSpace(input.Title); title != "" {
			fields["title"] = title
		}
		if input.Abstract != "" {
			fields["abstract"] = input.Abstract
		}
		if input.Format != "" {
			fields["format"] = input.Format
		}
		if input.Track != "" {
			fields["track"] = input.Track
		}
		if input.AudienceLevel != "" {
			fields["audience_level"] = input.AudienceLevel
		}
		if input.SpeakerBio != "" {
			fields["speaker_bio"] = input.SpeakerBio
		}
		if input.Notes != "" {
			fields["notes"] = input.Notes
		}
		if len(fields) > 0 {
			if err := cf.submissionRepo.Update(ctx, tx, sub.ID, fields); err != nil {
				return err
			}
		}
		got, err := cf.submissionRepo.GetByID(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		updated = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (cf *cfpService) Submit(ctx context.Context, accountID, submissionID uuid.UUID) (*types.Submission, error) {
	now := time.Now()
	if cf.windowOpen != nil && now.Before(*cf.windowOpen) {
		return nil, apierr.Conflict("cfp_closed", fmt.Errorf("call for proposals has not opened"))
	}
	if cf.windowClose != nil && now.After(*cf.windowClose) {
		return nil, apierr.Conflict("cfp_closed", fmt.Errorf("call for proposals has closed"))
	}

	var submitted *types.Submission
	err := cf.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := cf.getOwned(ctx, tx, accountID, submissionID)
		if err != nil {
			return err
		}
		if !cfpdomain.CanTransition(sub.Status, types.CFPSubmitted) {
			return apierr.Conflict("invalid_transition", fmt.Errorf("cannot submit from %s", sub.Status))
		}
		if strings.TrimSpace(sub.Title) == "" || strings.TrimSpace(sub.Abstract) == "" {
			return apierr.BadRequest("incomplete_submission", fmt.Errorf("title and abstract are required"))
		}
		if !validSessionFormat(sub.Format) {
			return apierr.BadRequest("invalid_format", fmt.Errorf("pick a session format before submitting"))
		}

		if err := cf.submissionRepo.Update(ctx, tx, sub.ID, map[string]any{
			"status":       types.CFPSubmitted,
			"submitted_at": now,
		}); err != nil {
			return err
		}
		sub.Status = types.CFPSubmitted
		sub.SubmittedAt = &now

		account, err := cf.accountRepo.GetByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if err := cf.mailService.EnqueueCFPReceived(dbctx.New(ctx, tx), account, sub); err != nil {
			cf.log.Error("enqueue cfp received", "submission_id", sub.ID, "error", err)
		}
		submitted = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.Current().IncCFPTransition(types.CFPSubmitted)
	return submitted, nil
}

func (cf *cfpService) Withdraw(ctx context.Context, accountID, submissionID uuid.UUID) (*types.Submission, error) {
	var withdrawn *types.Submission
	err := cf.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := cf.getOwned(ctx, tx, accountID, submissionID)
		if err != nil {
			return err
		}
		if !cfpdomain.CanTransition(sub.Status, types.CFPWithdrawn) {
			return apierr.Conflict("invalid_transition", fmt.Errorf("cannot withdraw from %s", sub.Status))
		}
		if err := cf.submissionRepo.Update(ctx, tx, sub.ID, map[string]any{"status": types.CFPWithdrawn}); err != nil {
			return err
		}
		sub.Status = types.CFPWithdrawn
		withdrawn = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.Current().IncCFPTransition(types.CFPWithdrawn)
	return withdrawn, nil
}

func (cf *cfpService) ListOwn(ctx context.Context, accountID uuid.UUID) ([]*types.Submission, error) {
	return cf.submissionRepo.ListByAccountID(ctx, nil, accountID)
}

func (cf *cfpService) GetOwn(ctx context.Context, accountID, submissionID uuid.UUID) (*types.Submission, error) {
	return cf.getOwned(ctx, nil, accountID, submissionID)
}

func (cf *cfpService) UploadSlides(ctx context.Context, accountID, submissionID uuid.UUID, filename string, r io.Reader) (*types.Submission, error) {
	sub, err := cf.getOwned(ctx, nil, accountID, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == types.CFPWithdrawn || sub.Status == types.CFPRejected {
		return nil, apierr.Conflict("not_editable", fmt.Errorf("submission is %s", sub.Status))
	}

	ext := "pdf"
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		ext = strings.ToLower(filename[i+1:])
	}
	key := fmt.Sprintf("%s/%d.%s", sub.ID, time.Now().UnixNano(), ext)
	if err := cf.bucketService.Upload(ctx, gcs.CategorySlide, key, r); err != nil {
		return nil, apierr.Upstream("storage_unavailable", fmt.Errorf("upload slides: %w", err))
	}
	oldKey := sub.SlideKey
	if err := cf.submissionRepo.Update(ctx, nil, sub.ID, map[string]any{"slide_key": key}); err != nil {
		return nil, err
	}
	if oldKey != "" {
		if err := cf.bucketService.Delete(ctx, gcs.CategorySlide, oldKey); err != nil {
			cf.log.Warn("delete previous slides", "key", oldKey, "error", err)
		}
	}
	sub.SlideKey = key
	return sub, nil
}

// --- admin side ---

func (cf *cfpService) ListByStatus(ctx context.Context, status string) ([]*SubmissionSummary, error) {
	subs, err := cf.submissionRepo.ListByStatus(ctx, nil, status)
	if err != nil {
		return nil, err
	}
	out := make([]*SubmissionSummary, 0, len(subs))
	for _, sub := range subs {
		avg, count, err := cf.reviewRepo.AverageRating(ctx, nil, sub.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &SubmissionSummary{Submission: sub, AverageRating: avg, ReviewCount: count})
	}
	return out, nil
}

func (cf *cfpService) StartReview(ctx context.Context, submissionID uuid.UUID) (*types.Submission, error) {
	var sub *types.Submission
	err := cf.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		got, err := cf.submissionRepo.GetByID(ctx, tx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("submission_not_found", fmt.Errorf("no such submission"))
			}
			return err
		}
		if !cfpdomain.CanTransition(got.Status, types.CFPUnderReview) {
			return apierr.Conflict("invalid_transition", fmt.Errorf("cannot start review from %s", got.Status))
		}
		if err := cf.submissionRepo.Update(ctx, tx, got.ID, map[string]any{"status": types.CFPUnderReview}); err != nil {
			return err
		}
		got.Status = types.CFPUnderReview
		sub = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.Current().IncCFPTransition(types.CFPUnderReview)
	return sub, nil
}

// Decide settles an under-review submission. Acceptance provisions the
// program entities (unpublished, for the editor to polish) and a
// speaker ticket voucher.
func (cf *cfpService) Decide(ctx context.Context, submissionID uuid.UUID, accept bool) (*types.Submission, error) {
	target := types.CFPRejected
	if accept {
		target = types.CFPAccepted
	}

	var decided *types.Submission
	var voucherCode string
	err := cf.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := cf.submissionRepo.GetByID(ctx, tx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("submission_not_found", fmt.Errorf("no such submission"))
			}
			return err
		}
		if !cfpdomain.CanTransition(sub.Status, target) {
			return apierr.Conflict("invalid_transition", fmt.Errorf("cannot decide from %s", sub.Status))
		}

		now := time.Now()
		if err := cf.submissionRepo.Update(ctx, tx, sub.ID, map[string]any{
			"status":     target,
			"decided_at": now,
		}); err != nil {
			return err
		}
		sub.Status = target
		sub.DecidedAt = &now

		account, err := cf.accountRepo.GetByID(ctx, tx, sub.AccountID)
		if err != nil {
			return err
		}

		if accept {
			if err := cf.provisionSpeaker(ctx, tx, account, sub); err != nil {
				return err
			}
			if err := cf.accountRepo.UpdateRole(ctx, tx, account.ID, types.RoleSpeaker); err != nil {
				return err
			}
			vouchers, err := cf.discountService.MintVouchers(ctx, tx, MintVouchersInput{
				Kind:  types.VoucherSpeaker,
				Count: 1,
				Note:  fmt.Sprintf("speaker ticket for %q", sub.Title),
			})
			if err != nil {
				return err
			}
			voucherCode = vouchers[0].Code
			if err := cf.mailService.EnqueueCFPAccepted(dbctx.New(ctx, tx), account, sub, voucherCode); err != nil {
				cf.log.Error("enqueue cfp accepted", "submission_id", sub.ID, "error", err)
			}
		} else {
			if err := cf.mailService.EnqueueCFPRejected(dbctx.New(ctx, tx), account, sub); err != nil {
				cf.log.Error("enqueue cfp rejected", "submission_id", sub.ID, "error", err)
			}
		}
		decided = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.Current().IncCFPTransition(target)
	cf.log.Info("submission decided", "submission_id", submissionID, "status", target)
	return decided, nil
}

func (cf *cfpService) UpsertReview(ctx context.Context, reviewerID, submissionID uuid.UUID, input ReviewInput) (*types.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apierr.BadRequest("invalid_rating", fmt.Errorf("rating must be 1-5"))
	}
	sub, err := cf.submissionRepo.GetByID(ctx, nil, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("submission_not_found", fmt.Errorf("no such submission"))
		}
		return nil, err
	}
	if !cfpdomain.Reviewable(sub.Status) {
		return nil, apierr.Conflict("not_reviewable", fmt.Errorf("submission is %s", sub.Status))
	}
	review := &types.Review{
		SubmissionID: submissionID,
		ReviewerID:   reviewerID,
		Rating:       input.Rating,
		Comment:      input.Comment,
	}
	if _, err := cf.reviewRepo.Upsert(ctx, nil, review); err != nil {
		return nil, fmt.Errorf("upsert review: %w", err)
	}
	return review, nil
}

func (cf *cfpService) ListReviews(ctx context.Context, submissionID uuid.UUID) ([]*types.Review, error) {
	return cf.reviewRepo.ListBySubmissionID(ctx, nil, submissionID)
}

// --- helpers ---

func (cf *cfpService) getOwned(ctx context.Context, tx *gorm.DB, accountID, submissionID uuid.UUID) (*types.Submission, error) {
	sub, err := cf.submissionRepo.GetByID(ctx, tx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("submission_not_found", fmt.Errorf("no such submission"))
		}
		return nil, err
	}
	// Owners only; existence is not revealed to anyone else.
	if sub.AccountID != accountID {
		return nil, apierr.NotFound("submission_not_found", fmt.Errorf("no such submission"))
	}
	return sub, nil
}

// provisionSpeaker creates the unpublished speaker profile and session
// backing an accepted talk. An existing profile for the account is
// reused.
func (cf *cfpService) provisionSpeaker(ctx context.Context, tx *gorm.DB, account *types.Account, sub *types.Submission) error {
	var speaker *types.Speaker
	existing, err := cf.speakerRepo.ListAll(ctx, tx)
	if err != nil {
		return err
	}
	for _, sp := range existing {
		if sp.AccountID != nil && *sp.AccountID == account.ID {
			speaker = sp
			break
		}
	}
	if speaker == nil {
		speakerSlug, err := uniqueSpeakerSlug(ctx, tx, cf.speakerRepo, slug.Make(account.Name))
		if err != nil {
			return err
		}
		speaker = &types.Speaker{
			ID:        uuid.New(),
			AccountID: &account.ID,
			Name:      account.Name,
			Slug:      speakerSlug,
			Bio:       sub.SpeakerBio,
		}
		if _, err := cf.speakerRepo.Create(ctx, tx, speaker); err != nil {
			return fmt.Errorf("create speaker: %w", err)
		}
	}

	sessionSlug, err := uniqueSessionSlug(ctx, tx, cf.sessionRepo, slug.Make(sub.Title))
	if err != nil {
		return err
	}
	session := &types.Session{
		ID:           uuid.New(),
		SpeakerID:    speaker.ID,
		SubmissionID: &sub.ID,
		Title:        sub.Title,
		Slug:         sessionSlug,
		Abstract:     sub.Abstract,
		Format:       sub.Format,
		Track:        sub.Track,
	}
	if _, err := cf.sessionRepo.Create(ctx, tx, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// envTime reads an RFC3339 instant from the environment; a malformed
// value is logged and treated as unset.
func envTime(log *logger.Logger, name string) *time.Time {
	raw := strings.TrimSpace(envutil.Str(name, ""))
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		log.Warn("ignoring malformed RFC3339 env value", "name", name, "value", raw, "error", err)
		return nil
	}
	return &t
}
