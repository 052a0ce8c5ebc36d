package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	accountrepo "github.com/borealisconf/borealis-backend/internal/data/repos/account"
	"github.com/borealisconf/borealis-backend/internal/data/repos/pgerr"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/ctxutil"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type UpdateProfileInput struct {
	Name           *string
	MarketingOptIn *bool
}

type AccountService interface {
	Me(ctx context.Context) (*types.Account, error)
	UpdateProfile(ctx context.Context, input UpdateProfileInput) (*types.Account, error)
	EnsureAdmin(ctx context.Context) error
}

type accountService struct {
	db            *gorm.DB
	log           *logger.Logger
	accountRepo   accountrepo.AccountRepo
	avatarService AvatarService
	adminEmail    string
	adminPassword string
}

func NewAccountService(
	db *gorm.DB,
	log *logger.Logger,
	accountRepo accountrepo.AccountRepo,
	avatarService AvatarService,
	adminEmail string,
	adminPassword string,
) AccountService {
	serviceLog := log.With("service", "AccountService")
	return &accountService{
		db:            db,
		log:           serviceLog,
		accountRepo:   accountRepo,
		avatarService: avatarService,
		adminEmail:    strings.ToLower(strings.TrimSpace(adminEmail)),
		adminPassword: adminPassword,
	}
}

func (s *accountService) Me(ctx context.Context) (*types.Account, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.Unauthorized("not_authenticated", fmt.Errorf("no session"))
	}
	account, err := s.accountRepo.GetByID(ctx, nil, rd.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.Unauthorized("account_gone", fmt.Errorf("account no longer exists"))
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*types.Account, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.Unauthorized("not_authenticated", fmt.Errorf("no session"))
	}

	fields := map[string]any{}
	var renamed bool
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apierr.BadRequest("missing_name", fmt.Errorf("name cannot be empty"))
		}
		fields["name"] = name
		renamed = true
	}
	if input.MarketingOptIn != nil {
		fields["marketing_opt_in"] = *input.MarketingOptIn
	}

	var account *types.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.UpdateProfile(ctx, tx, rd.AccountID, fields); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		got, err := s.accountRepo.GetByID(ctx, tx, rd.AccountID)
		if err != nil {
			return fmt.Errorf("reload account: %w", err)
		}
		// Initials changed, so the generated avatar is stale.
		if renamed && s.avatarService != nil {
			if err := s.avatarService.CreateAndUploadAvatar(ctx, tx, got); err != nil {
				s.log.Warn("avatar refresh failed (ignored)", "error", err)
			} else if err := s.accountRepo.UpdateAvatarFields(ctx, tx, got.ID, got.AvatarKey, got.AvatarURL); err != nil {
				return fmt.Errorf("persist avatar fields: %w", err)
			}
		}
		account = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// EnsureAdmin creates the bootstrap admin account from ADMIN_EMAIL /
// ADMIN_PASSWORD on startup if it does not already exist.
func (s *accountService) EnsureAdmin(ctx context.Context) error {
	if s.adminEmail == "" || s.adminPassword == "" {
		s.log.Warn("admin bootstrap skipped (ADMIN_EMAIL/ADMIN_PASSWORD unset)")
		return nil
	}

	exists, err := s.accountRepo.EmailExists(ctx, nil, s.adminEmail)
	if err != nil {
		return fmt.Errorf("check admin account: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	account := &types.Account{
		ID:           uuid.New(),
		Email:        s.adminEmail,
		PasswordHash: string(hash),
		Name:         "Administrator",
		Role:         types.RoleAdmin,
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.avatarService != nil {
			if err := s.avatarService.CreateAndUploadAvatar(ctx, tx, account); err != nil {
				s.log.Warn("admin avatar generation failed (ignored)", "error", err)
			}
		}
		if _, err := s.accountRepo.Create(ctx, tx, account); err != nil {
			// Lost a race with a concurrent boot; that's fine.
			if pgerr.IsUniqueViolation(err) {
				return nil
			}
			return fmt.Errorf("create admin account: %w", err)
		}
		s.log.Info("admin account created", "account_id", account.ID.String())
		return nil
	})
}
