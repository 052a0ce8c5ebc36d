package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
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

type RegisterInput struct {
	Email          string
	Password       string
	Name           string
	MarketingOptIn bool
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*types.Account, *TokenPair, error)
	Login(ctx context.Context, email, password string) (*types.Account, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	AccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	accountRepo   accountrepo.AccountRepo
	tokenRepo     accountrepo.TokenRepo
	avatarService AvatarService
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	accountRepo accountrepo.AccountRepo,
	tokenRepo accountrepo.TokenRepo,
	avatarService AvatarService,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		accountRepo:   accountRepo,
		tokenRepo:     tokenRepo,
		avatarService: avatarService,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) AccessTTL() time.Duration { return as.accessTTL }

func (as *authService) Register(ctx context.Context, input RegisterInput) (*types.Account, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.Name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, apierr.BadRequest("invalid_email", fmt.Errorf("invalid email"))
	}
	if len(input.Password) < 8 {
		return nil, nil, apierr.BadRequest("weak_password", fmt.Errorf("password must be at least 8 characters"))
	}
	if name == "" {
		return nil, nil, apierr.BadRequest("missing_name", fmt.Errorf("name is required"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	account := &types.Account{
		ID:             uuid.New(),
		Email:          email,
		PasswordHash:   string(hash),
		Name:           name,
		Role:           types.RoleAttendee,
		MarketingOptIn: input.MarketingOptIn,
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if as.avatarService != nil {
			if err := as.avatarService.CreateAndUploadAvatar(ctx, tx, account); err != nil {
				as.log.Warn("avatar generation failed (registering without)", "error", err)
			}
		}
		if _, err := as.accountRepo.Create(ctx, tx, account); err != nil {
			if pgerr.IsUniqueViolation(err) {
				return apierr.Conflict("email_taken", fmt.Errorf("email already registered"))
			}
			return fmt.Errorf("create account: %w", err)
		}
		issued, err := as.issueTokens(ctx, tx, account)
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	as.log.Info("account registered", "account_id", account.ID.String())
	return account, pair, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*types.Account, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := as.accountRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apierr.Unauthorized("invalid_credentials", fmt.Errorf("invalid email or password"))
		}
		return nil, nil, fmt.Errorf("lookup account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apierr.Unauthorized("invalid_credentials", fmt.Errorf("invalid email or password"))
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Drop stale tokens so the table doesn't accrete per login.
		if _, err := as.tokenRepo.DeleteExpired(ctx, tx, time.Now()); err != nil {
			return fmt.Errorf("prune expired tokens: %w", err)
		}
		issued, err := as.issueTokens(ctx, tx, account)
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	as.log.Info("account logged in", "account_id", account.ID.String())
	return account, pair, nil
}

// Refresh rotates the pair: the presented refresh token is deleted and
// a fresh row is issued, so a replayed refresh token fails.
func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apierr.Unauthorized("missing_refresh_token", fmt.Errorf("refresh token required"))
	}

	var pair *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := as.tokenRepo.GetByRefreshToken(ctx, tx, refreshToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.Unauthorized("invalid_refresh_token", fmt.Errorf("unknown refresh token"))
			}
			return fmt.Errorf("lookup refresh token: %w", err)
		}
		if row.ExpiresAt.Before(time.Now()) {
			_ = as.tokenRepo.DeleteByID(ctx, tx, row.ID)
			return apierr.Unauthorized("expired_refresh_token", fmt.Errorf("refresh token expired"))
		}

		account, err := as.accountRepo.GetByID(ctx, tx, row.AccountID)
		if err != nil {
			return fmt.Errorf("lookup account: %w", err)
		}

		if err := as.tokenRepo.DeleteByID(ctx, tx, row.ID); err != nil {
			return fmt.Errorf("rotate refresh token: %w", err)
		}
		issued, err := as.issueTokens(ctx, tx, account)
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) Logout(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return apierr.Unauthorized("not_authenticated", fmt.Errorf("no session"))
	}
	return as.tokenRepo.DeleteByAccessToken(ctx, nil, rd.TokenString)
}

// SetContextFromToken validates the JWT and stores the caller's
// identity on the context for downstream handlers.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return ctx, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid access token"))
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid subject claim"))
	}

	rd := &ctxutil.RequestData{
		AccountID:   accountID,
		Role:        claims.Role,
		TokenString: tokenString,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, account *types.Account) (*TokenPair, error) {
	accessToken, err := as.generateAccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken := uuid.New().String()

	row := &types.AccountToken{
		ID:           uuid.New(),
		AccountID:    account.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(as.refreshTTL),
	}
	if _, err := as.tokenRepo.Create(ctx, tx, row); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (as *authService) generateAccessToken(account *types.Account) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}
