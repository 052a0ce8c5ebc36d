package app

import (
	"time"

	"github.com/borealisconf/borealis-backend/internal/platform/envutil"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type Config struct {
	Port string

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	AdminEmail    string
	AdminPassword string

	StripeWebhookSecret string

	Environment string
	Version     string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:                envutil.Str("PORT", "8080"),
		JWTSecretKey:        envutil.Str("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL:      envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL:     envutil.Duration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		AdminEmail:          envutil.Str("ADMIN_EMAIL", ""),
		AdminPassword:       envutil.Str("ADMIN_PASSWORD", ""),
		StripeWebhookSecret: envutil.Str("STRIPE_WEBHOOK_SECRET", ""),
		Environment:         envutil.Str("APP_ENV", "development"),
		Version:             envutil.Str("APP_VERSION", "dev"),
	}
	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set, using insecure default")
	}
	if cfg.StripeWebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET not set, webhook verification will reject all events")
	}
	return cfg
}
