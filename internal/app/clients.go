package app

import (
	"fmt"

	"github.com/borealisconf/borealis-backend/internal/platform/gcs"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"github.com/borealisconf/borealis-backend/internal/platform/redcache"
	"github.com/borealisconf/borealis-backend/internal/platform/resend"
	"github.com/borealisconf/borealis-backend/internal/platform/stripe"
)

type Clients struct {
	Stripe stripe.Client
	Resend resend.Client
	Cache  *redcache.Cache
	Bucket gcs.BucketService
}

// wireClients builds the vendor clients. Payments and email are load
// bearing and abort boot; Redis and the asset bucket degrade to nil.
func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	stripeClient, err := stripe.NewFromEnv(log)
	if err != nil {
		return c, fmt.Errorf("init stripe client: %w", err)
	}
	c.Stripe = stripeClient

	resendClient, err := resend.NewFromEnv(log)
	if err != nil {
		return c, fmt.Errorf("init resend client: %w", err)
	}
	c.Resend = resendClient

	cache, err := redcache.NewFromEnv(log)
	if err != nil {
		log.Warn("Redis unavailable, caching and webhook dedupe disabled", "error", err)
	} else {
		c.Cache = cache
	}

	bucket, err := gcs.NewBucketService(log)
	if err != nil {
		log.Warn("Bucket unavailable, asset uploads disabled", "error", err)
	} else {
		c.Bucket = bucket
	}

	return c, nil
}
