package services

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

// CronService owns the recurring maintenance jobs: cart expiry,
// stranded-email recovery, and analytics retention.
type CronService interface {
	Start(ctx context.Context)
	Stop()
}

type cronService struct {
	log              *logger.Logger
	cartService      CartService
	mailService      MailService
	analyticsService AnalyticsService
	scheduler        *cron.Cron
}

func NewCronService(
	log *logger.Logger,
	cartService CartService,
	mailService MailService,
	analyticsService AnalyticsService,
) CronService {
	serviceLog := log.With("service", "CronService")
	return &cronService{
		log:              serviceLog,
		cartService:      cartService,
		mailService:      mailService,
		analyticsService: analyticsService,
		scheduler:        cron.New(),
	}
}

func (cr *cronService) Start(ctx context.Context) {
	mustAdd := func(spec string, name string, job func()) {
		if _, err := cr.scheduler.AddFunc(spec, job); err != nil {
			cr.log.Error("schedule cron job", "job", name, "error", err)
		}
	}

	mustAdd("* * * * *", "cart_expiry", func() {
		if _, err := cr.cartService.ExpireSweep(ctx); err != nil {
			cr.log.Error("cart expiry sweep", "error", err)
		}
	})
	mustAdd("*/10 * * * *", "outbox_requeue", func() {
		if _, err := cr.mailService.RequeueStuck(ctx); err != nil {
			cr.log.Error("outbox requeue", "error", err)
		}
	})
	mustAdd("30 3 * * *", "analytics_retention", func() {
		if _, err := cr.analyticsService.Retention(ctx); err != nil {
			cr.log.Error("analytics retention", "error", err)
		}
	})

	cr.scheduler.Start()
	cr.log.Info("cron jobs scheduled", "jobs", 3)

	go func() {
		<-ctx.Done()
		cr.Stop()
	}()
}

func (cr *cronService) Stop() {
	stopCtx := cr.scheduler.Stop()
	<-stopCtx.Done()
	cr.log.Info("cron jobs stopped")
}
