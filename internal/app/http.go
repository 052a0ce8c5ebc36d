package app

import (
	"gorm.io/gorm"

	internalhttp "github.com/borealisconf/borealis-backend/internal/http"
	httpH "github.com/borealisconf/borealis-backend/internal/http/handlers"
	httpMW "github.com/borealisconf/borealis-backend/internal/http/middleware"
	"github.com/borealisconf/borealis-backend/internal/observability"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type Middleware struct {
	Auth      *httpMW.AuthMiddleware
	RateLimit *httpMW.RateLimiter
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Auth      *httpH.AuthHandler
	Account   *httpH.AccountHandler
	Program   *httpH.ProgramHandler
	Tickets   *httpH.TicketTypeHandler
	Cart      *httpH.CartHandler
	Orders    *httpH.OrderHandler
	Webhook   *httpH.StripeWebhookHandler
	CFP       *httpH.CFPHandler
	Discounts *httpH.DiscountHandler
	Emails    *httpH.EmailHandler
	Analytics *httpH.AnalyticsHandler
	Dashboard *httpH.DashboardHandler
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:      httpMW.NewAuthMiddleware(log, services.Auth),
		RateLimit: httpMW.NewRateLimiter(),
	}
}

func wireHandlers(db *gorm.DB, log *logger.Logger, cfg Config, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(db, clients.Cache),
		Auth:      httpH.NewAuthHandler(services.Auth),
		Account:   httpH.NewAccountHandler(services.Account),
		Program:   httpH.NewProgramHandler(services.Program),
		Tickets:   httpH.NewTicketTypeHandler(services.Tickets),
		Cart:      httpH.NewCartHandler(services.Cart, services.Checkout),
		Orders:    httpH.NewOrderHandler(services.Orders),
		Webhook:   httpH.NewStripeWebhookHandler(log, services.Checkout, clients.Cache, cfg.StripeWebhookSecret),
		CFP:       httpH.NewCFPHandler(services.CFP),
		Discounts: httpH.NewDiscountHandler(services.Discounts),
		Emails:    httpH.NewEmailHandler(services.Mail),
		Analytics: httpH.NewAnalyticsHandler(services.Analytics),
		Dashboard: httpH.NewDashboardHandler(services.Dashboard),
	}
}

func wireServer(log *logger.Logger, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *internalhttp.Server {
	return internalhttp.NewServer(internalhttp.RouterConfig{
		Log:     log,
		Metrics: metrics,

		AuthMiddleware: middleware.Auth,
		RateLimiter:    middleware.RateLimit,

		HealthHandler:    handlers.Health,
		AuthHandler:      handlers.Auth,
		AccountHandler:   handlers.Account,
		ProgramHandler:   handlers.Program,
		TicketHandler:    handlers.Tickets,
		CartHandler:      handlers.Cart,
		OrderHandler:     handlers.Orders,
		WebhookHandler:   handlers.Webhook,
		CFPHandler:       handlers.CFP,
		DiscountHandler:  handlers.Discounts,
		EmailHandler:     handlers.Emails,
		AnalyticsHandler: handlers.Analytics,
		DashboardHandler: handlers.Dashboard,
	})
}
