package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/borealisconf/borealis-backend/internal/http/handlers"
	httpMW "github.com/borealisconf/borealis-backend/internal/http/middleware"
	"github.com/borealisconf/borealis-backend/internal/observability"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware
	RateLimiter    *httpMW.RateLimiter

	HealthHandler    *httpH.HealthHandler
	AuthHandler      *httpH.AuthHandler
	AccountHandler   *httpH.AccountHandler
	ProgramHandler   *httpH.ProgramHandler
	TicketHandler    *httpH.TicketTypeHandler
	CartHandler      *httpH.CartHandler
	OrderHandler     *httpH.OrderHandler
	WebhookHandler   *httpH.StripeWebhookHandler
	CFPHandler       *httpH.CFPHandler
	DiscountHandler  *httpH.DiscountHandler
	EmailHandler     *httpH.EmailHandler
	AnalyticsHandler *httpH.AnalyticsHandler
	DashboardHandler *httpH.DashboardHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("borealis-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Healthz)
		r.GET("/readyz", cfg.HealthHandler.Readyz)
	}

	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.RateLimiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{cfg.RateLimiter.Limit(), h}
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/register", limited(cfg.AuthHandler.Register)...)
			api.POST("/auth/login", limited(cfg.AuthHandler.Login)...)
			api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
		}

		// Program (public)
		if cfg.ProgramHandler != nil {
			api.GET("/speakers", cfg.ProgramHandler.ListSpeakers)
			api.GET("/speakers/:slug", cfg.ProgramHandler.GetSpeaker)
			api.GET("/sessions", cfg.ProgramHandler.ListSessions)
			api.GET("/sessions/:slug", cfg.ProgramHandler.GetSession)
			api.GET("/schedule", cfg.ProgramHandler.Schedule)
		}

		// Ticket catalog (public)
		if cfg.TicketHandler != nil {
			api.GET("/ticket-types", cfg.TicketHandler.ListPublic)
		}

		// Cart wizard (public, token-scoped)
		if cfg.CartHandler != nil {
			create := cfg.CartHandler.Create
			if cfg.AuthMiddleware != nil {
				api.POST("/carts", append(limited(cfg.AuthMiddleware.OptionalAuth()), create)...)
			} else {
				api.POST("/carts", limited(create)...)
			}
			api.GET("/carts/:token", cfg.CartHandler.Get)
			api.PUT("/carts/:token/items", limited(cfg.CartHandler.SetItems)...)
			api.PUT("/carts/:token/attendees", limited(cfg.CartHandler.SetAttendees)...)
			api.POST("/carts/:token/advance", limited(cfg.CartHandler.Advance)...)
			api.POST("/carts/:token/back", limited(cfg.CartHandler.Back)...)
			api.POST("/carts/:token/code", limited(cfg.CartHandler.ApplyCode)...)
			api.DELETE("/carts/:token/code", limited(cfg.CartHandler.RemoveCode)...)
			api.POST("/carts/:token/checkout", limited(cfg.CartHandler.Checkout)...)
		}

		// Order self-service (public)
		if cfg.OrderHandler != nil {
			api.GET("/orders/lookup", cfg.OrderHandler.Lookup)
		}

		// Analytics ingest (public)
		if cfg.AnalyticsHandler != nil {
			api.POST("/events", limited(cfg.AnalyticsHandler.Ingest)...)
		}

		// Stripe webhook (verified by signature, not by session)
		if cfg.WebhookHandler != nil {
			api.POST("/webhooks/stripe", cfg.WebhookHandler.Handle)
		}
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.AuthHandler != nil {
			protected.POST("/auth/logout", cfg.AuthHandler.Logout)
		}
		if cfg.AccountHandler != nil {
			protected.GET("/me", cfg.AccountHandler.Me)
			protected.PATCH("/me", cfg.AccountHandler.UpdateMe)
		}
		if cfg.OrderHandler != nil {
			protected.GET("/me/orders", cfg.OrderHandler.ListMine)
		}

		// CFP portal (owner-scoped)
		if cfg.CFPHandler != nil {
			protected.POST("/cfp/submissions", cfg.CFPHandler.CreateDraft)
			protected.GET("/cfp/submissions", cfg.CFPHandler.ListOwn)
			protected.GET("/cfp/submissions/:id", cfg.CFPHandler.GetOwn)
			protected.PUT("/cfp/submissions/:id", cfg.CFPHandler.UpdateDraft)
			protected.POST("/cfp/submissions/:id/submit", cfg.CFPHandler.Submit)
			protected.POST("/cfp/submissions/:id/withdraw", cfg.CFPHandler.Withdraw)
			protected.POST("/cfp/submissions/:id/slides", cfg.CFPHandler.UploadSlides)
		}
	}

	admin := api.Group("/admin")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAdmin())
	}
	{
		if cfg.TicketHandler != nil {
			admin.GET("/ticket-types", cfg.TicketHandler.ListAll)
			admin.POST("/ticket-types", cfg.TicketHandler.Create)
			admin.PATCH("/ticket-types/:id", cfg.TicketHandler.Update)
		}
		if cfg.ProgramHandler != nil {
			admin.GET("/speakers", cfg.ProgramHandler.ListAllSpeakers)
			admin.POST("/speakers", cfg.ProgramHandler.CreateSpeaker)
			admin.PATCH("/speakers/:id", cfg.ProgramHandler.UpdateSpeaker)
			admin.DELETE("/speakers/:id", cfg.ProgramHandler.DeleteSpeaker)
			admin.POST("/speakers/:id/photo", cfg.ProgramHandler.UploadSpeakerPhoto)
			admin.GET("/sessions", cfg.ProgramHandler.ListAllSessions)
			admin.POST("/sessions", cfg.ProgramHandler.CreateSession)
			admin.PATCH("/sessions/:id", cfg.ProgramHandler.UpdateSession)
			admin.DELETE("/sessions/:id", cfg.ProgramHandler.DeleteSession)
		}
		if cfg.DiscountHandler != nil {
			admin.GET("/coupons", cfg.DiscountHandler.ListCoupons)
			admin.POST("/coupons", cfg.DiscountHandler.CreateCoupon)
			admin.DELETE("/coupons/:id", cfg.DiscountHandler.DeactivateCoupon)
			admin.GET("/vouchers", cfg.DiscountHandler.ListVouchers)
			admin.POST("/vouchers", cfg.DiscountHandler.MintVouchers)
			admin.DELETE("/vouchers/:id", cfg.DiscountHandler.DeactivateVoucher)
		}
		if cfg.OrderHandler != nil {
			admin.GET("/orders", cfg.OrderHandler.List)
			admin.GET("/orders/:id", cfg.OrderHandler.Get)
			admin.POST("/orders/:id/refund", cfg.OrderHandler.Refund)
			admin.POST("/orders/:id/resend", cfg.OrderHandler.ResendConfirmation)
			admin.GET("/attendees/export", cfg.OrderHandler.ExportAttendees)
			admin.POST("/tickets/:code/check-in", cfg.OrderHandler.CheckIn)
		}
		if cfg.CFPHandler != nil {
			admin.GET("/cfp/submissions", cfg.CFPHandler.ListByStatus)
			admin.POST("/cfp/submissions/:id/start-review", cfg.CFPHandler.StartReview)
			admin.POST("/cfp/submissions/:id/decide", cfg.CFPHandler.Decide)
			admin.GET("/cfp/submissions/:id/reviews", cfg.CFPHandler.ListReviews)
			admin.PUT("/cfp/submissions/:id/reviews", cfg.CFPHandler.UpsertReview)
		}
		if cfg.EmailHandler != nil {
			admin.POST("/emails/announce", cfg.EmailHandler.Announce)
			admin.GET("/emails", cfg.EmailHandler.ListRecent)
		}
		if cfg.DashboardHandler != nil {
			admin.GET("/dashboard", cfg.DashboardHandler.Get)
		}
		if cfg.AnalyticsHandler != nil {
			admin.GET("/analytics", cfg.AnalyticsHandler.Summary)
		}
	}

	return r
}
