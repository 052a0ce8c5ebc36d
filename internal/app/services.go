package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type Services struct {
	Avatar     services.AvatarService
	SocialCard services.SocialCardService
	Auth       services.AuthService
	Account    services.AccountService
	Program    services.ProgramService
	Tickets    services.TicketCatalogService
	Cart       services.CartService
	Mail       services.MailService
	Checkout   services.CheckoutService
	Orders     services.OrderService
	Discounts  services.DiscountService
	CFP        services.CFPService
	Analytics  services.AnalyticsService
	Dashboard  services.DashboardService
	Cron       services.CronService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	var s Services

	avatarService, err := services.NewAvatarService(db, log, clients.Bucket)
	if err != nil {
		return s, fmt.Errorf("init avatar service: %w", err)
	}
	cardService, err := services.NewSocialCardService(db, log, clients.Bucket)
	if err != nil {
		return s, fmt.Errorf("init social card service: %w", err)
	}

	s.Avatar = avatarService
	s.SocialCard = cardService
	s.Auth = services.NewAuthService(db, log, repos.Account, repos.Token, avatarService, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	s.Account = services.NewAccountService(db, log, repos.Account, avatarService, cfg.AdminEmail, cfg.AdminPassword)
	s.Program = services.NewProgramService(db, log, repos.Speaker, repos.Session, clients.Bucket, cardService, clients.Cache)
	s.Tickets = services.NewTicketCatalogService(db, log, repos.TicketType)
	s.Cart = services.NewCartService(db, log, repos.Cart, repos.TicketType, repos.Coupon, repos.Voucher)
	s.Mail = services.NewMailService(db, log, repos.Outbox, repos.Account, clients.Resend)
	s.Checkout = services.NewCheckoutService(db, log, repos.Cart, repos.TicketType, repos.Order, repos.Ticket, repos.Coupon, repos.Voucher, clients.Stripe, s.Mail)
	s.Orders = services.NewOrderService(db, log, repos.Order, repos.Ticket, repos.TicketType, clients.Stripe, s.Mail)
	s.Discounts = services.NewDiscountService(db, log, repos.Coupon, repos.Voucher, clients.Stripe)
	s.CFP = services.NewCFPService(db, log, repos.Submission, repos.Review, repos.Account, repos.Speaker, repos.Session, s.Discounts, s.Mail, clients.Bucket)
	s.Analytics = services.NewAnalyticsService(db, log, repos.Event)
	s.Dashboard = services.NewDashboardService(db, log, repos.Order, repos.Ticket, repos.TicketType, repos.Cart, repos.Submission, repos.Outbox)
	s.Cron = services.NewCronService(log, s.Cart, s.Mail, s.Analytics)

	return s, nil
}
