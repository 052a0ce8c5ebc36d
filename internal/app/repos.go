package app

import (
	"gorm.io/gorm"

	accountrepo "github.com/borealisconf/borealis-backend/internal/data/repos/account"
	analyticsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/analytics"
	cartrepo "github.com/borealisconf/borealis-backend/internal/data/repos/cart"
	cfprepo "github.com/borealisconf/borealis-backend/internal/data/repos/cfp"
	discountsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/discounts"
	mailrepo "github.com/borealisconf/borealis-backend/internal/data/repos/mail"
	ordersrepo "github.com/borealisconf/borealis-backend/internal/data/repos/orders"
	programrepo "github.com/borealisconf/borealis-backend/internal/data/repos/program"
	ticketsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/tickets"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type Repos struct {
	Account    accountrepo.AccountRepo
	Token      accountrepo.TokenRepo
	Speaker    programrepo.SpeakerRepo
	Session    programrepo.SessionRepo
	TicketType ticketsrepo.TicketTypeRepo
	Cart       cartrepo.CartRepo
	Order      ordersrepo.OrderRepo
	Ticket     ordersrepo.TicketRepo
	Coupon     discountsrepo.CouponRepo
	Voucher    discountsrepo.VoucherRepo
	Submission cfprepo.SubmissionRepo
	Review     cfprepo.ReviewRepo
	Outbox     mailrepo.OutboxRepo
	Event      analyticsrepo.EventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Account:    accountrepo.NewAccountRepo(db, log),
		Token:      accountrepo.NewTokenRepo(db, log),
		Speaker:    programrepo.NewSpeakerRepo(db, log),
		Session:    programrepo.NewSessionRepo(db, log),
		TicketType: ticketsrepo.NewTicketTypeRepo(db, log),
		Cart:       cartrepo.NewCartRepo(db, log),
		Order:      ordersrepo.NewOrderRepo(db, log),
		Ticket:     ordersrepo.NewTicketRepo(db, log),
		Coupon:     discountsrepo.NewCouponRepo(db, log),
		Voucher:    discountsrepo.NewVoucherRepo(db, log),
		Submission: cfprepo.NewSubmissionRepo(db, log),
		Review:     cfprepo.NewReviewRepo(db, log),
		Outbox:     mailrepo.NewOutboxRepo(db, log),
		Event:      analyticsrepo.NewEventRepo(db, log),
	}
}
