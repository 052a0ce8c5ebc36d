package services

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	cartrepo "github.com/borealisconf/borealis-backend/internal/data/repos/cart"
	cfprepo "github.com/borealisconf/borealis-backend/internal/data/repos/cfp"
	mailrepo "github.com/borealisconf/borealis-backend/internal/data/repos/mail"
	ordersrepo "github.com/borealisconf/borealis-backend/internal/data/repos/orders"
	ticketsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/tickets"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type TicketTypeStat struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Sold      int    `json:"sold"`
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
}

// DailyRevenue is one calendar day (UTC) of paid-order revenue.
type DailyRevenue struct {
	Day          string `json:"day"`
	RevenueCents int64  `json:"revenue_cents"`
	Orders       int64  `json:"orders"`
}

type Dashboard struct {
	OrdersByStatus   map[string]int64 `json:"orders_by_status"`
	RevenueCents30d  int64            `json:"revenue_cents_30d"`
	RevenueByDay     []DailyRevenue   `json:"revenue_by_day"`
	RecentOrders     []*types.Order   `json:"recent_orders"`
	TicketTypes      []TicketTypeStat `json:"ticket_types"`
	TicketsCheckedIn int64            `json:"tickets_checked_in"`
	CartsByStatus    map[string]int64 `json:"carts_by_status"`
	CFPByStatus      map[string]int64 `json:"cfp_by_status"`
	OutboxByStatus   map[string]int64 `json:"outbox_by_status"`
}

type DashboardService interface {
	Snapshot(ctx context.Context) (*Dashboard, error)
}

type dashboardService struct {
	db             *gorm.DB
	log            *logger.Logger
	orderRepo      ordersrepo.OrderRepo
	ticketRepo     ordersrepo.TicketRepo
	ticketTypeRepo ticketsrepo.TicketTypeRepo
	cartRepo       cartrepo.CartRepo
	submissionRepo cfprepo.SubmissionRepo
	outboxRepo     mailrepo.OutboxRepo
}

func NewDashboardService(
	db *gorm.DB,
	log *logger.Logger,
	orderRepo ordersrepo.OrderRepo,
	ticketRepo ordersrepo.TicketRepo,
	ticketTypeRepo ticketsrepo.TicketTypeRepo,
	cartRepo cartrepo.CartRepo,
	submissionRepo cfprepo.SubmissionRepo,
	outboxRepo mailrepo.OutboxRepo,
) DashboardService {
	serviceLog := log.With("service", "DashboardService")
	return &dashboardService{
		db:             db,
		log:            serviceLog,
		orderRepo:      orderRepo,
		ticketRepo:     ticketRepo,
		ticketTypeRepo: ticketTypeRepo,
		cartRepo:       cartRepo,
		submissionRepo: submissionRepo,
		outboxRepo:     outboxRepo,
	}
}

// Snapshot fans the independent aggregates out and assembles one
// payload for the back-office landing page.
func (dsh *dashboardService) Snapshot(ctx context.Context) (*Dashboard, error) {
	dash := &Dashboard{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := dsh.orderRepo.CountByStatus(gctx, nil)
		if err != nil {
			return err
		}
		dash.OrdersByStatus = counts
		return nil
	})
	g.Go(func() error {
		revenue, err := dsh.orderRepo.RevenueCentsSince(gctx, nil, time.Now().AddDate(0, 0, -30))
		if err != nil {
			return err
		}
		dash.RevenueCents30d = revenue
		return nil
	})
	g.Go(func() error {
		paid, err := dsh.orderRepo.ListPaidSince(gctx, nil, time.Now().AddDate(0, 0, -30))
		if err != nil {
			return err
		}
		dash.RevenueByDay = revenueByDay(paid)
		return nil
	})
	g.Go(func() error {
		recent, err := dsh.orderRepo.ListRecent(gctx, nil, 10)
		if err != nil {
			return err
		}
		dash.RecentOrders = recent
		return nil
	})
	g.Go(func() error {
		ticketTypes, err := dsh.ticketTypeRepo.ListAll(gctx, nil)
		if err != nil {
			return err
		}
		stats := make([]TicketTypeStat, 0, len(ticketTypes))
		for _, tt := range ticketTypes {
			stats = append(stats, TicketTypeStat{
				Name:      tt.Name,
				Slug:      tt.Slug,
				Sold:      tt.Sold,
				Capacity:  tt.Capacity,
				Remaining: tt.Remaining(),
			})
		}
		dash.TicketTypes = stats
		return nil
	})
	g.Go(func() error {
		n, err := dsh.ticketRepo.CountCheckedIn(gctx, nil)
		if err != nil {
			return err
		}
		dash.TicketsCheckedIn = n
		return nil
	})
	g.Go(func() error {
		counts, err := dsh.cartRepo.CountByStatus(gctx, nil)
		if err != nil {
			return err
		}
		dash.CartsByStatus = counts
		return nil
	})
	g.Go(func() error {
		counts, err := dsh.submissionRepo.CountByStatus(gctx, nil)
		if err != nil {
			return err
		}
		dash.CFPByStatus = counts
		return nil
	})
	g.Go(func() error {
		counts, err := dsh.outboxRepo.CountByStatus(gctx, nil)
		if err != nil {
			return err
		}
		dash.OutboxByStatus = counts
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}

// revenueByDay buckets paid orders into UTC calendar days, oldest first.
func revenueByDay(orders []*types.Order) []DailyRevenue {
	buckets := map[string]*DailyRevenue{}
	for _, order := range orders {
		if order.PaidAt == nil {
			continue
		}
		day := order.PaidAt.UTC().Format("2006-01-02")
		bucket := buckets[day]
		if bucket == nil {
			bucket = &DailyRevenue{Day: day}
			buckets[day] = bucket
		}
		bucket.RevenueCents += order.TotalCents
		bucket.Orders++
	}

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]DailyRevenue, 0, len(days))
	for _, day := range days {
		out = append(out, *buckets[day])
	}
	return out
}
