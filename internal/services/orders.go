package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	ordersrepo "github.com/borealisconf/borealis-backend/internal/data/repos/orders"
	ticketsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/tickets"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/observability"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/dbctx"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"github.com/borealisconf/borealis-backend/internal/platform/stripe"
)

// CheckInResult reports both first scans and replays; a replay keeps
// the original timestamp.
type CheckInResult struct {
	Ticket           *types.Ticket `json:"ticket"`
	AlreadyCheckedIn bool          `json:"already_checked_in"`
}

type OrderService interface {
	Lookup(ctx context.Context, number, email string) (*types.Order, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*types.Order, error)
	List(ctx context.Context, filter ordersrepo.ListFilter) ([]*types.Order, int64, error)
	Get(ctx context.Context, orderID uuid.UUID) (*types.Order, error)
	Refund(ctx context.Context, orderID uuid.UUID) (*types.Order, error)
	ResendConfirmation(ctx context.Context, orderID uuid.UUID) error
	ExportAttendeesCSV(ctx context.Context) ([]byte, error)
	CheckIn(ctx context.Context, code uuid.UUID) (*CheckInResult, error)
}

type orderService struct {
	db             *gorm.DB
	log            *logger.Logger
	orderRepo      ordersrepo.OrderRepo
	ticketRepo     ordersrepo.TicketRepo
	ticketTypeRepo ticketsrepo.TicketTypeRepo
	stripeClient   stripe.Client
	mailService    MailService
}

func NewOrderService(
	db *gorm.DB,
	log *logger.Logger,
	orderRepo ordersrepo.OrderRepo,
	ticketRepo ordersrepo.TicketRepo,
	ticketTypeRepo ticketsrepo.TicketTypeRepo,
	stripeClient stripe.Client,
	mailService MailService,
) OrderService {
	serviceLog := log.With("service", "OrderService")
	return &orderService{
		db:             db,
		log:            serviceLog,
		orderRepo:      orderRepo,
		ticketRepo:     ticketRepo,
		ticketTypeRepo: ticketTypeRepo,
		stripeClient:   stripeClient,
		mailService:    mailService,
	}
}

// Lookup is the public order check: the pair must match exactly, and
// a miss never reveals whether the number exists.
func (os *orderService) Lookup(ctx context.Context, number, email string) (*types.Order, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	email = strings.ToLower(strings.TrimSpace(email))
	if number == "" || email == "" {
		return nil, apierr.BadRequest("missing_fields", fmt.Errorf("order number and email are required"))
	}
	order, err := os.orderRepo.GetByNumber(ctx, nil, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("order_not_found", fmt.Errorf("no matching order"))
		}
		return nil, err
	}
	if !strings.EqualFold(order.Email, email) {
		return nil, apierr.NotFound("order_not_found", fmt.Errorf("no matching order"))
	}
	return order, nil
}

func (os *orderService) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*types.Order, error) {
	return os.orderRepo.ListByAccountID(ctx, nil, accountID)
}

func (os *orderService) List(ctx context.Context, filter ordersrepo.ListFilter) ([]*types.Order, int64, error) {
	return os.orderRepo.List(ctx, nil, filter)
}

func (os *orderService) Get(ctx context.Context, orderID uuid.UUID) (*types.Order, error) {
	order, err := os.orderRepo.GetByID(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("order_not_found", fmt.Errorf("no such order"))
		}
		return nil, err
	}
	return order, nil
}

// Refund refunds the Stripe payment, marks the order and its tickets
// refunded, and releases the reserved capacity. Rows are kept.
func (os *orderService) Refund(ctx context.Context, orderID uuid.UUID) (*types.Order, error) {
	var refunded *types.Order
	err := os.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := os.orderRepo.GetByID(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("order_not_found", fmt.Errorf("no such order"))
			}
			return err
		}
		if order.Status != types.OrderPaid {
			return apierr.Conflict("not_refundable", fmt.Errorf("order is %s", order.Status))
		}

		if order.StripePaymentIntentID != "" {
			if _, err := os.stripeClient.CreateRefund(ctx, order.StripePaymentIntentID); err != nil {
				return apierr.Upstream("stripe_unavailable", fmt.Errorf("refund: %w", err))
			}
		}

		if err := os.orderRepo.Update(ctx, tx, order.ID, map[string]any{"status": types.OrderRefunded}); err != nil {
			return err
		}
		if err := os.ticketRepo.UpdateStatusByOrderID(ctx, tx, order.ID, types.TicketRefunded); err != nil {
			return err
		}

		tickets, err := os.ticketRepo.ListByOrderID(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		perType := map[uuid.UUID]int{}
		for _, tk := range tickets {
			perType[tk.TicketTypeID]++
		}
		for ttID, n := range perType {
			if err := os.ticketTypeRepo.ReleaseSold(ctx, tx, ttID, n); err != nil {
				return err
			}
		}

		order.Status = types.OrderRefunded
		if err := os.mailService.EnqueueOrderRefunded(dbctx.New(ctx, tx), order); err != nil {
			os.log.Error("enqueue refund email", "order_number", order.Number, "error", err)
		}

		observability.Current().IncOrder(types.OrderRefunded)
		os.log.Info("order refunded", "order_number", order.Number, "tickets", len(tickets))
		refunded = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

func (os *orderService) ResendConfirmation(ctx context.Context, orderID uuid.UUID) error {
	order, err := os.orderRepo.GetByID(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("order_not_found", fmt.Errorf("no such order"))
		}
		return err
	}
	if order.Status != types.OrderPaid {
		return apierr.Conflict("not_confirmed", fmt.Errorf("order is %s", order.Status))
	}
	tickets, err := os.ticketRepo.ListByOrderID(ctx, nil, order.ID)
	if err != nil {
		return err
	}
	return os.mailService.EnqueueOrderConfirmation(dbctx.New(ctx, nil), order, tickets)
}

// ExportAttendeesCSV dumps every valid ticket for the registration
// desk spreadsheet.
func (os *orderService) ExportAttendeesCSV(ctx context.Context) ([]byte, error) {
	tickets, err := os.ticketRepo.ListValid(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list valid tickets: %w", err)
	}
	ticketTypes, err := os.ticketTypeRepo.ListAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	typeName := map[uuid.UUID]string{}
	for _, tt := range ticketTypes {
		typeName[tt.ID] = tt.Name
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"ticket_code", "ticket_type", "name", "email", "company", "dietary", "tshirt_size", "checked_in", "checked_in_at"})
	for _, tk := range tickets {
		checkedInAt := ""
		if tk.CheckedInAt != nil {
			checkedInAt = tk.CheckedInAt.Format(time.RFC3339)
		}
		_ = w.Write([]string{
			tk.Code.String(),
			typeName[tk.TicketTypeID],
			tk.AttendeeName,
			tk.AttendeeEmail,
			tk.Company,
			tk.Dietary,
			tk.TShirtSize,
			strconv.FormatBool(tk.CheckedInAt != nil),
			checkedInAt,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

func (os *orderService) CheckIn(ctx context.Context, code uuid.UUID) (*CheckInResult, error) {
	var result *CheckInResult
	err := os.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ticket, err := os.ticketRepo.GetByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("ticket_not_found", fmt.Errorf("no such ticket"))
			}
			return err
		}
		if ticket.Status != types.TicketValid {
			return apierr.Conflict("ticket_not_valid", fmt.Errorf("ticket is %s", ticket.Status))
		}

		now := time.Now()
		checkedIn, err := os.ticketRepo.CheckIn(ctx, tx, ticket.ID, now)
		if err != nil {
			return err
		}
		if checkedIn {
			ticket.CheckedInAt = &now
			result = &CheckInResult{Ticket: ticket}
			os.log.Info("ticket checked in", "ticket_id", ticket.ID)
			return nil
		}
		// Second scan: report, don't overwrite.
		result = &CheckInResult{Ticket: ticket, AlreadyCheckedIn: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
