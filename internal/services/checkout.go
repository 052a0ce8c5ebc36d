package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cartrepo "github.com/borealisconf/borealis-backend/internal/data/repos/cart"
	discountsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/discounts"
	ordersrepo "github.com/borealisconf/borealis-backend/internal/data/repos/orders"
	ticketsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/tickets"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/observability"
	"github.com/borealisconf/borealis-backend/internal/pkg/codes"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/dbctx"
	"github.com/borealisconf/borealis-backend/internal/platform/envutil"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"github.com/borealisconf/borealis-backend/internal/platform/stripe"
)

// CheckoutResult is returned from Checkout. Completed carts (zero
// total, fully vouchered) have no session URL.
type CheckoutResult struct {
	OrderNumber string `json:"order_number"`
	TotalCents  int64  `json:"total_cents"`
	Completed   bool   `json:"completed"`
	SessionURL  string `json:"session_url,omitempty"`
}

type CheckoutService interface {
	Checkout(ctx context.Context, token uuid.UUID, email string) (*CheckoutResult, error)
	FinalizeSession(ctx context.Context, sessionID, paymentIntentID, payerEmail string) error
	ExpireSession(ctx context.Context, sessionID string) error
}

type checkoutService struct {
	db             *gorm.DB
	log            *logger.Logger
	cartRepo       cartrepo.CartRepo
	ticketTypeRepo ticketsrepo.TicketTypeRepo
	orderRepo      ordersrepo.OrderRepo
	ticketRepo     ordersrepo.TicketRepo
	couponRepo     discountsrepo.CouponRepo
	voucherRepo    discountsrepo.VoucherRepo
	stripeClient   stripe.Client
	mailService    MailService

	successURL string
	cancelURL  string
	sessionTTL time.Duration
}

func NewCheckoutService(
	db *gorm.DB,
	log *logger.Logger,
	cartRepo cartrepo.CartRepo,
	ticketTypeRepo ticketsrepo.TicketTypeRepo,
	orderRepo ordersrepo.OrderRepo,
	ticketRepo ordersrepo.TicketRepo,
	couponRepo discountsrepo.CouponRepo,
	voucherRepo discountsrepo.VoucherRepo,
	stripeClient stripe.Client,
	mailService MailService,
) CheckoutService {
	serviceLog := log.With("service", "CheckoutService")
	return &checkoutService{
		db:             db,
		log:            serviceLog,
		cartRepo:       cartRepo,
		ticketTypeRepo: ticketTypeRepo,
		orderRepo:      orderRepo,
		ticketRepo:     ticketRepo,
		couponRepo:     couponRepo,
		voucherRepo:    voucherRepo,
		stripeClient:   stripeClient,
		mailService:    mailService,
		successURL:     envutil.Str("CHECKOUT_SUCCESS_URL", "https://borealisconf.example/checkout/success"),
		cancelURL:      envutil.Str("CHECKOUT_CANCEL_URL", "https://borealisconf.example/checkout/cancel"),
		sessionTTL:     envutil.Duration("CHECKOUT_SESSION_TTL", 30*time.Minute),
	}
}

func (chs *checkoutService) Checkout(ctx context.Context, token uuid.UUID, email string) (*CheckoutResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !strings.Contains(email, "@") {
		return nil, apierr.BadRequest("invalid_email", fmt.Errorf("a billing email is required"))
	}

	var result *CheckoutResult
	err := chs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := chs.cartRepo.GetByTokenForUpdate(ctx, tx, token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("cart_not_found", fmt.Errorf("no such cart"))
			}
			return err
		}
		now := time.Now()
		switch {
		case c.Status == types.CartLocked:
			return apierr.Conflict("cart_locked", fmt.Errorf("payment already in progress"))
		case c.Status != types.CartOpen, now.After(c.ExpiresAt):
			return apierr.Conflict("cart_expired", fmt.Errorf("cart is no longer open"))
		}
		if c.Step != types.CartStepCheckout {
			return apierr.Conflict("wrong_step", fmt.Errorf("cart is at step %s", c.Step))
		}
		if len(c.Items) == 0 {
			return apierr.BadRequest("empty_cart", fmt.Errorf("nothing to check out"))
		}
		if err := requireCompleteAttendees(ctx, tx, chs.ticketTypeRepo, c); err != nil {
			return err
		}

		subtotal := subtotalCents(c.Items)
		discount := c.DiscountCents
		if discount > subtotal {
			discount = subtotal
		}
		total := subtotal - discount

		currency, names, err := chs.lineItemDetails(ctx, tx, c)
		if err != nil {
			return err
		}

		order := &types.Order{
			ID:            uuid.New(),
			Number:        codes.OrderNumber(now.Year()),
			CartID:        c.ID,
			AccountID:     c.AccountID,
			Email:         email,
			Status:        types.OrderPending,
			SubtotalCents: subtotal,
			DiscountCents: discount,
			TotalCents:    total,
			Currency:      currency,
			CouponCode:    c.CouponCode,
			VoucherCode:   c.VoucherCode,
		}
		if _, err := chs.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if total == 0 {
			// Fully vouchered: no money moves, fulfil on the spot.
			if err := chs.fulfil(ctx, tx, order, c, ""); err != nil {
				return err
			}
			result = &CheckoutResult{OrderNumber: order.Number, TotalCents: 0, Completed: true}
			return nil
		}

		session, err := chs.createStripeSession(ctx, c, order, names, email)
		if err != nil {
			return apierr.Upstream("stripe_unavailable", fmt.Errorf("create checkout session: %w", err))
		}

		if err := chs.orderRepo.Update(ctx, tx, order.ID, map[string]any{"stripe_session_id": session.ID}); err != nil {
			return err
		}
		if err := chs.cartRepo.Update(ctx, tx, c.ID, map[string]any{
			"status":            types.CartLocked,
			"stripe_session_id": session.ID,
			"email":             email,
		}); err != nil {
			return err
		}

		observability.Current().IncCheckoutSession()
		chs.log.Info("checkout session created", "order_number", order.Number, "total_cents", total)
		result = &CheckoutResult{OrderNumber: order.Number, TotalCents: total, SessionURL: session.URL}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FinalizeSession handles checkout.session.completed. Safe to replay:
// a non-pending order is a no-op.
func (chs *checkoutService) FinalizeSession(ctx context.Context, sessionID, paymentIntentID, payerEmail string) error {
	return chs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := chs.orderRepo.GetByStripeSessionIDForUpdate(ctx, tx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("order_not_found", fmt.Errorf("no order for session %s", sessionID))
			}
			return err
		}
		if order.Status != types.OrderPending {
			chs.log.Info("session already finalized", "order_number", order.Number, "status", order.Status)
			return nil
		}
		c, err := chs.cartRepo.GetByID(ctx, tx, order.CartID)
		if err != nil {
			return err
		}

		fields := map[string]any{"stripe_payment_intent_id": paymentIntentID}
		if order.Email == "" && payerEmail != "" {
			fields["email"] = strings.ToLower(payerEmail)
		}
		if err := chs.orderRepo.Update(ctx, tx, order.ID, fields); err != nil {
			return err
		}
		return chs.fulfil(ctx, tx, order, c, paymentIntentID)
	})
}

// ExpireSession handles checkout.session.expired: the pending order is
// canceled and the cart reopened so the visitor can try again.
func (chs *checkoutService) ExpireSession(ctx context.Context, sessionID string) error {
	return chs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := chs.orderRepo.GetByStripeSessionIDForUpdate(ctx, tx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("order_not_found", fmt.Errorf("no order for session %s", sessionID))
			}
			return err
		}
		if order.Status != types.OrderPending {
			return nil
		}
		if err := chs.orderRepo.Update(ctx, tx, order.ID, map[string]any{"status": types.OrderCanceled}); err != nil {
			return err
		}
		if err := chs.cartRepo.Update(ctx, tx, order.CartID, map[string]any{
			"status":            types.CartOpen,
			"stripe_session_id": "",
			"expires_at":        time.Now().Add(chs.sessionTTL),
		}); err != nil {
			return err
		}
		observability.Current().IncOrder(types.OrderCanceled)
		chs.log.Info("checkout session expired", "order_number", order.Number)
		return nil
	})
}

// fulfil marks the order paid, reserves inventory, issues tickets,
// burns discount codes, completes the cart, and queues the email — all
// inside the caller's transaction.
func (chs *checkoutService) fulfil(ctx context.Context, tx *gorm.DB, order *types.Order, c *types.Cart, paymentIntentID string) error {
	for _, item := range c.Items {
		if err := chs.ticketTypeRepo.ReserveSold(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
			if errors.Is(err, ticketsrepo.ErrSoldOut) {
				// Money already moved; fail loudly so the webhook
				// retries and the admin sees the stuck order.
				chs.log.Error("oversell on finalization", "order_number", order.Number, "ticket_type_id", item.TicketTypeID)
				return apierr.Conflict("sold_out", fmt.Errorf("capacity exhausted for type %s", item.TicketTypeID))
			}
			return err
		}
	}

	tickets := make([]*types.Ticket, 0, len(c.Attendees))
	for _, at := range c.Attendees {
		tickets = append(tickets, &types.Ticket{
			ID:            uuid.New(),
			OrderID:       order.ID,
			TicketTypeID:  at.TicketTypeID,
			AttendeeName:  at.Name,
			AttendeeEmail: at.Email,
			Company:       at.Company,
			Dietary:       at.Dietary,
			TShirtSize:    at.TShirtSize,
			Code:          uuid.New(),
			Status:        types.TicketValid,
		})
	}
	if len(tickets) > 0 {
		if _, err := chs.ticketRepo.Create(ctx, tx, tickets); err != nil {
			return fmt.Errorf("issue tickets: %w", err)
		}
	}

	if err := chs.redeemCodes(ctx, tx, c); err != nil {
		return err
	}

	now := time.Now()
	if err := chs.orderRepo.Update(ctx, tx, order.ID, map[string]any{
		"status":  types.OrderPaid,
		"paid_at": now,
	}); err != nil {
		return err
	}
	if err := chs.cartRepo.Update(ctx, tx, c.ID, map[string]any{"status": types.CartCompleted}); err != nil {
		return err
	}

	order.Status = types.OrderPaid
	order.PaidAt = &now
	if err := chs.mailService.EnqueueOrderConfirmation(dbctx.New(ctx, tx), order, tickets); err != nil {
		// The confirmation can be resent by an admin; never fail a
		// paid order over it.
		chs.log.Error("enqueue order confirmation", "order_number", order.Number, "error", err)
	}

	observability.Current().IncOrder(types.OrderPaid)
	observability.Current().AddTicketsIssued(len(tickets))
	chs.log.Info("order fulfilled", "order_number", order.Number, "tickets", len(tickets), "total_cents", order.TotalCents)
	return nil
}

func (chs *checkoutService) redeemCodes(ctx context.Context, tx *gorm.DB, c *types.Cart) error {
	if c.VoucherCode != nil {
		voucher, err := chs.voucherRepo.GetByCode(ctx, tx, *c.VoucherCode)
		if err == nil {
			if err := chs.voucherRepo.Redeem(ctx, tx, voucher.ID); err != nil {
				if errors.Is(err, discountsrepo.ErrRedemptionExhausted) {
					chs.log.Warn("voucher exhausted at finalization", "code", *c.VoucherCode)
				} else {
					return err
				}
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if c.CouponCode != nil {
		coupon, err := chs.couponRepo.GetByCode(ctx, tx, *c.CouponCode)
		if err == nil {
			if err := chs.couponRepo.Redeem(ctx, tx, coupon.ID); err != nil {
				if errors.Is(err, discountsrepo.ErrRedemptionExhausted) {
					chs.log.Warn("coupon exhausted at finalization", "code", *c.CouponCode)
				} else {
					return err
				}
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return nil
}

func (chs *checkoutService) lineItemDetails(ctx context.Context, tx *gorm.DB, c *types.Cart) (string, map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.TicketTypeID)
	}
	ticketTypes, err := chs.ticketTypeRepo.GetByIDs(ctx, tx, ids)
	if err != nil {
		return "", nil, err
	}
	currency := "EUR"
	names := map[uuid.UUID]string{}
	for _, tt := range ticketTypes {
		names[tt.ID] = tt.Name
		currency = tt.Currency
	}
	return currency, names, nil
}

func (chs *checkoutService) createStripeSession(ctx context.Context, c *types.Cart, order *types.Order, names map[uuid.UUID]string, email string) (*stripe.CheckoutSession, error) {
	lineItems := make([]stripe.LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		name := names[it.TicketTypeID]
		if name == "" {
			name = "Conference ticket"
		}
		lineItems = append(lineItems, stripe.LineItem{
			Name:            name,
			UnitAmountCents: it.UnitPriceCents,
			Quantity:        it.Quantity,
		})
	}

	params := stripe.CheckoutSessionParams{
		SuccessURL:        chs.successURL,
		CancelURL:         chs.cancelURL,
		CustomerEmail:     email,
		ClientReferenceID: order.ID.String(),
		Currency:          strings.ToLower(order.Currency),
		LineItems:         lineItems,
		Metadata: map[string]string{
			"order_number": order.Number,
			"cart_token":   c.Token.String(),
		},
	}
	expiresAt := time.Now().Add(chs.sessionTTL)
	params.ExpiresAt = &expiresAt

	if order.DiscountCents > 0 {
		// Session-level ad-hoc coupon mirrors the server-computed
		// discount exactly, whatever its origin.
		amountOff := order.DiscountCents
		coupon, err := chs.stripeClient.CreateCoupon(ctx, stripe.CouponParams{
			Name:         fmt.Sprintf("Discount %s", order.Number),
			AmountOff:    &amountOff,
			Currency:     strings.ToLower(order.Currency),
			DurationOnce: true,
		})
		if err != nil {
			return nil, fmt.Errorf("create session coupon: %w", err)
		}
		params.DiscountCoupon = coupon.ID
	}

	return chs.stripeClient.CreateCheckoutSession(ctx, params)
}
