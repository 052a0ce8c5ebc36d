package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	ticketsrepo "github.com/borealisconf/borealis-backend/internal/data/repos/tickets"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/pkg/slug"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type TicketTypeInput struct {
	Name         string
	Description  string
	PriceCents   *int64
	Currency     string
	Capacity     *int
	MaxPerOrder  *int
	SalesOpenAt  *time.Time
	SalesCloseAt *time.Time
	Kind         string
	Upsell       *bool
	SortOrder    *int
	Active       *bool
}

// PublicTicketType is a catalog row with availability hints and no
// raw sold counter.
type PublicTicketType struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	Kind        string    `json:"kind"`
	Upsell      bool      `json:"upsell"`
	Remaining   int       `json:"remaining"`
	OnSale      bool      `json:"on_sale"`
	SoldOut     bool      `json:"sold_out"`
}

type TicketCatalogService interface {
	ListPublic(ctx context.Context) ([]PublicTicketType, error)
	ListAll(ctx context.Context) ([]*types.TicketType, error)
	Create(ctx context.Context, input TicketTypeInput) (*types.TicketType, error)
	Update(ctx context.Context, ticketTypeID uuid.UUID, input TicketTypeInput) (*types.TicketType, error)
}

type ticketCatalogService struct {
	db             *gorm.DB
	log            *logger.Logger
	ticketTypeRepo ticketsrepo.TicketTypeRepo
}

func NewTicketCatalogService(db *gorm.DB, log *logger.Logger, ticketTypeRepo ticketsrepo.TicketTypeRepo) TicketCatalogService {
	serviceLog := log.With("service", "TicketCatalogService")
	return &ticketCatalogService{db: db, log: serviceLog, ticketTypeRepo: ticketTypeRepo}
}

func (ts *ticketCatalogService) ListPublic(ctx context.Context) ([]PublicTicketType, error) {
	rows, err := ts.ticketTypeRepo.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}

	now := time.Now()
	out := make([]PublicTicketType, 0, len(rows))
	for _, tt := range rows {
		out = append(out, PublicTicketType{
			ID:          tt.ID,
			Name:        tt.Name,
			Slug:        tt.Slug,
			Description: tt.Description,
			PriceCents:  tt.PriceCents,
			Currency:    tt.Currency,
			Kind:        tt.Kind,
			Upsell:      tt.Upsell,
			Remaining:   tt.Remaining(),
			OnSale:      tt.InSalesWindow(now),
			SoldOut:     tt.Remaining() == 0,
		})
	}
	return out, nil
}

func (ts *ticketCatalogService) ListAll(ctx context.Context) ([]*types.TicketType, error) {
	return ts.ticketTypeRepo.ListAll(ctx, nil)
}

func (ts *ticketCatalogService) Create(ctx context.Context, input TicketTypeInput) (*types.TicketType, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apierr.BadRequest("missing_name", fmt.Errorf("ticket type name is required"))
	}
	if input.PriceCents == nil || *input.PriceCents < 0 {
		return nil, apierr.BadRequest("invalid_price", fmt.Errorf("price_cents must be >= 0"))
	}
	if input.Capacity == nil || *input.Capacity <= 0 {
		return nil, apierr.BadRequest("invalid_capacity", fmt.Errorf("capacity must be positive"))
	}
	kind := input.Kind
	if kind == "" {
		kind = types.TicketKindConference
	}
	if !validTicketKind(kind) {
		return nil, apierr.BadRequest("invalid_kind", fmt.Errorf("unknown ticket kind %q", kind))
	}

	tt := &types.TicketType{
		ID:           uuid.New(),
		Name:         name,
		Slug:         slug.Make(name),
		Description:  input.Description,
		PriceCents:   *input.PriceCents,
		Capacity:     *input.Capacity,
		SalesOpenAt:  input.SalesOpenAt,
		SalesCloseAt: input.SalesCloseAt,
		Kind:         kind,
		MaxPerOrder:  10,
		Active:       true,
	}
	if input.Currency != "" {
		tt.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	}
	if input.MaxPerOrder != nil && *input.MaxPerOrder > 0 {
		tt.MaxPerOrder = *input.MaxPerOrder
	}
	if input.Upsell != nil {
		tt.Upsell = *input.Upsell
	}
	if input.SortOrder != nil {
		tt.SortOrder = *input.SortOrder
	}
	if input.Active != nil {
		tt.Active = *input.Active
	}

	if _, err := ts.ticketTypeRepo.Create(ctx, nil, tt); err != nil {
		return nil, fmt.Errorf("create ticket type: %w", err)
	}
	return tt, nil
}

func (ts *ticketCatalogService) Update(ctx context.Context, ticketTypeID uuid.UUID, input TicketTypeInput) (*types.TicketType, error) {
	fields := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" {
		fields["name"] = name
	}
	if input.Description != "" {
		fields["description"] = input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, apierr.BadRequest("invalid_price", fmt.Errorf("price_cents must be >= 0"))
		}
		fields["price_cents"] = *input.PriceCents
	}
	if input.Capacity != nil {
		if *input.Capacity <= 0 {
			return nil, apierr.BadRequest("invalid_capacity", fmt.Errorf("capacity must be positive"))
		}
		fields["capacity"] = *input.Capacity
	}
	if input.MaxPerOrder != nil && *input.MaxPerOrder > 0 {
		fields["max_per_order"] = *input.MaxPerOrder
	}
	if input.SalesOpenAt != nil {
		fields["sales_open_at"] = *input.SalesOpenAt
	}
	if input.SalesCloseAt != nil {
		fields["sales_close_at"] = *input.SalesCloseAt
	}
	if input.Kind != "" {
		if !validTicketKind(input.Kind) {
			return nil, apierr.BadRequest("invalid_kind", fmt.Errorf("unknown ticket kind %q", input.Kind))
		}
		fields["kind"] = input.Kind
	}
	if input.Upsell != nil {
		fields["upsell"] = *input.Upsell
	}
	if input.SortOrder != nil {
		fields["sort_order"] = *input.SortOrder
	}
	if input.Active != nil {
		fields["active"] = *input.Active
	}

	var tt *types.TicketType
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := ts.ticketTypeRepo.GetByIDForUpdate(ctx, tx, ticketTypeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("ticket_type_not_found", fmt.Errorf("no such ticket type"))
			}
			return err
		}
		// Capacity can never drop below what is already sold.
		if capacity, ok := fields["capacity"].(int); ok && capacity < current.Sold {
			return apierr.Conflict("capacity_below_sold", fmt.Errorf("capacity %d below %d sold", capacity, current.Sold))
		}
		if err := ts.ticketTypeRepo.Update(ctx, tx, ticketTypeID, fields); err != nil {
			return fmt.Errorf("update ticket type: %w", err)
		}
		got, err := ts.ticketTypeRepo.GetByID(ctx, tx, ticketTypeID)
		if err != nil {
			return err
		}
		tt = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tt, nil
}

func validTicketKind(k string) bool {
	switch k {
	case types.TicketKindConference, types.TicketKindWorkshop, types.TicketKindAddon:
		return true
	default:
		return false
	}
}
