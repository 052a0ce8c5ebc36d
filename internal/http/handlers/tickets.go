package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type TicketTypeHandler struct {
	catalog services.TicketCatalogService
}

func NewTicketTypeHandler(catalog services.TicketCatalogService) *TicketTypeHandler {
	return &TicketTypeHandler{catalog: catalog}
}

func (th *TicketTypeHandler) ListPublic(c *gin.Context) {
	rows, err := th.catalog.ListPublic(c.Request.Context())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ticket_types": rows})
}

func (th *TicketTypeHandler) ListAll(c *gin.Context) {
	rows, err := th.catalog.ListAll(c.Request.Context())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ticket_types": rows})
}

type ticketTypeRequest struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	PriceCents   *int64     `json:"price_cents"`
	Currency     string     `json:"currency"`
	Capacity     *int       `json:"capacity"`
	MaxPerOrder  *int       `json:"max_per_order"`
	SalesOpenAt  *time.Time `json:"sales_open_at"`
	SalesCloseAt *time.Time `json:"sales_close_at"`
	Kind         string     `json:"kind"`
	Upsell       *bool      `json:"upsell"`
	SortOrder    *int       `json:"sort_order"`
	Active       *bool      `json:"active"`
}

func (r ticketTypeRequest) toInput() services.TicketTypeInput {
	return services.TicketTypeInput{
		Name:         r.Name,
		Description:  r.Description,
		PriceCents:   r.PriceCents,
		Currency:     r.Currency,
		Capacity:     r.Capacity,
		MaxPerOrder:  r.MaxPerOrder,
		SalesOpenAt:  r.SalesOpenAt,
		SalesCloseAt: r.SalesCloseAt,
		Kind:         r.Kind,
		Upsell:       r.Upsell,
		SortOrder:    r.SortOrder,
		Active:       r.Active,
	}
}

func (th *TicketTypeHandler) Create(c *gin.Context) {
	var req ticketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	tt, err := th.catalog.Create(c.Request.Context(), req.toInput())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondCreated(c, tt)
}

func (th *TicketTypeHandler) Update(c *gin.Context) {
	ticketTypeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req ticketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	tt, err := th.catalog.Update(c.Request.Context(), ticketTypeID, req.toInput())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, tt)
}
