package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/platform/ctxutil"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type CartHandler struct {
	cartService     services.CartService
	checkoutService services.CheckoutService
}

func NewCartHandler(cartService services.CartService, checkoutService services.CheckoutService) *CartHandler {
	return &CartHandler{cartService: cartService, checkoutService: checkoutService}
}

func cartToken(c *gin.Context) (uuid.UUID, bool) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_token", err)
		return uuid.Nil, false
	}
	return token, true
}

func (ch *CartHandler) Create(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	// Body is optional; anonymous carts start without an email.
	_ = c.ShouldBindJSON(&req)

	var accountID *uuid.UUID
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.AccountID != uuid.Nil {
		id := rd.AccountID
		accountID = &id
	}
	view, err := ch.cartService.Create(c.Request.Context(), accountID, req.Email)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondCreated(c, view)
}

func (ch *CartHandler) Get(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	view, err := ch.cartService.Get(c.Request.Context(), token)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (ch *CartHandler) SetItems(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	var req struct {
		Items []struct {
			TicketTypeID uuid.UUID `json:"ticket_type_id"`
			Quantity     int       `json:"quantity"`
		} `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	items := make([]services.CartItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.CartItemInput{TicketTypeID: it.TicketTypeID, Quantity: it.Quantity})
	}
	view, err := ch.cartService.SetItems(c.Request.Context(), token, items)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (ch *CartHandler) SetAttendees(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	var req struct {
		Attendees []struct {
			TicketTypeID uuid.UUID `json:"ticket_type_id"`
			Name         string    `json:"name"`
			Email        string    `json:"email"`
			Company      string    `json:"company"`
			Dietary      string    `json:"dietary"`
			TShirtSize   string    `json:"tshirt_size"`
		} `json:"attendees"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	attendees := make([]services.CartAttendeeInput, 0, len(req.Attendees))
	for _, at := range req.Attendees {
		attendees = append(attendees, services.CartAttendeeInput{
			TicketTypeID: at.TicketTypeID,
			Name:         at.Name,
			Email:        at.Email,
			Company:      at.Company,
			Dietary:      at.Dietary,
			TShirtSize:   at.TShirtSize,
		})
	}
	view, err := ch.cartService.SetAttendees(c.Request.Context(), token, attendees)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (ch *CartHandler) Advance(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	view, err := ch.cartService.Advance(c.Request.Context(), token)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (ch *CartHandler) Back(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	view, err := ch.cartService.Back(c.Request.Context(), token)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (ch *CartHandler) ApplyCode(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := ch.cartService.ApplyCode(c.Request.Context(), token, req.Code)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (ch *CartHandler) RemoveCode(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	view, err := ch.cartService.RemoveCode(c.Request.Context(), token)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (ch *CartHandler) Checkout(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := ch.checkoutService.Checkout(c.Request.Context(), token, req.Email)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, result)
}
