package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ordersrepo "github.com/borealisconf/borealis-backend/internal/data/repos/orders"
	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/platform/ctxutil"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type OrderHandler struct {
	orderService services.OrderService
}

func NewOrderHandler(orderService services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Lookup is the public "find my order" endpoint: both the order number
// and the purchaser email must match.
func (oh *OrderHandler) Lookup(c *gin.Context) {
	number := c.Query("number")
	email := c.Query("email")
	if number == "" || email == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_params", errMissingLookupParams)
		return
	}
	order, err := oh.orderService.Lookup(c.Request.Context(), number, email)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, order)
}

// ListMine returns the authenticated account's orders.
func (oh *OrderHandler) ListMine(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.AccountID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	orders, err := oh.orderService.ListForAccount(c.Request.Context(), rd.AccountID)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"orders": orders})
}

// --- admin ---

func (oh *OrderHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	orders, total, err := oh.orderService.List(c.Request.Context(), ordersrepo.ListFilter{
		Status: c.Query("status"),
		Search: c.Query("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"orders": orders, "total": total})
}

func (oh *OrderHandler) Get(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	order, err := oh.orderService.Get(c.Request.Context(), orderID)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, order)
}

func (oh *OrderHandler) Refund(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	order, err := oh.orderService.Refund(c.Request.Context(), orderID)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, order)
}

func (oh *OrderHandler) ResendConfirmation(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := oh.orderService.ResendConfirmation(c.Request.Context(), orderID); err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (oh *OrderHandler) ExportAttendees(c *gin.Context) {
	csvBytes, err := oh.orderService.ExportAttendeesCSV(c.Request.Context())
	if err != nil {
		response.Respond(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendees.csv"`)
	c.Data(http.StatusOK, "text/csv", csvBytes)
}

func (oh *OrderHandler) CheckIn(c *gin.Context) {
	code, err := uuid.Parse(c.Param("code"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_code", err)
		return
	}
	result, err := oh.orderService.CheckIn(c.Request.Context(), code)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, result)
}
