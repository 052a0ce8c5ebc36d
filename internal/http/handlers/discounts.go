package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/platform/ctxutil"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type DiscountHandler struct {
	discountService services.DiscountService
}

func NewDiscountHandler(discountService services.DiscountService) *DiscountHandler {
	return &DiscountHandler{discountService: discountService}
}

func (dh *DiscountHandler) CreateCoupon(c *gin.Context) {
	var req struct {
		Code           string     `json:"code"`
		PercentOff     *int       `json:"percent_off"`
		AmountOffCents *int64     `json:"amount_off_cents"`
		Currency       string     `json:"currency"`
		MaxRedemptions int        `json:"max_redemptions"`
		ExpiresAt      *time.Time `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	coupon, err := dh.discountService.CreateCoupon(c.Request.Context(), services.CreateCouponInput{
		Code:           req.Code,
		PercentOff:     req.PercentOff,
		AmountOffCents: req.AmountOffCents,
		Currency:       req.Currency,
		MaxRedemptions: req.MaxRedemptions,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondCreated(c, coupon)
}

func (dh *DiscountHandler) ListCoupons(c *gin.Context) {
	coupons, err := dh.discountService.ListCoupons(c.Request.Context())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"coupons": coupons})
}

func (dh *DiscountHandler) DeactivateCoupon(c *gin.Context) {
	couponID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := dh.discountService.DeactivateCoupon(c.Request.Context(), couponID); err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (dh *DiscountHandler) MintVouchers(c *gin.Context) {
	var req struct {
		Kind           string     `json:"kind"`
		Count          int        `json:"count"`
		TicketTypeID   *uuid.UUID `json:"ticket_type_id"`
		MaxRedemptions int        `json:"max_redemptions"`
		ExpiresAt      *time.Time `json:"expires_at"`
		Note           string     `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	input := services.MintVouchersInput{
		Kind:           req.Kind,
		Count:          req.Count,
		TicketTypeID:   req.TicketTypeID,
		MaxRedemptions: req.MaxRedemptions,
		ExpiresAt:      req.ExpiresAt,
		Note:           req.Note,
	}
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.AccountID != uuid.Nil {
		id := rd.AccountID
		input.CreatedBy = &id
	}
	vouchers, err := dh.discountService.MintVouchers(c.Request.Context(), nil, input)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"vouchers": vouchers})
}

func (dh *DiscountHandler) ListVouchers(c *gin.Context) {
	vouchers, err := dh.discountService.ListVouchers(c.Request.Context(), c.Query("kind"))
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"vouchers": vouchers})
}

func (dh *DiscountHandler) DeactivateVoucher(c *gin.Context) {
	voucherID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := dh.discountService.DeactivateVoucher(c.Request.Context(), voucherID); err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
