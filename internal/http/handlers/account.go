package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type AccountHandler struct {
	accountService services.AccountService
}

func NewAccountHandler(accountService services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

func (ah *AccountHandler) Me(c *gin.Context) {
	account, err := ah.accountService.Me(c.Request.Context())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, account)
}

func (ah *AccountHandler) UpdateMe(c *gin.Context) {
	var req struct {
		Name           *string `json:"name"`
		MarketingOptIn *bool   `json:"marketing_opt_in"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	account, err := ah.accountService.UpdateProfile(c.Request.Context(), services.UpdateProfileInput{
		Name:           req.Name,
		MarketingOptIn: req.MarketingOptIn,
	})
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, account)
}
