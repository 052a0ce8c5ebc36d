package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type EmailHandler struct {
	mailService services.MailService
}

func NewEmailHandler(mailService services.MailService) *EmailHandler {
	return &EmailHandler{mailService: mailService}
}

// Announce queues a bulk email to one of the named audiences; delivery
// happens through the rate-limited outbox worker.
func (eh *EmailHandler) Announce(c *gin.Context) {
	var req struct {
		Audience string `json:"audience"`
		Subject  string `json:"subject"`
		HTML     string `json:"html"`
		Text     string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	queued, err := eh.mailService.Announce(c.Request.Context(), req.Audience, req.Subject, req.HTML, req.Text)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"queued": queued})
}

func (eh *EmailHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	emails, err := eh.mailService.ListRecent(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"emails": emails})
}
