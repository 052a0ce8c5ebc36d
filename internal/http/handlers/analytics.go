package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type AnalyticsHandler struct {
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Ingest accepts either {"events":[...]} or a single bare event body.
// The frontend fires these on page views and funnel steps.
func (ah *AnalyticsHandler) Ingest(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_body", err)
		return
	}

	var batch struct {
		Events []services.EventInput `json:"events"`
	}
	var events []services.EventInput
	if err := json.Unmarshal(body, &batch); err == nil && len(batch.Events) > 0 {
		events = batch.Events
	} else {
		var single services.EventInput
		if err := json.Unmarshal(body, &single); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		events = []services.EventInput{single}
	}

	accepted, err := ah.analyticsService.Ingest(c.Request.Context(), events)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"accepted": accepted})
}

func (ah *AnalyticsHandler) Summary(c *gin.Context) {
	windowDays, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	summary, err := ah.analyticsService.Summary(c.Request.Context(), windowDays)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, summary)
}
