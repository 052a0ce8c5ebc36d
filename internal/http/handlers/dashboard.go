package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type DashboardHandler struct {
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (dh *DashboardHandler) Get(c *gin.Context) {
	snapshot, err := dh.dashboardService.Snapshot(c.Request.Context())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, snapshot)
}
