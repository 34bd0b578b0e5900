package controllers

import (
	"net/http"

	"github.com/farm2home/farm2home/app/services"
	"github.com/farm2home/farm2home/pkg/ctx"
)

type AnalyticsController struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsController(analytics *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

// Farmer handles GET /api/analytics/farmer/{email}.
func (ac *AnalyticsController) Farmer(c *ctx.Context) {
	report, err := ac.analytics.ForFarmer(c.Context(), pathParam(c, "email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
