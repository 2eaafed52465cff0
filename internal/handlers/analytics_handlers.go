package handlers

import (
	"net/http"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler holds the analytics service.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(as services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: as}
}

// GetDashboard handles GET /dashboard/summary. ?period= is one of
// today|7|30|90|all, defaulting to 30.
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	summary, err := h.analyticsService.GetDashboard(c.DefaultQuery("period", services.PeriodMonth))
	if err != nil {
		respondServiceError(c, err, "dashboard")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetSupplierPerformance handles GET /analytics/suppliers.
func (h *AnalyticsHandler) GetSupplierPerformance(c *gin.Context) {
	performance, err := h.analyticsService.GetSupplierPerformance()
	if err != nil {
		respondServiceError(c, err, "supplier performance")
		return
	}
	c.JSON(http.StatusOK, performance)
}

// GetStrainPerformance handles GET /analytics/strains. ?window=90 restricts
// to the last ninety days.
func (h *AnalyticsHandler) GetStrainPerformance(c *gin.Context) {
	performance, err := h.analyticsService.GetStrainPerformance(c.Query("window") == "90")
	if err != nil {
		respondServiceError(c, err, "strain performance")
		return
	}
	c.JSON(http.StatusOK, performance)
}
