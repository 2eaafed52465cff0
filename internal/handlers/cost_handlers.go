package handlers

import (
	"net/http"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// CostHandler holds the operating-cost service.
type CostHandler struct {
	costService services.CostService
}

// NewCostHandler creates a new CostHandler.
func NewCostHandler(cs services.CostService) *CostHandler {
	return &CostHandler{costService: cs}
}

// CreateCostEntry handles POST /costs.
func (h *CostHandler) CreateCostEntry(c *gin.Context) {
	var req services.SaveCostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	entry, err := h.costService.CreateCostEntry(req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "cost entry")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GetCostEntries handles GET /costs with optional ?type=.
func (h *CostHandler) GetCostEntries(c *gin.Context) {
	entries, err := h.costService.GetCostEntries(c.Query("type"))
	if err != nil {
		respondServiceError(c, err, "cost entry")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetCostEntryByID handles GET /costs/:id.
func (h *CostHandler) GetCostEntryByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.costService.GetCostEntry(id)
	if err != nil {
		respondServiceError(c, err, "cost entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// UpdateCostEntry handles PUT /costs/:id.
func (h *CostHandler) UpdateCostEntry(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.SaveCostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	entry, err := h.costService.UpdateCostEntry(id, req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "cost entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteCostEntry handles DELETE /costs/:id.
func (h *CostHandler) DeleteCostEntry(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.costService.DeleteCostEntry(id, actorID(c)); err != nil {
		respondServiceError(c, err, "cost entry")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cost entry deleted."})
}
