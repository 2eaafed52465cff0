package handlers

import (
	"net/http"
	"strconv"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// RunHandler holds the run service.
type RunHandler struct {
	runService services.RunService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(rs services.RunService) *RunHandler {
	return &RunHandler{runService: rs}
}

// CreateRun handles POST /runs.
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req services.SaveRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	run, err := h.runService.CreateRun(req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "run")
		return
	}
	c.JSON(http.StatusCreated, run)
}

// GetRuns handles GET /runs with ?search=, ?sort=, ?desc=, ?page=, ?page_size=.
func (h *RunHandler) GetRuns(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	filters := repositories.RunFilters{
		Search:   c.Query("search"),
		SortBy:   c.Query("sort"),
		SortDesc: c.DefaultQuery("desc", "true") == "true",
		Page:     page,
		PageSize: pageSize,
	}
	runs, total, err := h.runService.GetRuns(filters)
	if err != nil {
		respondServiceError(c, err, "run")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":      runs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetRunByID handles GET /runs/:id.
func (h *RunHandler) GetRunByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	run, err := h.runService.GetRun(id)
	if err != nil {
		respondServiceError(c, err, "run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// UpdateRun handles PUT /runs/:id.
func (h *RunHandler) UpdateRun(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.SaveRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	run, err := h.runService.UpdateRun(id, req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// DeleteRun handles DELETE /runs/:id, restoring the consumed lot weight.
func (h *RunHandler) DeleteRun(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.runService.DeleteRun(id, actorID(c)); err != nil {
		respondServiceError(c, err, "run")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Run deleted."})
}

// RecalculateAll handles POST /runs/recalculate. Re-derives yield and cost
// for every run under the current configuration.
func (h *RunHandler) RecalculateAll(c *gin.Context) {
	report, err := h.runService.RecalculateAll(actorID(c))
	if err != nil {
		respondServiceError(c, err, "recalculation")
		return
	}
	c.JSON(http.StatusOK, report)
}
