package handlers

import (
	"net/http"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// PipelineHandler holds the biomass pipeline service.
type PipelineHandler struct {
	pipelineService services.PipelineService
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(ps services.PipelineService) *PipelineHandler {
	return &PipelineHandler{pipelineService: ps}
}

// CreateAvailability handles POST /pipeline.
func (h *PipelineHandler) CreateAvailability(c *gin.Context) {
	var req services.SaveAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	availability, err := h.pipelineService.CreateAvailability(req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "biomass availability")
		return
	}
	c.JSON(http.StatusCreated, availability)
}

// GetAvailabilities handles GET /pipeline with optional ?stage=.
func (h *PipelineHandler) GetAvailabilities(c *gin.Context) {
	availabilities, err := h.pipelineService.GetAvailabilities(c.Query("stage"))
	if err != nil {
		respondServiceError(c, err, "biomass availability")
		return
	}
	c.JSON(http.StatusOK, availabilities)
}

// GetAvailabilityByID handles GET /pipeline/:id.
func (h *PipelineHandler) GetAvailabilityByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	availability, err := h.pipelineService.GetAvailability(id)
	if err != nil {
		respondServiceError(c, err, "biomass availability")
		return
	}
	c.JSON(http.StatusOK, availability)
}

// UpdateAvailability handles PUT /pipeline/:id.
func (h *PipelineHandler) UpdateAvailability(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.SaveAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	availability, err := h.pipelineService.UpdateAvailability(id, req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "biomass availability")
		return
	}
	c.JSON(http.StatusOK, availability)
}

// DeleteAvailability handles DELETE /pipeline/:id. The linked purchase, if
// one was created, survives.
func (h *PipelineHandler) DeleteAvailability(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.pipelineService.DeleteAvailability(id, actorID(c)); err != nil {
		respondServiceError(c, err, "biomass availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Biomass availability deleted."})
}
