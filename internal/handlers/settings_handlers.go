package handlers

import (
	"net/http"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// SettingsHandler holds the settings service.
type SettingsHandler struct {
	settingsService services.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(ss services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: ss}
}

// GetSettings handles GET /settings.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetAllSettings()
	if err != nil {
		respondServiceError(c, err, "setting")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /settings. Only the supplied keys change.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	if err := h.settingsService.UpdateSettings(req, actorID(c)); err != nil {
		respondServiceError(c, err, "setting")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated."})
}

// GetKpiTargets handles GET /settings/kpi-targets.
func (h *SettingsHandler) GetKpiTargets(c *gin.Context) {
	targets, err := h.settingsService.GetKpiTargets()
	if err != nil {
		respondServiceError(c, err, "kpi target")
		return
	}
	c.JSON(http.StatusOK, targets)
}

// UpdateKpiTarget handles PUT /settings/kpi-targets/:name.
func (h *SettingsHandler) UpdateKpiTarget(c *gin.Context) {
	name := c.Param("name")
	var req services.UpdateKpiTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	target, err := h.settingsService.UpdateKpiTarget(name, req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "kpi target")
		return
	}
	c.JSON(http.StatusOK, target)
}
