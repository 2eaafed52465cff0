package handlers

import (
	"net/http"
	"strconv"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// AuditHandler holds the audit service.
type AuditHandler struct {
	auditService services.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(as services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: as}
}

// GetRecentEvents handles GET /audit with optional ?limit=.
func (h *AuditHandler) GetRecentEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	events, err := h.auditService.GetRecentEvents(limit)
	if err != nil {
		respondServiceError(c, err, "audit event")
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetEntityHistory handles GET /audit/:entity/:id.
func (h *AuditHandler) GetEntityHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	events, err := h.auditService.GetEntityHistory(c.Param("entity"), id)
	if err != nil {
		respondServiceError(c, err, "audit event")
		return
	}
	c.JSON(http.StatusOK, events)
}
