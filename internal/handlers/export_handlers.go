package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// ExportHandler holds the CSV export service.
type ExportHandler struct {
	exportService services.ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(es services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: es}
}

// ExportCSV handles GET /export/:entity for runs, purchases, inventory and
// pipeline.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	entity := c.Param("entity")
	filename := fmt.Sprintf("%s_%s.csv", entity, time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := h.exportService.WriteCSV(entity, c.Writer); err != nil {
		// Headers may already be out; log and surface what we can.
		respondServiceError(c, err, "export")
		return
	}
	c.Status(http.StatusOK)
}
