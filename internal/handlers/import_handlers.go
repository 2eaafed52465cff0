package handlers

import (
	"net/http"
	"strings"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"
	"github.com/benwaldman33/gold-drop-production-tracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ImportHandler holds the historical-data import service.
type ImportHandler struct {
	importService services.ImportService
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(is services.ImportService) *ImportHandler {
	return &ImportHandler{importService: is}
}

// PreviewImport handles POST /import/preview. It accepts a multipart CSV
// upload and returns the parsed rows for review without writing anything.
func (h *ImportHandler) PreviewImport(c *gin.Context) {
	file, header, err := c.Request.FormFile("csv_file")
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest,
			"A csv_file upload is required.", err.Error()))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
			"Please upload a CSV file.", header.Filename))
		return
	}

	rows, filtered, err := h.importService.ParseCSV(file)
	if err != nil {
		respondServiceError(c, err, "import")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rows":             rows,
		"filtered_headers": filtered,
		"total":            len(rows),
	})
}

// ConfirmImport handles POST /import/confirm with the reviewed rows.
func (h *ImportHandler) ConfirmImport(c *gin.Context) {
	var req struct {
		Rows []services.ImportRow `json:"rows" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	result, err := h.importService.Import(req.Rows, actorID(c))
	if err != nil {
		respondServiceError(c, err, "import")
		return
	}
	c.JSON(http.StatusOK, result)
}
