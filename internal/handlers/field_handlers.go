package handlers

import (
	"net/http"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// FieldHandler holds the field intake service. The submit endpoints are
// public and authenticate with a token passed as ?t=; the management
// endpoints sit behind the admin routes.
type FieldHandler struct {
	fieldService services.FieldService
}

// NewFieldHandler creates a new FieldHandler.
func NewFieldHandler(fs services.FieldService) *FieldHandler {
	return &FieldHandler{fieldService: fs}
}

// SubmitAvailability handles POST /field/biomass?t=<token>.
func (h *FieldHandler) SubmitAvailability(c *gin.Context) {
	var req services.SaveAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	availability, err := h.fieldService.SubmitAvailability(c.Query("t"), req)
	if err != nil {
		respondServiceError(c, err, "field biomass intake")
		return
	}
	c.JSON(http.StatusCreated, availability)
}

// SubmitPurchase handles POST /field/purchases?t=<token>.
func (h *FieldHandler) SubmitPurchase(c *gin.Context) {
	var req services.FieldSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	submission, err := h.fieldService.SubmitPurchase(c.Query("t"), req)
	if err != nil {
		respondServiceError(c, err, "field purchase submission")
		return
	}
	c.JSON(http.StatusCreated, submission)
}

// CreateToken handles POST /field-tokens. The response carries the plaintext
// token once; it is never shown again.
func (h *FieldHandler) CreateToken(c *gin.Context) {
	var req services.CreateFieldTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	created, err := h.fieldService.CreateToken(req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "field access token")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetTokens handles GET /field-tokens.
func (h *FieldHandler) GetTokens(c *gin.Context) {
	tokens, err := h.fieldService.GetTokens()
	if err != nil {
		respondServiceError(c, err, "field access token")
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// RevokeToken handles POST /field-tokens/:id/revoke.
func (h *FieldHandler) RevokeToken(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	token, err := h.fieldService.RevokeToken(id, actorID(c))
	if err != nil {
		respondServiceError(c, err, "field access token")
		return
	}
	c.JSON(http.StatusOK, token)
}

// GetSubmissions handles GET /field-submissions with optional ?status=.
func (h *FieldHandler) GetSubmissions(c *gin.Context) {
	submissions, err := h.fieldService.GetSubmissions(c.Query("status"))
	if err != nil {
		respondServiceError(c, err, "field purchase submission")
		return
	}
	c.JSON(http.StatusOK, submissions)
}

// GetSubmissionByID handles GET /field-submissions/:id.
func (h *FieldHandler) GetSubmissionByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	submission, err := h.fieldService.GetSubmission(id)
	if err != nil {
		respondServiceError(c, err, "field purchase submission")
		return
	}
	c.JSON(http.StatusOK, submission)
}

// ApproveSubmission handles POST /field-submissions/:id/approve.
func (h *FieldHandler) ApproveSubmission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	submission, err := h.fieldService.ApproveSubmission(id, req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "field purchase submission")
		return
	}
	c.JSON(http.StatusOK, submission)
}

// RejectSubmission handles POST /field-submissions/:id/reject.
func (h *FieldHandler) RejectSubmission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	submission, err := h.fieldService.RejectSubmission(id, req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "field purchase submission")
		return
	}
	c.JSON(http.StatusOK, submission)
}
