package handlers

import (
	"errors"
	"net/http"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"
	"github.com/benwaldman33/gold-drop-production-tracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// parseIDParam reads a numeric :id style path parameter. On failure it writes
// a 400 response and returns false.
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := utils.StrToInt64(c.Param(name))
	if err != nil || id <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest,
			"Invalid "+name+" parameter.", c.Param(name)))
		return 0, false
	}
	return id, true
}

// respondServiceError maps service and repository errors onto HTTP statuses.
// Internal faults are logged with detail and answered generically.
func respondServiceError(c *gin.Context, err error, entity string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
			"Invalid "+entity+" data.", err.Error()))
	case errors.Is(err, repositories.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound,
			entity+" not found.", err.Error()))
	case errors.Is(err, repositories.ErrDuplicateKey):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict,
			entity+" already exists.", err.Error()))
	case errors.Is(err, services.ErrFieldToken):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"Invalid or expired access token.", err.Error()))
	case errors.Is(err, services.ErrGenerationExhausted):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict,
			"Could not generate a unique batch identifier; supply one explicitly.", err.Error()))
	case errors.Is(err, services.ErrConsistency):
		utils.LogError(err, "consistency failure on "+entity)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError,
			"Inconsistent "+entity+" state; the operation was rolled back.", "Internal error"))
	default:
		utils.LogError(err, "unhandled error on "+entity)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError,
			"Failed to process "+entity+".", "Internal error"))
	}
}

// actorID extracts the authenticated user's ID set by the auth middleware.
// Nil when the request is unauthenticated (should not happen behind the
// middleware, but audit rows tolerate it).
func actorID(c *gin.Context) *int64 {
	raw, exists := c.Get("userID")
	if !exists {
		return nil
	}
	id, ok := raw.(int64)
	if !ok {
		return nil
	}
	return &id
}

func bindJSONError(c *gin.Context, err error) {
	utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
		"Invalid request payload.", err.Error()))
}
