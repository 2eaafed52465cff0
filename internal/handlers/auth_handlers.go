package handlers

import (
	"errors"
	"net/http"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"
	"github.com/benwaldman33/gold-drop-production-tracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// RegisterUser handles user registration. Admin only.
func (h *AuthHandler) RegisterUser(c *gin.Context) {
	var req models.RegistrationPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}

	user, err := h.authService.RegisterUser(req, actorID(c))
	if err != nil {
		if errors.Is(err, services.ErrUsernameExists) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict,
				"Username already exists.", err.Error()))
			return
		}
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// LoginUser handles user login.
func (h *AuthHandler) LoginUser(c *gin.Context) {
	var req models.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}

	authResp, err := h.authService.LoginUser(req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
				"Invalid username or password.", err.Error()))
			return
		}
		utils.LogError(err, "LoginUser: login failed")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError,
			"Failed to login.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, authResp)
}

// GetCurrentUser retrieves the profile of the currently authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	id := actorID(c)
	if id == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"User not authenticated.", "Missing user ID in context"))
		return
	}

	user, err := h.authService.GetUserProfile(*id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound,
				"User profile not found.", err.Error()))
			return
		}
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUsers lists all user accounts. Admin only.
func (h *AuthHandler) GetUsers(c *gin.Context) {
	users, err := h.authService.GetAllUsers()
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, users)
}

// UpdateUser changes a user's display name, role or active flag. Admin only.
func (h *AuthHandler) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor := actorID(c)
	if actor == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"User not authenticated.", "Missing user ID in context"))
		return
	}

	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}

	user, err := h.authService.UpdateUser(id, req, *actor)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound,
				"User not found.", err.Error()))
			return
		}
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword lets the authenticated user rotate their own password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	id := actorID(c)
	if id == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"User not authenticated.", "Missing user ID in context"))
		return
	}

	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}

	if err := h.authService.ChangePassword(*id, req); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
				"Current password is incorrect.", err.Error()))
			return
		}
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated."})
}

// LogoutUser handles user logout. Stateless JWT: the client discards the
// token.
func (h *AuthHandler) LogoutUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully. Please discard your token."})
}
