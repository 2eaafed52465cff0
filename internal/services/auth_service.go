package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// --- Custom Service Errors ---
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

// --- Data Transfer Objects (DTOs) ---

// UpdateUserRequest changes a user's display name, role or activation flag.
// Nil fields are left untouched.
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
}

// ChangePasswordRequest DTO
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// AuthResponse DTO
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

// --- AuthService Interface ---
type AuthService interface {
	RegisterUser(req models.RegistrationPayload, actorID *int64) (*models.User, error)
	LoginUser(req models.Credentials) (*AuthResponse, error)
	GetUserProfile(userID int64) (*models.User, error)
	GetAllUsers() ([]models.User, error)
	UpdateUser(userID int64, req UpdateUserRequest, actorID int64) (*models.User, error)
	ChangePassword(userID int64, req ChangePasswordRequest) error
	EnsureAdminUser(username, password string) error
}

// --- authService Implementation ---
type authService struct {
	authRepo      repositories.AuthRepository
	auditRepo     repositories.AuditRepository
	db            *sql.DB
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(authRepo repositories.AuthRepository, auditRepo repositories.AuditRepository, db *sql.DB, jwtSecret string, jwtExp time.Duration) AuthService {
	return &authService{
		authRepo:      authRepo,
		auditRepo:     auditRepo,
		db:            db,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExp,
	}
}

func validRole(role string) bool {
	switch role {
	case models.RoleSuperAdmin, models.RoleUser, models.RoleViewer:
		return true
	}
	return false
}

// generateJWT creates a new JWT token for a given user.
func (s *authService) generateJWT(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(s.jwtExpiration).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return signedToken, nil
}

// RegisterUser handles the business logic for user registration.
func (s *authService) RegisterUser(req models.RegistrationPayload, actorID *int64) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, validationErrorf("username is required")
	}
	role := req.Role
	if role == "" {
		role = models.RoleViewer
	}
	if !validRole(role) {
		return nil, validationErrorf("invalid role %q", req.Role)
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: string(hashedPasswordBytes),
		DisplayName:  req.DisplayName,
		Role:         role,
		IsActive:     true,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	userID, err := s.authRepo.CreateUser(tx, &user)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	user.ID = userID

	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionCreate,
		EntityType: "user",
		EntityID:   userID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user transaction: %w", err)
	}

	user.PasswordHash = ""
	return &user, nil
}

// EnsureAdminUser creates a super admin account at boot when no active super
// admin exists, so a fresh database is usable without manual SQL. Does nothing
// when an active super admin is already present.
func (s *authService) EnsureAdminUser(username, password string) error {
	activeAdmins, err := s.authRepo.CountActiveByRole(models.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if activeAdmins > 0 {
		return nil
	}
	_, err = s.RegisterUser(models.RegistrationPayload{
		Username:    username,
		Password:    password,
		DisplayName: "Administrator",
		Role:        models.RoleSuperAdmin,
	}, nil)
	if errors.Is(err, ErrUsernameExists) {
		// Username taken by a non-admin or deactivated account; leave it alone.
		return nil
	}
	return err
}

// LoginUser handles user login and token generation. Inactive accounts get
// the same answer as a wrong password.
func (s *authService) LoginUser(req models.Credentials) (*AuthResponse, error) {
	user, err := s.authRepo.FindUserByUsername(req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login attempt failed: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	user.PasswordHash = ""
	return &AuthResponse{
		User:        user,
		AccessToken: accessToken,
	}, nil
}

// GetUserProfile retrieves a user's profile by their ID.
func (s *authService) GetUserProfile(userID int64) (*models.User, error) {
	user, err := s.authRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user profile: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) GetAllUsers() ([]models.User, error) {
	users, err := s.authRepo.GetAllUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// UpdateUser changes role, display name or activation. Accounts are
// deactivated rather than deleted so audit rows keep a valid actor. Two
// guards apply: an admin cannot disable their own account, and the last
// active super admin can neither be disabled nor demoted.
func (s *authService) UpdateUser(userID int64, req UpdateUserRequest, actorID int64) (*models.User, error) {
	user, err := s.authRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Role != nil && !validRole(*req.Role) {
		return nil, validationErrorf("invalid role %q", *req.Role)
	}

	deactivating := req.IsActive != nil && !*req.IsActive && user.IsActive
	demoting := req.Role != nil && *req.Role != user.Role && user.Role == models.RoleSuperAdmin

	if deactivating && userID == actorID {
		return nil, validationErrorf("cannot deactivate your own account")
	}
	if (deactivating || demoting) && user.Role == models.RoleSuperAdmin {
		activeAdmins, err := s.authRepo.CountActiveByRole(models.RoleSuperAdmin)
		if err != nil {
			return nil, err
		}
		if activeAdmins <= 1 {
			return nil, validationErrorf("cannot remove the last active super admin")
		}
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.authRepo.UpdateUser(tx, user); err != nil {
		return nil, err
	}

	action := models.AuditActionUpdate
	if deactivating {
		action = models.AuditActionDeactivate
	}
	event := &models.AuditEvent{
		UserID:     &actorID,
		Action:     action,
		EntityType: "user",
		EntityID:   userID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user transaction: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *authService) ChangePassword(userID int64, req ChangePasswordRequest) error {
	user, err := s.authRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if len(req.NewPassword) < 8 {
		return validationErrorf("new password must be at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.authRepo.UpdatePassword(s.db, userID, string(hashed))
}
