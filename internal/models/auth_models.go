package models

import "time"

// User roles. "user" is the editor role; viewers are read-only.
const (
	RoleSuperAdmin = "super_admin"
	RoleUser       = "user"
	RoleViewer     = "viewer"
)

// User represents an application user.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"` // '-' means don't send in JSON response
	DisplayName  string    `json:"display_name" db:"display_name"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CanEdit reports whether the user may create or modify records.
func (u *User) CanEdit() bool {
	return u.Role == RoleSuperAdmin || u.Role == RoleUser
}

// IsSuperAdmin reports whether the user holds the admin role.
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// Credentials for login request
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegistrationPayload for user registration
type RegistrationPayload struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	Role        string `json:"role"` // Defaults to viewer when empty
}
