package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

// AuthRepository defines the interface for user account database operations.
type AuthRepository interface {
	CreateUser(executor SQLExecutor, user *models.User) (int64, error)
	FindUserByUsername(username string) (*models.User, error)
	FindUserByID(userID int64) (*models.User, error)
	GetAllUsers() ([]models.User, error)
	UpdateUser(executor SQLExecutor, user *models.User) error
	UpdatePassword(executor SQLExecutor, userID int64, passwordHash string) error
	CountActiveByRole(role string) (int, error)
}

type authRepository struct {
	db *sql.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

const userColumns = `id, username, password_hash, display_name, role, is_active, created_at, updated_at`

func scanUser(s scanner, user *models.User) error {
	return s.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.DisplayName,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
}

// CreateUser inserts a new user. The PasswordHash field must already be set;
// hashing is the service's job.
func (r *authRepository) CreateUser(executor SQLExecutor, user *models.User) (int64, error) {
	query := `INSERT INTO users (username, password_hash, display_name, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $6)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRow(query,
		user.Username, user.PasswordHash, user.DisplayName, user.Role, user.IsActive, now,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: username %s is taken", ErrDuplicateKey, user.Username)
		}
		return 0, fmt.Errorf("%w: creating user: %v", ErrDatabaseError, err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return user.ID, nil
}

func (r *authRepository) FindUserByUsername(username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	var user models.User
	err := scanUser(r.db.QueryRow(query, username), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by username %s: %v", ErrDatabaseError, username, err)
	}
	return &user, nil
}

func (r *authRepository) FindUserByID(userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user models.User
	err := scanUser(r.db.QueryRow(query, userID), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by ID %d: %v", ErrDatabaseError, userID, err)
	}
	return &user, nil
}

func (r *authRepository) GetAllUsers() ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username ASC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting users: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("%w: scanning user: %v", ErrDatabaseError, err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating users: %v", ErrDatabaseError, err)
	}
	return users, nil
}

// UpdateUser persists display name, role and active flag. Username and
// password are immutable here; see UpdatePassword.
func (r *authRepository) UpdateUser(executor SQLExecutor, user *models.User) error {
	query := `UPDATE users SET display_name = $1, role = $2, is_active = $3, updated_at = $4
	          WHERE id = $5`
	user.UpdatedAt = time.Now()
	result, err := executor.Exec(query, user.DisplayName, user.Role, user.IsActive, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("%w: updating user %d: %v", ErrDatabaseError, user.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking user update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *authRepository) UpdatePassword(executor SQLExecutor, userID int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.Exec(query, passwordHash, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("%w: updating password for user %d: %v", ErrDatabaseError, userID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking password update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActiveByRole supports the last-super-admin guard.
func (r *authRepository) CountActiveByRole(role string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE role = $1 AND is_active`, role).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting users by role: %v", ErrDatabaseError, err)
	}
	return count, nil
}
