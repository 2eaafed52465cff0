package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

// FieldTokenRepository defines the interface for field-access-token database
// operations. Lookups run against the stored hash only.
type FieldTokenRepository interface {
	Create(executor SQLExecutor, token *models.FieldAccessToken) (int64, error)
	GetByID(tokenID int64) (*models.FieldAccessToken, error)
	GetAll() ([]models.FieldAccessToken, error)
	FindByHash(hash string) (*models.FieldAccessToken, error)
	TouchLastUsed(tokenID int64, usedAt time.Time) error
	Revoke(executor SQLExecutor, tokenID int64, revokedAt time.Time) error
}

type fieldTokenRepository struct {
	db *sql.DB
}

// NewFieldTokenRepository creates a new instance of FieldTokenRepository.
func NewFieldTokenRepository(db *sql.DB) FieldTokenRepository {
	return &fieldTokenRepository{db: db}
}

const fieldTokenColumns = `t.id, t.token_hash, t.label, t.created_by, t.created_at,
	t.expires_at, t.revoked_at, t.last_used_at`

func scanFieldToken(s scanner, token *models.FieldAccessToken) error {
	return s.Scan(&token.ID, &token.TokenHash, &token.Label, &token.CreatedBy, &token.CreatedAt,
		&token.ExpiresAt, &token.RevokedAt, &token.LastUsedAt)
}

func (r *fieldTokenRepository) Create(executor SQLExecutor, token *models.FieldAccessToken) (int64, error) {
	query := `INSERT INTO field_access_tokens (token_hash, label, created_by, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRow(query,
		token.TokenHash, token.Label, token.CreatedBy, now, token.ExpiresAt,
	).Scan(&token.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating field access token: %v", ErrDatabaseError, err)
	}
	token.CreatedAt = now
	return token.ID, nil
}

func (r *fieldTokenRepository) GetByID(tokenID int64) (*models.FieldAccessToken, error) {
	query := `SELECT ` + fieldTokenColumns + ` FROM field_access_tokens t WHERE t.id = $1`
	var token models.FieldAccessToken
	err := scanFieldToken(r.db.QueryRow(query, tokenID), &token)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting field access token %d: %v", ErrDatabaseError, tokenID, err)
	}
	return &token, nil
}

func (r *fieldTokenRepository) GetAll() ([]models.FieldAccessToken, error) {
	query := `SELECT ` + fieldTokenColumns + ` FROM field_access_tokens t ORDER BY t.created_at DESC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting field access tokens: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	tokens := []models.FieldAccessToken{}
	for rows.Next() {
		var token models.FieldAccessToken
		if err := scanFieldToken(rows, &token); err != nil {
			return nil, fmt.Errorf("%w: scanning field access token: %v", ErrDatabaseError, err)
		}
		tokens = append(tokens, token)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating field access tokens: %v", ErrDatabaseError, err)
	}
	return tokens, nil
}

func (r *fieldTokenRepository) FindByHash(hash string) (*models.FieldAccessToken, error) {
	query := `SELECT ` + fieldTokenColumns + ` FROM field_access_tokens t WHERE t.token_hash = $1`
	var token models.FieldAccessToken
	err := scanFieldToken(r.db.QueryRow(query, hash), &token)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: finding field access token: %v", ErrDatabaseError, err)
	}
	return &token, nil
}

func (r *fieldTokenRepository) TouchLastUsed(tokenID int64, usedAt time.Time) error {
	_, err := r.db.Exec(`UPDATE field_access_tokens SET last_used_at = $1 WHERE id = $2`, usedAt, tokenID)
	if err != nil {
		return fmt.Errorf("%w: touching field access token %d: %v", ErrDatabaseError, tokenID, err)
	}
	return nil
}

func (r *fieldTokenRepository) Revoke(executor SQLExecutor, tokenID int64, revokedAt time.Time) error {
	result, err := executor.Exec(`UPDATE field_access_tokens SET revoked_at = $1 WHERE id = $2`, revokedAt, tokenID)
	if err != nil {
		return fmt.Errorf("%w: revoking field access token %d: %v", ErrDatabaseError, tokenID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking field token revoke result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FieldSubmissionRepository defines the interface for field purchase
// submission database operations.
type FieldSubmissionRepository interface {
	Create(executor SQLExecutor, submission *models.FieldPurchaseSubmission) (int64, error)
	GetByID(submissionID int64) (*models.FieldPurchaseSubmission, error)
	GetAll(status *string) ([]models.FieldPurchaseSubmission, error)
	Update(executor SQLExecutor, submission *models.FieldPurchaseSubmission) error
}

type fieldSubmissionRepository struct {
	db *sql.DB
}

// NewFieldSubmissionRepository creates a new instance of FieldSubmissionRepository.
func NewFieldSubmissionRepository(db *sql.DB) FieldSubmissionRepository {
	return &fieldSubmissionRepository{db: db}
}

const fieldSubmissionColumns = `f.id, f.source_token_id, f.supplier_id, f.purchase_date, f.delivery_date,
	f.estimated_potency_pct, f.price_per_lb, f.notes, f.lots_json, f.status,
	f.submitted_at, f.reviewed_at, f.reviewed_by, f.review_notes, f.approved_purchase_id`

func scanFieldSubmission(s scanner, sub *models.FieldPurchaseSubmission, extra ...interface{}) error {
	dest := []interface{}{
		&sub.ID, &sub.SourceTokenID, &sub.SupplierID, &sub.PurchaseDate, &sub.DeliveryDate,
		&sub.EstimatedPotencyPct, &sub.PricePerLb, &sub.Notes, &sub.LotsJSON, &sub.Status,
		&sub.SubmittedAt, &sub.ReviewedAt, &sub.ReviewedBy, &sub.ReviewNotes, &sub.ApprovedPurchaseID,
	}
	dest = append(dest, extra...)
	return s.Scan(dest...)
}

func (r *fieldSubmissionRepository) Create(executor SQLExecutor, submission *models.FieldPurchaseSubmission) (int64, error) {
	query := `INSERT INTO field_purchase_submissions
	          (source_token_id, supplier_id, purchase_date, delivery_date, estimated_potency_pct,
	           price_per_lb, notes, lots_json, status, submitted_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRow(query,
		submission.SourceTokenID, submission.SupplierID, submission.PurchaseDate, submission.DeliveryDate,
		submission.EstimatedPotencyPct, submission.PricePerLb, submission.Notes, submission.LotsJSON,
		submission.Status, now,
	).Scan(&submission.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating field submission: %v", ErrDatabaseError, err)
	}
	submission.SubmittedAt = now
	return submission.ID, nil
}

func (r *fieldSubmissionRepository) GetByID(submissionID int64) (*models.FieldPurchaseSubmission, error) {
	query := `SELECT ` + fieldSubmissionColumns + `, s.name AS supplier_name
	          FROM field_purchase_submissions f
	          JOIN suppliers s ON f.supplier_id = s.id
	          WHERE f.id = $1`
	var sub models.FieldPurchaseSubmission
	var supplierName sql.NullString
	err := scanFieldSubmission(r.db.QueryRow(query, submissionID), &sub, &supplierName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting field submission %d: %v", ErrDatabaseError, submissionID, err)
	}
	if supplierName.Valid {
		name := supplierName.String
		sub.SupplierName = &name
	}
	return &sub, nil
}

func (r *fieldSubmissionRepository) GetAll(status *string) ([]models.FieldPurchaseSubmission, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + fieldSubmissionColumns + `, s.name AS supplier_name
	  FROM field_purchase_submissions f
	  JOIN suppliers s ON f.supplier_id = s.id`)

	var args []interface{}
	if status != nil && *status != "" {
		queryBuilder.WriteString(" WHERE f.status = $1")
		args = append(args, *status)
	}
	queryBuilder.WriteString(" ORDER BY f.submitted_at DESC")

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting field submissions: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	subs := []models.FieldPurchaseSubmission{}
	for rows.Next() {
		var sub models.FieldPurchaseSubmission
		var supplierName sql.NullString
		if err := scanFieldSubmission(rows, &sub, &supplierName); err != nil {
			return nil, fmt.Errorf("%w: scanning field submission: %v", ErrDatabaseError, err)
		}
		if supplierName.Valid {
			name := supplierName.String
			sub.SupplierName = &name
		}
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating field submissions: %v", ErrDatabaseError, err)
	}
	return subs, nil
}

func (r *fieldSubmissionRepository) Update(executor SQLExecutor, submission *models.FieldPurchaseSubmission) error {
	query := `UPDATE field_purchase_submissions SET status = $1, reviewed_at = $2, reviewed_by = $3,
	          review_notes = $4, approved_purchase_id = $5
	          WHERE id = $6`
	result, err := executor.Exec(query,
		submission.Status, submission.ReviewedAt, submission.ReviewedBy,
		submission.ReviewNotes, submission.ApprovedPurchaseID, submission.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating field submission %d: %v", ErrDatabaseError, submission.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking field submission update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
