package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

// SupplierRepository defines the interface for supplier-related database operations.
type SupplierRepository interface {
	Create(executor SQLExecutor, supplier *models.Supplier) (int64, error)
	GetByID(supplierID int64) (*models.Supplier, error)
	GetAll(activeOnly bool) ([]models.Supplier, error)
	Update(executor SQLExecutor, supplier *models.Supplier) error
	FindByName(name string) (*models.Supplier, error)
}

type supplierRepository struct {
	db *sql.DB
}

// NewSupplierRepository creates a new instance of SupplierRepository.
func NewSupplierRepository(db *sql.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

const supplierColumns = `id, name, contact_name, contact_phone, contact_email, location, notes, is_active, created_at, updated_at`

func scanSupplier(s scanner, supplier *models.Supplier) error {
	return s.Scan(
		&supplier.ID, &supplier.Name, &supplier.ContactName, &supplier.ContactPhone,
		&supplier.ContactEmail, &supplier.Location, &supplier.Notes, &supplier.IsActive,
		&supplier.CreatedAt, &supplier.UpdatedAt,
	)
}

func (r *supplierRepository) Create(executor SQLExecutor, supplier *models.Supplier) (int64, error) {
	query := `INSERT INTO suppliers (name, contact_name, contact_phone, contact_email, location, notes, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRow(query,
		supplier.Name, supplier.ContactName, supplier.ContactPhone, supplier.ContactEmail,
		supplier.Location, supplier.Notes, supplier.IsActive, now, now,
	).Scan(&supplier.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating supplier: %v", ErrDatabaseError, err)
	}
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	return supplier.ID, nil
}

func (r *supplierRepository) GetByID(supplierID int64) (*models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1`
	var supplier models.Supplier
	err := scanSupplier(r.db.QueryRow(query, supplierID), &supplier)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting supplier %d: %v", ErrDatabaseError, supplierID, err)
	}
	return &supplier, nil
}

func (r *supplierRepository) GetAll(activeOnly bool) ([]models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting suppliers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	suppliers := []models.Supplier{}
	for rows.Next() {
		var supplier models.Supplier
		if err := scanSupplier(rows, &supplier); err != nil {
			return nil, fmt.Errorf("%w: scanning supplier: %v", ErrDatabaseError, err)
		}
		suppliers = append(suppliers, supplier)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating suppliers: %v", ErrDatabaseError, err)
	}
	return suppliers, nil
}

func (r *supplierRepository) Update(executor SQLExecutor, supplier *models.Supplier) error {
	query := `UPDATE suppliers SET name = $1, contact_name = $2, contact_phone = $3, contact_email = $4,
	          location = $5, notes = $6, is_active = $7, updated_at = $8
	          WHERE id = $9`
	supplier.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		supplier.Name, supplier.ContactName, supplier.ContactPhone, supplier.ContactEmail,
		supplier.Location, supplier.Notes, supplier.IsActive, supplier.UpdatedAt, supplier.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating supplier %d: %v", ErrDatabaseError, supplier.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking supplier update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByName does a case-insensitive lookup, used by the importer to match
// source text to existing suppliers.
func (r *supplierRepository) FindByName(name string) (*models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE LOWER(name) = LOWER($1)`
	var supplier models.Supplier
	err := scanSupplier(r.db.QueryRow(query, name), &supplier)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: finding supplier by name: %v", ErrDatabaseError, err)
	}
	return &supplier, nil
}
