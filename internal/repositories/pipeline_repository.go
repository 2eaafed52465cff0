package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

// PipelineRepository defines the interface for biomass-pipeline database operations.
type PipelineRepository interface {
	Create(executor SQLExecutor, item *models.PipelineAvailability) (int64, error)
	GetByID(itemID int64) (*models.PipelineAvailability, error)
	GetAll(stage *string) ([]models.PipelineAvailability, error)
	Update(executor SQLExecutor, item *models.PipelineAvailability) error
	Delete(executor SQLExecutor, itemID int64) error
	FindByPurchaseID(purchaseID int64) (*models.PipelineAvailability, error)
}

type pipelineRepository struct {
	db *sql.DB
}

// NewPipelineRepository creates a new instance of PipelineRepository.
func NewPipelineRepository(db *sql.DB) PipelineRepository {
	return &pipelineRepository{db: db}
}

const pipelineColumns = `b.id, b.supplier_id, b.availability_date, b.strain_name, b.stage,
	b.declared_weight_lbs, b.declared_price_per_lb, b.estimated_potency_pct,
	b.testing_timing, b.testing_status, b.testing_date, b.tested_potency_pct,
	b.committed_on, b.committed_delivery_date, b.committed_weight_lbs, b.committed_price_per_lb,
	b.purchase_id, b.notes, b.created_at, b.updated_at`

func scanPipeline(s scanner, item *models.PipelineAvailability, extra ...interface{}) error {
	dest := []interface{}{
		&item.ID, &item.SupplierID, &item.AvailabilityDate, &item.StrainName, &item.Stage,
		&item.DeclaredWeightLbs, &item.DeclaredPricePerLb, &item.EstimatedPotencyPct,
		&item.TestingTiming, &item.TestingStatus, &item.TestingDate, &item.TestedPotencyPct,
		&item.CommittedOn, &item.CommittedDeliveryDate, &item.CommittedWeightLbs, &item.CommittedPricePerLb,
		&item.PurchaseID, &item.Notes, &item.CreatedAt, &item.UpdatedAt,
	}
	dest = append(dest, extra...)
	return s.Scan(dest...)
}

func (r *pipelineRepository) Create(executor SQLExecutor, item *models.PipelineAvailability) (int64, error) {
	query := `INSERT INTO biomass_availabilities
	          (supplier_id, availability_date, strain_name, stage, declared_weight_lbs,
	           declared_price_per_lb, estimated_potency_pct, testing_timing, testing_status,
	           testing_date, tested_potency_pct, committed_on, committed_delivery_date,
	           committed_weight_lbs, committed_price_per_lb, purchase_id, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRow(query,
		item.SupplierID, item.AvailabilityDate, item.StrainName, item.Stage, item.DeclaredWeightLbs,
		item.DeclaredPricePerLb, item.EstimatedPotencyPct, item.TestingTiming, item.TestingStatus,
		item.TestingDate, item.TestedPotencyPct, item.CommittedOn, item.CommittedDeliveryDate,
		item.CommittedWeightLbs, item.CommittedPricePerLb, item.PurchaseID, item.Notes, now, now,
	).Scan(&item.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating pipeline availability: %v", ErrDatabaseError, err)
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return item.ID, nil
}

func (r *pipelineRepository) GetByID(itemID int64) (*models.PipelineAvailability, error) {
	query := `SELECT ` + pipelineColumns + `, s.name AS supplier_name
	          FROM biomass_availabilities b
	          JOIN suppliers s ON b.supplier_id = s.id
	          WHERE b.id = $1`
	var item models.PipelineAvailability
	var supplierName sql.NullString
	err := scanPipeline(r.db.QueryRow(query, itemID), &item, &supplierName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting pipeline availability %d: %v", ErrDatabaseError, itemID, err)
	}
	if supplierName.Valid {
		name := supplierName.String
		item.SupplierName = &name
	}
	return &item, nil
}

func (r *pipelineRepository) GetAll(stage *string) ([]models.PipelineAvailability, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + pipelineColumns + `, s.name AS supplier_name
	  FROM biomass_availabilities b
	  JOIN suppliers s ON b.supplier_id = s.id`)

	var args []interface{}
	if stage != nil && *stage != "" {
		queryBuilder.WriteString(" WHERE b.stage = $1")
		args = append(args, *stage)
	}
	queryBuilder.WriteString(" ORDER BY b.availability_date DESC, s.name ASC")

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting pipeline availabilities: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	items := []models.PipelineAvailability{}
	for rows.Next() {
		var item models.PipelineAvailability
		var supplierName sql.NullString
		if err := scanPipeline(rows, &item, &supplierName); err != nil {
			return nil, fmt.Errorf("%w: scanning pipeline availability: %v", ErrDatabaseError, err)
		}
		if supplierName.Valid {
			name := supplierName.String
			item.SupplierName = &name
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating pipeline availabilities: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *pipelineRepository) Update(executor SQLExecutor, item *models.PipelineAvailability) error {
	query := `UPDATE biomass_availabilities SET supplier_id = $1, availability_date = $2, strain_name = $3,
	          stage = $4, declared_weight_lbs = $5, declared_price_per_lb = $6, estimated_potency_pct = $7,
	          testing_timing = $8, testing_status = $9, testing_date = $10, tested_potency_pct = $11,
	          committed_on = $12, committed_delivery_date = $13, committed_weight_lbs = $14,
	          committed_price_per_lb = $15, purchase_id = $16, notes = $17, updated_at = $18
	          WHERE id = $19`
	item.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		item.SupplierID, item.AvailabilityDate, item.StrainName, item.Stage, item.DeclaredWeightLbs,
		item.DeclaredPricePerLb, item.EstimatedPotencyPct, item.TestingTiming, item.TestingStatus,
		item.TestingDate, item.TestedPotencyPct, item.CommittedOn, item.CommittedDeliveryDate,
		item.CommittedWeightLbs, item.CommittedPricePerLb, item.PurchaseID, item.Notes,
		item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating pipeline availability %d: %v", ErrDatabaseError, item.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking pipeline update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pipelineRepository) Delete(executor SQLExecutor, itemID int64) error {
	result, err := executor.Exec(`DELETE FROM biomass_availabilities WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("%w: deleting pipeline availability %d: %v", ErrDatabaseError, itemID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking pipeline delete result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByPurchaseID resolves the pipeline record linked to a purchase, used by
// the purchase-driven sync direction.
func (r *pipelineRepository) FindByPurchaseID(purchaseID int64) (*models.PipelineAvailability, error) {
	query := `SELECT ` + pipelineColumns + `
	          FROM biomass_availabilities b
	          WHERE b.purchase_id = $1
	          LIMIT 1`
	var item models.PipelineAvailability
	err := scanPipeline(r.db.QueryRow(query, purchaseID), &item)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: finding pipeline by purchase %d: %v", ErrDatabaseError, purchaseID, err)
	}
	return &item, nil
}
