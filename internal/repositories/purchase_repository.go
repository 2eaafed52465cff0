package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/lib/pq"
)

// PurchaseRepository defines the interface for purchase-related database operations.
type PurchaseRepository interface {
	Create(executor SQLExecutor, purchase *models.Purchase) (int64, error)
	GetByID(purchaseID int64) (*models.Purchase, error)
	GetByIDs(purchaseIDs []int64) ([]models.Purchase, error)
	GetAll(status *string, page, pageSize int) ([]models.Purchase, int, error)
	Update(executor SQLExecutor, purchase *models.Purchase) error
	BatchIDExists(batchID string, excludePurchaseID int64) (bool, error)
	GetLatestForSupplier(supplierID int64) (*models.Purchase, error)
}

type purchaseRepository struct {
	db *sql.DB
}

// NewPurchaseRepository creates a new instance of PurchaseRepository.
func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

const purchaseColumns = `p.id, p.supplier_id, p.purchase_date, p.delivery_date, p.status,
	p.stated_weight_lbs, p.actual_weight_lbs, p.stated_potency_pct, p.tested_potency_pct,
	p.price_per_lb, p.total_cost, p.true_up_amount, p.true_up_status, p.batch_id,
	p.harvest_date, p.clean_or_dirty, p.indoor_outdoor, p.notes, p.created_at, p.updated_at`

func scanPurchase(s scanner, p *models.Purchase, extra ...interface{}) error {
	dest := []interface{}{
		&p.ID, &p.SupplierID, &p.PurchaseDate, &p.DeliveryDate, &p.Status,
		&p.StatedWeightLbs, &p.ActualWeightLbs, &p.StatedPotencyPct, &p.TestedPotencyPct,
		&p.PricePerLb, &p.TotalCost, &p.TrueUpAmount, &p.TrueUpStatus, &p.BatchID,
		&p.HarvestDate, &p.CleanOrDirty, &p.IndoorOutdoor, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	}
	dest = append(dest, extra...)
	return s.Scan(dest...)
}

func (r *purchaseRepository) Create(executor SQLExecutor, purchase *models.Purchase) (int64, error) {
	query := `INSERT INTO purchases
	          (supplier_id, purchase_date, delivery_date, status, stated_weight_lbs, actual_weight_lbs,
	           stated_potency_pct, tested_potency_pct, price_per_lb, total_cost, true_up_amount,
	           true_up_status, batch_id, harvest_date, clean_or_dirty, indoor_outdoor, notes,
	           created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRow(query,
		purchase.SupplierID, purchase.PurchaseDate, purchase.DeliveryDate, purchase.Status,
		purchase.StatedWeightLbs, purchase.ActualWeightLbs, purchase.StatedPotencyPct,
		purchase.TestedPotencyPct, purchase.PricePerLb, purchase.TotalCost, purchase.TrueUpAmount,
		purchase.TrueUpStatus, purchase.BatchID, purchase.HarvestDate, purchase.CleanOrDirty,
		purchase.IndoorOutdoor, purchase.Notes, now, now,
	).Scan(&purchase.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: batch_id on purchase insert: %v", ErrDuplicateKey, err)
		}
		return 0, fmt.Errorf("%w: creating purchase: %v", ErrDatabaseError, err)
	}
	purchase.CreatedAt = now
	purchase.UpdatedAt = now
	return purchase.ID, nil
}

func (r *purchaseRepository) GetByID(purchaseID int64) (*models.Purchase, error) {
	query := `SELECT ` + purchaseColumns + `, s.name AS supplier_name
	          FROM purchases p
	          JOIN suppliers s ON p.supplier_id = s.id
	          WHERE p.id = $1`
	var purchase models.Purchase
	var supplierName sql.NullString
	err := scanPurchase(r.db.QueryRow(query, purchaseID), &purchase, &supplierName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting purchase %d: %v", ErrDatabaseError, purchaseID, err)
	}
	if supplierName.Valid {
		name := supplierName.String
		purchase.SupplierName = &name
	}
	return &purchase, nil
}

func (r *purchaseRepository) GetByIDs(purchaseIDs []int64) ([]models.Purchase, error) {
	if len(purchaseIDs) == 0 {
		return []models.Purchase{}, nil
	}
	query := `SELECT ` + purchaseColumns + `, s.name AS supplier_name
	          FROM purchases p
	          JOIN suppliers s ON p.supplier_id = s.id
	          WHERE p.id = ANY($1)`
	rows, err := r.db.Query(query, pq.Array(purchaseIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: getting purchases by ids: %v", ErrDatabaseError, err)
	}
	defer rows.Close()
	return collectPurchases(rows)
}

func (r *purchaseRepository) GetAll(status *string, page, pageSize int) ([]models.Purchase, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + purchaseColumns + `, s.name AS supplier_name, COUNT(*) OVER() AS total_count
	  FROM purchases p
	  JOIN suppliers s ON p.supplier_id = s.id`)

	var args []interface{}
	argCount := 1
	if status != nil && *status != "" {
		queryBuilder.WriteString(fmt.Sprintf(" WHERE p.status = $%d", argCount))
		args = append(args, *status)
		argCount++
	}
	queryBuilder.WriteString(" ORDER BY p.purchase_date DESC, p.id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting purchases: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	purchases := []models.Purchase{}
	totalCount := 0
	for rows.Next() {
		var purchase models.Purchase
		var supplierName sql.NullString
		if err := scanPurchase(rows, &purchase, &supplierName, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning purchase: %v", ErrDatabaseError, err)
		}
		if supplierName.Valid {
			name := supplierName.String
			purchase.SupplierName = &name
		}
		purchases = append(purchases, purchase)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating purchases: %v", ErrDatabaseError, err)
	}
	return purchases, totalCount, nil
}

func (r *purchaseRepository) Update(executor SQLExecutor, purchase *models.Purchase) error {
	query := `UPDATE purchases SET supplier_id = $1, purchase_date = $2, delivery_date = $3, status = $4,
	          stated_weight_lbs = $5, actual_weight_lbs = $6, stated_potency_pct = $7,
	          tested_potency_pct = $8, price_per_lb = $9, total_cost = $10, true_up_amount = $11,
	          true_up_status = $12, batch_id = $13, harvest_date = $14, clean_or_dirty = $15,
	          indoor_outdoor = $16, notes = $17, updated_at = $18
	          WHERE id = $19`
	purchase.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		purchase.SupplierID, purchase.PurchaseDate, purchase.DeliveryDate, purchase.Status,
		purchase.StatedWeightLbs, purchase.ActualWeightLbs, purchase.StatedPotencyPct,
		purchase.TestedPotencyPct, purchase.PricePerLb, purchase.TotalCost, purchase.TrueUpAmount,
		purchase.TrueUpStatus, purchase.BatchID, purchase.HarvestDate, purchase.CleanOrDirty,
		purchase.IndoorOutdoor, purchase.Notes, purchase.UpdatedAt, purchase.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: batch_id on purchase update: %v", ErrDuplicateKey, err)
		}
		return fmt.Errorf("%w: updating purchase %d: %v", ErrDatabaseError, purchase.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking purchase update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *purchaseRepository) BatchIDExists(batchID string, excludePurchaseID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM purchases WHERE batch_id = $1 AND id <> $2)`
	var exists bool
	if err := r.db.QueryRow(query, batchID, excludePurchaseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: checking batch id existence: %v", ErrDatabaseError, err)
	}
	return exists, nil
}

// GetLatestForSupplier returns the supplier's most recent purchase, used by
// the importer to attach imported lots.
func (r *purchaseRepository) GetLatestForSupplier(supplierID int64) (*models.Purchase, error) {
	query := `SELECT ` + purchaseColumns + `, s.name AS supplier_name
	          FROM purchases p
	          JOIN suppliers s ON p.supplier_id = s.id
	          WHERE p.supplier_id = $1
	          ORDER BY p.purchase_date DESC, p.id DESC
	          LIMIT 1`
	var purchase models.Purchase
	var supplierName sql.NullString
	err := scanPurchase(r.db.QueryRow(query, supplierID), &purchase, &supplierName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting latest purchase for supplier %d: %v", ErrDatabaseError, supplierID, err)
	}
	if supplierName.Valid {
		name := supplierName.String
		purchase.SupplierName = &name
	}
	return &purchase, nil
}

func collectPurchases(rows *sql.Rows) ([]models.Purchase, error) {
	purchases := []models.Purchase{}
	for rows.Next() {
		var purchase models.Purchase
		var supplierName sql.NullString
		if err := scanPurchase(rows, &purchase, &supplierName); err != nil {
			return nil, fmt.Errorf("%w: scanning purchase: %v", ErrDatabaseError, err)
		}
		if supplierName.Valid {
			name := supplierName.String
			purchase.SupplierName = &name
		}
		purchases = append(purchases, purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating purchases: %v", ErrDatabaseError, err)
	}
	return purchases, nil
}
