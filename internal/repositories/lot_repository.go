package repositories

import (
	"database/sql"
	"fmt"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/lib/pq"
)

// LotRepository defines the interface for purchase-lot database operations.
type LotRepository interface {
	Create(executor SQLExecutor, lot *models.Lot) (int64, error)
	GetByID(lotID int64) (*models.Lot, error)
	GetByPurchase(purchaseID int64) ([]models.Lot, error)
	GetAll() ([]models.Lot, error)
	GetAvailable() ([]models.Lot, error)
	GetOnHand(onHandStatuses []string) ([]models.Lot, error)
	Update(executor SQLExecutor, lot *models.Lot) error
	SetRemaining(executor SQLExecutor, lotID int64, remaining float64) error
	AdjustRemaining(executor SQLExecutor, lotID int64, delta float64) error
	GetRemaining(executor SQLExecutor, lotID int64) (float64, error)
	FindByPurchaseAndStrain(purchaseID int64, strainName string) (*models.Lot, error)
}

type lotRepository struct {
	db *sql.DB
}

// NewLotRepository creates a new instance of LotRepository.
func NewLotRepository(db *sql.DB) LotRepository {
	return &lotRepository{db: db}
}

const lotColumns = `l.id, l.purchase_id, l.strain_name, l.weight_lbs, l.remaining_weight_lbs,
	l.potency_pct, l.micro_pot_test, l.milled, l.location, l.notes`

func scanLot(s scanner, lot *models.Lot, extra ...interface{}) error {
	dest := []interface{}{
		&lot.ID, &lot.PurchaseID, &lot.StrainName, &lot.WeightLbs, &lot.RemainingWeightLbs,
		&lot.PotencyPct, &lot.MicroPotTest, &lot.Milled, &lot.Location, &lot.Notes,
	}
	dest = append(dest, extra...)
	return s.Scan(dest...)
}

func (r *lotRepository) Create(executor SQLExecutor, lot *models.Lot) (int64, error) {
	query := `INSERT INTO purchase_lots
	          (purchase_id, strain_name, weight_lbs, remaining_weight_lbs, potency_pct,
	           micro_pot_test, milled, location, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`
	err := executor.QueryRow(query,
		lot.PurchaseID, lot.StrainName, lot.WeightLbs, lot.RemainingWeightLbs,
		lot.PotencyPct, lot.MicroPotTest, lot.Milled, lot.Location, lot.Notes,
	).Scan(&lot.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating lot: %v", ErrDatabaseError, err)
	}
	return lot.ID, nil
}

func (r *lotRepository) GetByID(lotID int64) (*models.Lot, error) {
	query := `SELECT ` + lotColumns + `, s.name AS supplier_name, p.price_per_lb
	          FROM purchase_lots l
	          JOIN purchases p ON l.purchase_id = p.id
	          JOIN suppliers s ON p.supplier_id = s.id
	          WHERE l.id = $1`
	var lot models.Lot
	var supplierName sql.NullString
	err := scanLot(r.db.QueryRow(query, lotID), &lot, &supplierName, &lot.PricePerLb)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting lot %d: %v", ErrDatabaseError, lotID, err)
	}
	if supplierName.Valid {
		name := supplierName.String
		lot.SupplierName = &name
	}
	return &lot, nil
}

func (r *lotRepository) GetByPurchase(purchaseID int64) ([]models.Lot, error) {
	query := `SELECT ` + lotColumns + `
	          FROM purchase_lots l
	          WHERE l.purchase_id = $1
	          ORDER BY l.strain_name ASC`
	rows, err := r.db.Query(query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting lots for purchase %d: %v", ErrDatabaseError, purchaseID, err)
	}
	defer rows.Close()

	lots := []models.Lot{}
	for rows.Next() {
		var lot models.Lot
		if err := scanLot(rows, &lot); err != nil {
			return nil, fmt.Errorf("%w: scanning lot: %v", ErrDatabaseError, err)
		}
		lots = append(lots, lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating lots: %v", ErrDatabaseError, err)
	}
	return lots, nil
}

// GetAll returns every lot with its supplier and price joins, ordered by
// purchase then strain.
func (r *lotRepository) GetAll() ([]models.Lot, error) {
	query := `SELECT ` + lotColumns + `, s.name AS supplier_name, p.price_per_lb
	          FROM purchase_lots l
	          JOIN purchases p ON l.purchase_id = p.id
	          JOIN suppliers s ON p.supplier_id = s.id
	          ORDER BY l.purchase_id ASC, l.strain_name ASC`
	return r.queryLotsWithJoins(query)
}

// GetAvailable returns every lot with remaining weight, regardless of the
// parent purchase's status. Used by the run form's lot picker.
func (r *lotRepository) GetAvailable() ([]models.Lot, error) {
	query := `SELECT ` + lotColumns + `, s.name AS supplier_name, p.price_per_lb
	          FROM purchase_lots l
	          JOIN purchases p ON l.purchase_id = p.id
	          JOIN suppliers s ON p.supplier_id = s.id
	          WHERE l.remaining_weight_lbs > 0
	          ORDER BY l.strain_name ASC`
	return r.queryLotsWithJoins(query)
}

// GetOnHand returns lots with remaining weight whose parent purchase has
// actually arrived (status in onHandStatuses).
func (r *lotRepository) GetOnHand(onHandStatuses []string) ([]models.Lot, error) {
	query := `SELECT ` + lotColumns + `, s.name AS supplier_name, p.price_per_lb
	          FROM purchase_lots l
	          JOIN purchases p ON l.purchase_id = p.id
	          JOIN suppliers s ON p.supplier_id = s.id
	          WHERE l.remaining_weight_lbs > 0 AND p.status = ANY($1)
	          ORDER BY l.strain_name ASC`
	return r.queryLotsWithJoins(query, pq.Array(onHandStatuses))
}

func (r *lotRepository) queryLotsWithJoins(query string, args ...interface{}) ([]models.Lot, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting lots: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	lots := []models.Lot{}
	for rows.Next() {
		var lot models.Lot
		var supplierName sql.NullString
		if err := scanLot(rows, &lot, &supplierName, &lot.PricePerLb); err != nil {
			return nil, fmt.Errorf("%w: scanning lot: %v", ErrDatabaseError, err)
		}
		if supplierName.Valid {
			name := supplierName.String
			lot.SupplierName = &name
		}
		lots = append(lots, lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating lots: %v", ErrDatabaseError, err)
	}
	return lots, nil
}

func (r *lotRepository) Update(executor SQLExecutor, lot *models.Lot) error {
	query := `UPDATE purchase_lots SET strain_name = $1, weight_lbs = $2, remaining_weight_lbs = $3,
	          potency_pct = $4, micro_pot_test = $5, milled = $6, location = $7, notes = $8
	          WHERE id = $9`
	result, err := executor.Exec(query,
		lot.StrainName, lot.WeightLbs, lot.RemainingWeightLbs, lot.PotencyPct,
		lot.MicroPotTest, lot.Milled, lot.Location, lot.Notes, lot.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating lot %d: %v", ErrDatabaseError, lot.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking lot update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRemaining overwrites the lot's remaining weight outright.
func (r *lotRepository) SetRemaining(executor SQLExecutor, lotID int64, remaining float64) error {
	result, err := executor.Exec(
		`UPDATE purchase_lots SET remaining_weight_lbs = $1 WHERE id = $2`, remaining, lotID)
	if err != nil {
		return fmt.Errorf("%w: setting remaining weight on lot %d: %v", ErrDatabaseError, lotID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking remaining weight update: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustRemaining applies a signed delta to the lot's remaining weight.
// Positive deltas restore weight, negative deltas consume it.
func (r *lotRepository) AdjustRemaining(executor SQLExecutor, lotID int64, delta float64) error {
	result, err := executor.Exec(
		`UPDATE purchase_lots SET remaining_weight_lbs = remaining_weight_lbs + $1 WHERE id = $2`,
		delta, lotID)
	if err != nil {
		return fmt.Errorf("%w: adjusting remaining weight on lot %d: %v", ErrDatabaseError, lotID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking remaining weight adjustment: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRemaining reads the lot's remaining weight through the executor, so a
// transaction sees its own uncommitted adjustments. Locks the row when run
// inside a transaction.
func (r *lotRepository) GetRemaining(executor SQLExecutor, lotID int64) (float64, error) {
	var remaining float64
	err := executor.QueryRow(
		`SELECT remaining_weight_lbs FROM purchase_lots WHERE id = $1 FOR UPDATE`, lotID,
	).Scan(&remaining)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	} else if err != nil {
		return 0, fmt.Errorf("%w: reading remaining weight on lot %d: %v", ErrDatabaseError, lotID, err)
	}
	return remaining, nil
}

func (r *lotRepository) FindByPurchaseAndStrain(purchaseID int64, strainName string) (*models.Lot, error) {
	query := `SELECT ` + lotColumns + `
	          FROM purchase_lots l
	          WHERE l.purchase_id = $1 AND l.strain_name = $2
	          LIMIT 1`
	var lot models.Lot
	err := scanLot(r.db.QueryRow(query, purchaseID, strainName), &lot)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: finding lot by purchase and strain: %v", ErrDatabaseError, err)
	}
	return &lot, nil
}
