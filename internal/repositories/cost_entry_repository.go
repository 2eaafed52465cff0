package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

// CostEntryRepository defines the interface for cost entry database operations.
type CostEntryRepository interface {
	Create(executor SQLExecutor, entry *models.CostEntry) (int64, error)
	GetByID(entryID int64) (*models.CostEntry, error)
	GetAll(costType string) ([]models.CostEntry, error)
	Update(executor SQLExecutor, entry *models.CostEntry) error
	Delete(executor SQLExecutor, entryID int64) error
}

type costEntryRepository struct {
	db *sql.DB
}

// NewCostEntryRepository creates a new instance of CostEntryRepository.
func NewCostEntryRepository(db *sql.DB) CostEntryRepository {
	return &costEntryRepository{db: db}
}

const costEntryColumns = `id, cost_type, name, unit_cost, unit, quantity, total_cost,
	start_date, end_date, notes, created_by, created_at, updated_at`

func scanCostEntry(s scanner, entry *models.CostEntry) error {
	return s.Scan(
		&entry.ID, &entry.CostType, &entry.Name, &entry.UnitCost, &entry.Unit,
		&entry.Quantity, &entry.TotalCost, &entry.StartDate, &entry.EndDate,
		&entry.Notes, &entry.CreatedBy, &entry.CreatedAt, &entry.UpdatedAt,
	)
}

func (r *costEntryRepository) Create(executor SQLExecutor, entry *models.CostEntry) (int64, error) {
	query := `INSERT INTO cost_entries
	          (cost_type, name, unit_cost, unit, quantity, total_cost, start_date, end_date,
	           notes, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRow(query,
		entry.CostType, entry.Name, entry.UnitCost, entry.Unit, entry.Quantity,
		entry.TotalCost, entry.StartDate, entry.EndDate, entry.Notes, entry.CreatedBy, now, now,
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating cost entry: %v", ErrDatabaseError, err)
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return entry.ID, nil
}

func (r *costEntryRepository) GetByID(entryID int64) (*models.CostEntry, error) {
	query := `SELECT ` + costEntryColumns + ` FROM cost_entries WHERE id = $1`
	var entry models.CostEntry
	err := scanCostEntry(r.db.QueryRow(query, entryID), &entry)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting cost entry %d: %v", ErrDatabaseError, entryID, err)
	}
	return &entry, nil
}

func (r *costEntryRepository) GetAll(costType string) ([]models.CostEntry, error) {
	query := `SELECT ` + costEntryColumns + ` FROM cost_entries`
	var args []interface{}
	if costType != "" {
		query += ` WHERE cost_type = $1`
		args = append(args, costType)
	}
	query += ` ORDER BY start_date DESC, id DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting cost entries: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	entries := []models.CostEntry{}
	for rows.Next() {
		var entry models.CostEntry
		if err := scanCostEntry(rows, &entry); err != nil {
			return nil, fmt.Errorf("%w: scanning cost entry: %v", ErrDatabaseError, err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating cost entries: %v", ErrDatabaseError, err)
	}
	return entries, nil
}

func (r *costEntryRepository) Update(executor SQLExecutor, entry *models.CostEntry) error {
	query := `UPDATE cost_entries SET cost_type = $1, name = $2, unit_cost = $3, unit = $4,
	          quantity = $5, total_cost = $6, start_date = $7, end_date = $8, notes = $9,
	          updated_at = $10
	          WHERE id = $11`
	entry.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		entry.CostType, entry.Name, entry.UnitCost, entry.Unit, entry.Quantity,
		entry.TotalCost, entry.StartDate, entry.EndDate, entry.Notes, entry.UpdatedAt, entry.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating cost entry %d: %v", ErrDatabaseError, entry.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking cost entry update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *costEntryRepository) Delete(executor SQLExecutor, entryID int64) error {
	result, err := executor.Exec(`DELETE FROM cost_entries WHERE id = $1`, entryID)
	if err != nil {
		return fmt.Errorf("%w: deleting cost entry %d: %v", ErrDatabaseError, entryID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking cost entry delete result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
