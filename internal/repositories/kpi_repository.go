package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

// KpiTargetRepository defines the interface for KPI target database operations.
type KpiTargetRepository interface {
	GetAll() ([]models.KpiTarget, error)
	GetByName(kpiName string) (*models.KpiTarget, error)
	Update(executor SQLExecutor, target *models.KpiTarget) error
}

type kpiTargetRepository struct {
	db *sql.DB
}

// NewKpiTargetRepository creates a new instance of KpiTargetRepository.
func NewKpiTargetRepository(db *sql.DB) KpiTargetRepository {
	return &kpiTargetRepository{db: db}
}

const kpiColumns = `id, kpi_name, display_name, target_value, green_threshold,
	yellow_threshold, direction, unit, effective_date, updated_by`

func scanKpiTarget(s scanner, target *models.KpiTarget) error {
	return s.Scan(
		&target.ID, &target.KpiName, &target.DisplayName, &target.TargetValue,
		&target.GreenThreshold, &target.YellowThreshold, &target.Direction,
		&target.Unit, &target.EffectiveDate, &target.UpdatedBy,
	)
}

func (r *kpiTargetRepository) GetAll() ([]models.KpiTarget, error) {
	query := `SELECT ` + kpiColumns + ` FROM kpi_targets ORDER BY kpi_name ASC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting KPI targets: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	targets := []models.KpiTarget{}
	for rows.Next() {
		var target models.KpiTarget
		if err := scanKpiTarget(rows, &target); err != nil {
			return nil, fmt.Errorf("%w: scanning KPI target: %v", ErrDatabaseError, err)
		}
		targets = append(targets, target)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating KPI targets: %v", ErrDatabaseError, err)
	}
	return targets, nil
}

func (r *kpiTargetRepository) GetByName(kpiName string) (*models.KpiTarget, error) {
	query := `SELECT ` + kpiColumns + ` FROM kpi_targets WHERE kpi_name = $1`
	var target models.KpiTarget
	err := scanKpiTarget(r.db.QueryRow(query, kpiName), &target)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting KPI target %q: %v", ErrDatabaseError, kpiName, err)
	}
	return &target, nil
}

func (r *kpiTargetRepository) Update(executor SQLExecutor, target *models.KpiTarget) error {
	query := `UPDATE kpi_targets SET target_value = $1, green_threshold = $2,
	          yellow_threshold = $3, direction = $4, unit = $5, effective_date = $6,
	          updated_by = $7
	          WHERE kpi_name = $8`
	now := time.Now()
	if target.EffectiveDate == nil {
		target.EffectiveDate = &now
	}
	result, err := executor.Exec(query,
		target.TargetValue, target.GreenThreshold, target.YellowThreshold,
		target.Direction, target.Unit, target.EffectiveDate, target.UpdatedBy, target.KpiName,
	)
	if err != nil {
		return fmt.Errorf("%w: updating KPI target %q: %v", ErrDatabaseError, target.KpiName, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking KPI target update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
