package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/lib/pq"
)

// RunFilters narrows the run listing.
type RunFilters struct {
	Search   string // matches strain name or run notes
	SortBy   string
	SortDesc bool
	Page     int
	PageSize int
}

// RunRepository defines the interface for run and run-input database operations.
type RunRepository interface {
	Create(executor SQLExecutor, run *models.Run) (int64, error)
	GetByID(runID int64) (*models.Run, error)
	GetAll(filters RunFilters) ([]models.Run, int, error)
	GetInDateRange(start, end time.Time) ([]models.Run, error)
	GetAllOrdered() ([]models.Run, error)
	Update(executor SQLExecutor, run *models.Run) error
	UpdateDerived(executor SQLExecutor, run *models.Run) error
	Delete(executor SQLExecutor, runID int64) error
	ExistsForDateStrainSupplier(runDate time.Time, strainName string, supplierID int64) (bool, error)

	CreateInput(executor SQLExecutor, input *models.RunInput) (int64, error)
	GetInputs(runID int64) ([]models.RunInput, error)
	GetInputsForRuns(runIDs []int64) (map[int64][]models.RunInput, error)
	DeleteInputs(executor SQLExecutor, runID int64) error
}

type runRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new instance of RunRepository.
func NewRunRepository(db *sql.DB) RunRepository {
	return &runRepository{db: db}
}

const runColumns = `r.id, r.run_date, r.reactor_number, r.is_rollover, r.run_type,
	r.bio_in_house_lbs, r.bio_in_reactor_lbs, r.grams_ran, r.butane_in_house_lbs,
	r.solvent_ratio, r.system_temp, r.wet_hte_g, r.wet_thca_g, r.dry_hte_g, r.dry_thca_g,
	r.overall_yield_pct, r.thca_yield_pct, r.hte_yield_pct,
	r.cost_per_gram_combined, r.cost_per_gram_thca, r.cost_per_gram_hte,
	r.decarb_sample_done, r.fuel_consumption, r.notes, r.created_by, r.created_at, r.updated_at`

func scanRun(s scanner, run *models.Run, extra ...interface{}) error {
	dest := []interface{}{
		&run.ID, &run.RunDate, &run.ReactorNumber, &run.IsRollover, &run.RunType,
		&run.BioInHouseLbs, &run.BioInReactorLbs, &run.GramsRan, &run.ButaneInHouseLbs,
		&run.SolventRatio, &run.SystemTemp, &run.WetHteG, &run.WetThcaG, &run.DryHteG, &run.DryThcaG,
		&run.OverallYieldPct, &run.ThcaYieldPct, &run.HteYieldPct,
		&run.CostPerGramCombined, &run.CostPerGramThca, &run.CostPerGramHte,
		&run.DecarbSampleDone, &run.FuelConsumption, &run.Notes, &run.CreatedBy,
		&run.CreatedAt, &run.UpdatedAt,
	}
	dest = append(dest, extra...)
	return s.Scan(dest...)
}

func (r *runRepository) Create(executor SQLExecutor, run *models.Run) (int64, error) {
	query := `INSERT INTO runs
	          (run_date, reactor_number, is_rollover, run_type, bio_in_house_lbs, bio_in_reactor_lbs,
	           grams_ran, butane_in_house_lbs, solvent_ratio, system_temp, wet_hte_g, wet_thca_g,
	           dry_hte_g, dry_thca_g, overall_yield_pct, thca_yield_pct, hte_yield_pct,
	           cost_per_gram_combined, cost_per_gram_thca, cost_per_gram_hte,
	           decarb_sample_done, fuel_consumption, notes, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
	                  $18, $19, $20, $21, $22, $23, $24, $25, $26)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRow(query,
		run.RunDate, run.ReactorNumber, run.IsRollover, run.RunType, run.BioInHouseLbs,
		run.BioInReactorLbs, run.GramsRan, run.ButaneInHouseLbs, run.SolventRatio, run.SystemTemp,
		run.WetHteG, run.WetThcaG, run.DryHteG, run.DryThcaG, run.OverallYieldPct, run.ThcaYieldPct,
		run.HteYieldPct, run.CostPerGramCombined, run.CostPerGramThca, run.CostPerGramHte,
		run.DecarbSampleDone, run.FuelConsumption, run.Notes, run.CreatedBy, now, now,
	).Scan(&run.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating run: %v", ErrDatabaseError, err)
	}
	run.CreatedAt = now
	run.UpdatedAt = now
	return run.ID, nil
}

func (r *runRepository) GetByID(runID int64) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r WHERE r.id = $1`
	var run models.Run
	err := scanRun(r.db.QueryRow(query, runID), &run)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: getting run %d: %v", ErrDatabaseError, runID, err)
	}
	return &run, nil
}

// runSortColumns whitelists sortable columns to keep ORDER BY injection-safe.
var runSortColumns = map[string]string{
	"run_date":               "r.run_date",
	"reactor_number":         "r.reactor_number",
	"overall_yield_pct":      "r.overall_yield_pct",
	"cost_per_gram_combined": "r.cost_per_gram_combined",
	"created_at":             "r.created_at",
}

func (r *runRepository) GetAll(filters RunFilters) ([]models.Run, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT DISTINCT ` + runColumns + `, COUNT(*) OVER() AS total_count
	  FROM runs r`)

	var args []interface{}
	argCount := 1
	if filters.Search != "" {
		queryBuilder.WriteString(`
	  LEFT JOIN run_inputs ri ON ri.run_id = r.id
	  LEFT JOIN purchase_lots l ON l.id = ri.lot_id`)
		queryBuilder.WriteString(fmt.Sprintf(" WHERE (l.strain_name ILIKE $%d OR r.notes ILIKE $%d)", argCount, argCount))
		args = append(args, "%"+filters.Search+"%")
		argCount++
	}

	sortCol, ok := runSortColumns[filters.SortBy]
	if !ok {
		sortCol = "r.run_date"
	}
	direction := "ASC"
	if filters.SortDesc {
		direction = "DESC"
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s %s, r.id %s", sortCol, direction, direction))

	page := filters.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting runs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	runs := []models.Run{}
	totalCount := 0
	for rows.Next() {
		var run models.Run
		if err := scanRun(rows, &run, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning run: %v", ErrDatabaseError, err)
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating runs: %v", ErrDatabaseError, err)
	}
	return runs, totalCount, nil
}

func (r *runRepository) GetInDateRange(start, end time.Time) ([]models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r
	          WHERE r.run_date >= $1 AND r.run_date <= $2
	          ORDER BY r.run_date ASC, r.id ASC`
	rows, err := r.db.Query(query, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: getting runs in date range: %v", ErrDatabaseError, err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

func (r *runRepository) GetAllOrdered() ([]models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r ORDER BY r.run_date ASC, r.id ASC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting all runs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

func (r *runRepository) Update(executor SQLExecutor, run *models.Run) error {
	query := `UPDATE runs SET run_date = $1, reactor_number = $2, is_rollover = $3, run_type = $4,
	          bio_in_house_lbs = $5, bio_in_reactor_lbs = $6, grams_ran = $7, butane_in_house_lbs = $8,
	          solvent_ratio = $9, system_temp = $10, wet_hte_g = $11, wet_thca_g = $12,
	          dry_hte_g = $13, dry_thca_g = $14, overall_yield_pct = $15, thca_yield_pct = $16,
	          hte_yield_pct = $17, cost_per_gram_combined = $18, cost_per_gram_thca = $19,
	          cost_per_gram_hte = $20, decarb_sample_done = $21, fuel_consumption = $22,
	          notes = $23, updated_at = $24
	          WHERE id = $25`
	run.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		run.RunDate, run.ReactorNumber, run.IsRollover, run.RunType, run.BioInHouseLbs,
		run.BioInReactorLbs, run.GramsRan, run.ButaneInHouseLbs, run.SolventRatio, run.SystemTemp,
		run.WetHteG, run.WetThcaG, run.DryHteG, run.DryThcaG, run.OverallYieldPct, run.ThcaYieldPct,
		run.HteYieldPct, run.CostPerGramCombined, run.CostPerGramThca, run.CostPerGramHte,
		run.DecarbSampleDone, run.FuelConsumption, run.Notes, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating run %d: %v", ErrDatabaseError, run.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking run update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDerived persists only the derived yield and cost fields, leaving the
// raw measurements and inputs untouched. Used by Recalculate-All.
func (r *runRepository) UpdateDerived(executor SQLExecutor, run *models.Run) error {
	query := `UPDATE runs SET grams_ran = $1, overall_yield_pct = $2, thca_yield_pct = $3,
	          hte_yield_pct = $4, cost_per_gram_combined = $5, cost_per_gram_thca = $6,
	          cost_per_gram_hte = $7, updated_at = $8
	          WHERE id = $9`
	run.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		run.GramsRan, run.OverallYieldPct, run.ThcaYieldPct, run.HteYieldPct,
		run.CostPerGramCombined, run.CostPerGramThca, run.CostPerGramHte, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating derived fields on run %d: %v", ErrDatabaseError, run.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking derived update result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *runRepository) Delete(executor SQLExecutor, runID int64) error {
	result, err := executor.Exec(`DELETE FROM runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("%w: deleting run %d: %v", ErrDatabaseError, runID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking run delete result: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsForDateStrainSupplier is the importer's dedup probe: (run date,
// strain, source supplier) identifies an already-imported row.
func (r *runRepository) ExistsForDateStrainSupplier(runDate time.Time, strainName string, supplierID int64) (bool, error) {
	query := `SELECT EXISTS(
	            SELECT 1 FROM runs r
	            JOIN run_inputs ri ON ri.run_id = r.id
	            JOIN purchase_lots l ON l.id = ri.lot_id
	            JOIN purchases p ON p.id = l.purchase_id
	            WHERE r.run_date = $1 AND l.strain_name = $2 AND p.supplier_id = $3)`
	var exists bool
	if err := r.db.QueryRow(query, runDate, strainName, supplierID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: checking run existence for dedup: %v", ErrDatabaseError, err)
	}
	return exists, nil
}

func (r *runRepository) CreateInput(executor SQLExecutor, input *models.RunInput) (int64, error) {
	query := `INSERT INTO run_inputs (run_id, lot_id, weight_lbs) VALUES ($1, $2, $3) RETURNING id`
	err := executor.QueryRow(query, input.RunID, input.LotID, input.WeightLbs).Scan(&input.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating run input: %v", ErrDatabaseError, err)
	}
	return input.ID, nil
}

const runInputColumns = `ri.id, ri.run_id, ri.lot_id, ri.weight_lbs, l.strain_name,
	p.price_per_lb, l.purchase_id, p.supplier_id, s.name`

func scanRunInput(s scanner, input *models.RunInput) error {
	var strainName, supplierName sql.NullString
	err := s.Scan(&input.ID, &input.RunID, &input.LotID, &input.WeightLbs, &strainName,
		&input.PricePerLb, &input.PurchaseID, &input.SupplierID, &supplierName)
	if err != nil {
		return err
	}
	if strainName.Valid {
		name := strainName.String
		input.StrainName = &name
	}
	if supplierName.Valid {
		name := supplierName.String
		input.SupplierName = &name
	}
	return nil
}

func (r *runRepository) GetInputs(runID int64) ([]models.RunInput, error) {
	query := `SELECT ` + runInputColumns + `
	          FROM run_inputs ri
	          JOIN purchase_lots l ON l.id = ri.lot_id
	          JOIN purchases p ON p.id = l.purchase_id
	          JOIN suppliers s ON s.id = p.supplier_id
	          WHERE ri.run_id = $1
	          ORDER BY ri.id ASC`
	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting inputs for run %d: %v", ErrDatabaseError, runID, err)
	}
	defer rows.Close()

	inputs := []models.RunInput{}
	for rows.Next() {
		var input models.RunInput
		if err := scanRunInput(rows, &input); err != nil {
			return nil, fmt.Errorf("%w: scanning run input: %v", ErrDatabaseError, err)
		}
		inputs = append(inputs, input)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating run inputs: %v", ErrDatabaseError, err)
	}
	return inputs, nil
}

func (r *runRepository) GetInputsForRuns(runIDs []int64) (map[int64][]models.RunInput, error) {
	result := map[int64][]models.RunInput{}
	if len(runIDs) == 0 {
		return result, nil
	}
	query := `SELECT ` + runInputColumns + `
	          FROM run_inputs ri
	          JOIN purchase_lots l ON l.id = ri.lot_id
	          JOIN purchases p ON p.id = l.purchase_id
	          JOIN suppliers s ON s.id = p.supplier_id
	          WHERE ri.run_id = ANY($1)
	          ORDER BY ri.id ASC`
	rows, err := r.db.Query(query, pq.Array(runIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: getting inputs for runs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var input models.RunInput
		if err := scanRunInput(rows, &input); err != nil {
			return nil, fmt.Errorf("%w: scanning run input: %v", ErrDatabaseError, err)
		}
		result[input.RunID] = append(result[input.RunID], input)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating run inputs: %v", ErrDatabaseError, err)
	}
	return result, nil
}

func (r *runRepository) DeleteInputs(executor SQLExecutor, runID int64) error {
	if _, err := executor.Exec(`DELETE FROM run_inputs WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("%w: deleting inputs for run %d: %v", ErrDatabaseError, runID, err)
	}
	return nil
}

func collectRuns(rows *sql.Rows) ([]models.Run, error) {
	runs := []models.Run{}
	for rows.Next() {
		var run models.Run
		if err := scanRun(rows, &run); err != nil {
			return nil, fmt.Errorf("%w: scanning run: %v", ErrDatabaseError, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating runs: %v", ErrDatabaseError, err)
	}
	return runs, nil
}
