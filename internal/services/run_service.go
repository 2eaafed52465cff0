package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

// --- Data Transfer Objects (DTOs) ---

// RunInputRequest names a lot and how much of it the run consumed.
type RunInputRequest struct {
	LotID     int64   `json:"lot_id" binding:"required"`
	WeightLbs float64 `json:"weight_lbs" binding:"required"`
}

// SaveRunRequest carries a run's raw fields for create and update. Derived
// yield and cost fields are never accepted from the caller.
type SaveRunRequest struct {
	RunDate          time.Time         `json:"run_date" binding:"required"`
	ReactorNumber    int               `json:"reactor_number" binding:"required"`
	IsRollover       bool              `json:"is_rollover"`
	RunType          string            `json:"run_type"`
	BioInHouseLbs    *float64          `json:"bio_in_house_lbs"`
	BioInReactorLbs  *float64          `json:"bio_in_reactor_lbs"`
	ButaneInHouseLbs *float64          `json:"butane_in_house_lbs"`
	SolventRatio     *float64          `json:"solvent_ratio"`
	SystemTemp       *float64          `json:"system_temp"`
	WetHteG          *float64          `json:"wet_hte_g"`
	WetThcaG         *float64          `json:"wet_thca_g"`
	DryHteG          *float64          `json:"dry_hte_g"`
	DryThcaG         *float64          `json:"dry_thca_g"`
	DecarbSampleDone bool              `json:"decarb_sample_done"`
	FuelConsumption  *float64          `json:"fuel_consumption"`
	Notes            *string           `json:"notes"`
	Inputs           []RunInputRequest `json:"inputs"`
}

// RunFailure reports one run that Recalculate-All could not process.
type RunFailure struct {
	RunID int64  `json:"run_id"`
	Error string `json:"error"`
}

// RecalculationReport summarizes a Recalculate-All pass.
type RecalculationReport struct {
	Processed int          `json:"processed"`
	Updated   int          `json:"updated"`
	Failures  []RunFailure `json:"failures"`
}

// --- RunService Interface ---
type RunService interface {
	CreateRun(req SaveRunRequest, actorID *int64) (*models.Run, error)
	GetRun(runID int64) (*models.Run, error)
	GetRuns(filters repositories.RunFilters) ([]models.Run, int, error)
	UpdateRun(runID int64, req SaveRunRequest, actorID *int64) (*models.Run, error)
	DeleteRun(runID int64, actorID *int64) error
	RecalculateAll(actorID *int64) (*RecalculationReport, error)
}

type runService struct {
	runRepo     repositories.RunRepository
	lotRepo     repositories.LotRepository
	costRepo    repositories.CostEntryRepository
	auditRepo   repositories.AuditRepository
	settingsSvc SettingsService
	db          *sql.DB
}

// NewRunService creates a new instance of RunService.
func NewRunService(runRepo repositories.RunRepository, lotRepo repositories.LotRepository, costRepo repositories.CostEntryRepository, auditRepo repositories.AuditRepository, settingsSvc SettingsService, db *sql.DB) RunService {
	return &runService{
		runRepo:     runRepo,
		lotRepo:     lotRepo,
		costRepo:    costRepo,
		auditRepo:   auditRepo,
		settingsSvc: settingsSvc,
		db:          db,
	}
}

func validateRunRequest(req *SaveRunRequest) error {
	switch req.RunType {
	case "":
		req.RunType = models.RunTypeStandard
	case models.RunTypeStandard, models.RunTypeKief, models.RunTypeLD:
	default:
		return validationErrorf("invalid run type %q", req.RunType)
	}
	for _, input := range req.Inputs {
		if input.WeightLbs <= 0 {
			return validationErrorf("input weight for lot %d must be positive", input.LotID)
		}
	}
	for _, g := range []struct {
		name  string
		value *float64
	}{
		{"bio_in_reactor_lbs", req.BioInReactorLbs},
		{"dry_hte_g", req.DryHteG},
		{"dry_thca_g", req.DryThcaG},
		{"wet_hte_g", req.WetHteG},
		{"wet_thca_g", req.WetThcaG},
	} {
		if g.value != nil && *g.value < 0 {
			return validationErrorf("%s cannot be negative", g.name)
		}
	}
	return nil
}

func (req *SaveRunRequest) toRun() *models.Run {
	return &models.Run{
		RunDate:          req.RunDate,
		ReactorNumber:    req.ReactorNumber,
		IsRollover:       req.IsRollover,
		RunType:          req.RunType,
		BioInHouseLbs:    req.BioInHouseLbs,
		BioInReactorLbs:  req.BioInReactorLbs,
		ButaneInHouseLbs: req.ButaneInHouseLbs,
		SolventRatio:     req.SolventRatio,
		SystemTemp:       req.SystemTemp,
		WetHteG:          req.WetHteG,
		WetThcaG:         req.WetThcaG,
		DryHteG:          req.DryHteG,
		DryThcaG:         req.DryThcaG,
		DecarbSampleDone: req.DecarbSampleDone,
		FuelConsumption:  req.FuelConsumption,
		Notes:            req.Notes,
	}
}

// applyRunInputs consumes lot weight for each requested input and persists
// the RunInput rows. Reads go through the transaction so a preceding restore
// in the same transaction is visible.
func (s *runService) applyRunInputs(tx *sql.Tx, runID int64, reqs []RunInputRequest) ([]models.RunInput, error) {
	inputs := make([]models.RunInput, 0, len(reqs))
	for _, req := range reqs {
		remaining, err := s.lotRepo.GetRemaining(tx, req.LotID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, validationErrorf("lot %d does not exist", req.LotID)
		} else if err != nil {
			return nil, err
		}
		if req.WeightLbs > remaining+1e-9 {
			return nil, validationErrorf("lot %d has only %.2f lbs remaining, requested %.2f", req.LotID, remaining, req.WeightLbs)
		}
		if err := s.lotRepo.AdjustRemaining(tx, req.LotID, -req.WeightLbs); err != nil {
			return nil, err
		}
		input := models.RunInput{RunID: runID, LotID: req.LotID, WeightLbs: req.WeightLbs}
		if _, err := s.runRepo.CreateInput(tx, &input); err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

// restoreRunInputs gives every active input's weight back to its lot and
// deletes the RunInput rows. A vanished lot is a consistency fault, not a
// user error.
func (s *runService) restoreRunInputs(tx *sql.Tx, runID int64) error {
	existing, err := s.runRepo.GetInputs(runID)
	if err != nil {
		return err
	}
	for _, input := range existing {
		err := s.lotRepo.AdjustRemaining(tx, input.LotID, input.WeightLbs)
		if errors.Is(err, repositories.ErrNotFound) {
			return consistencyErrorf("run %d references lot %d which no longer exists", runID, input.LotID)
		} else if err != nil {
			return err
		}
	}
	return s.runRepo.DeleteInputs(tx, runID)
}

// derive recomputes the run's yield and cost fields in place. The period
// index is built from all persisted runs with the current run's in-memory
// values substituted, so a save sees its own outputs.
func (s *runService) derive(run *models.Run, inputs []models.RunInput, cfg CostingConfig) error {
	ApplyYield(run, CalculateYield(run))

	entries, err := s.costRepo.GetAll("")
	if err != nil {
		return err
	}
	allRuns, err := s.runRepo.GetAllOrdered()
	if err != nil {
		return err
	}
	replaced := false
	for i := range allRuns {
		if allRuns[i].ID == run.ID {
			allRuns[i] = *run
			replaced = true
			break
		}
	}
	if !replaced {
		allRuns = append(allRuns, *run)
	}
	index := NewCostPeriodIndex(entries, allRuns)
	ApplyCost(run, ComputeRunCost(run, inputs, index, cfg))
	return nil
}

func (s *runService) CreateRun(req SaveRunRequest, actorID *int64) (*models.Run, error) {
	if err := validateRunRequest(&req); err != nil {
		return nil, err
	}
	cfg, err := s.settingsSvc.LoadCostingConfig()
	if err != nil {
		return nil, err
	}

	run := req.toRun()
	run.CreatedBy = actorID

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting run transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.runRepo.Create(tx, run); err != nil {
		return nil, err
	}
	inputs, err := s.applyRunInputs(tx, run.ID, req.Inputs)
	if err != nil {
		return nil, err
	}
	if err := s.attachPrices(inputs); err != nil {
		return nil, err
	}
	if err := s.derive(run, inputs, cfg); err != nil {
		return nil, err
	}
	if err := s.runRepo.Update(tx, run); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionCreate,
		EntityType: "run",
		EntityID:   run.ID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing run transaction: %w", err)
	}
	run.Inputs = inputs
	return run, nil
}

// attachPrices backfills the joined price field on freshly created inputs,
// which the cost engine reads. The rows were written through an uncommitted
// transaction, so the usual join query cannot see them yet.
func (s *runService) attachPrices(inputs []models.RunInput) error {
	for i := range inputs {
		lot, err := s.lotRepo.GetByID(inputs[i].LotID)
		if err != nil {
			return err
		}
		inputs[i].StrainName = &lot.StrainName
		inputs[i].PricePerLb = lot.PricePerLb
	}
	return nil
}

func (s *runService) GetRun(runID int64) (*models.Run, error) {
	run, err := s.runRepo.GetByID(runID)
	if err != nil {
		return nil, err
	}
	inputs, err := s.runRepo.GetInputs(runID)
	if err != nil {
		return nil, err
	}
	run.Inputs = inputs
	return run, nil
}

func (s *runService) GetRuns(filters repositories.RunFilters) ([]models.Run, int, error) {
	runs, total, err := s.runRepo.GetAll(filters)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]int64, len(runs))
	for i := range runs {
		ids[i] = runs[i].ID
	}
	inputsByRun, err := s.runRepo.GetInputsForRuns(ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range runs {
		runs[i].Inputs = inputsByRun[runs[i].ID]
	}
	return runs, total, nil
}

func (s *runService) UpdateRun(runID int64, req SaveRunRequest, actorID *int64) (*models.Run, error) {
	if err := validateRunRequest(&req); err != nil {
		return nil, err
	}
	cfg, err := s.settingsSvc.LoadCostingConfig()
	if err != nil {
		return nil, err
	}
	existing, err := s.runRepo.GetByID(runID)
	if err != nil {
		return nil, err
	}

	run := req.toRun()
	run.ID = runID
	run.CreatedBy = existing.CreatedBy
	run.CreatedAt = existing.CreatedAt

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting run transaction: %w", err)
	}
	defer tx.Rollback()

	// Restore-then-apply. Applying deltas directly would miscount when the
	// lot selection changes between edits.
	if err := s.restoreRunInputs(tx, runID); err != nil {
		return nil, err
	}
	inputs, err := s.applyRunInputs(tx, runID, req.Inputs)
	if err != nil {
		return nil, err
	}
	if err := s.attachPrices(inputs); err != nil {
		return nil, err
	}
	if err := s.derive(run, inputs, cfg); err != nil {
		return nil, err
	}
	if err := s.runRepo.Update(tx, run); err != nil {
		return nil, err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionUpdate,
		EntityType: "run",
		EntityID:   runID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing run transaction: %w", err)
	}
	run.Inputs = inputs
	return run, nil
}

func (s *runService) DeleteRun(runID int64, actorID *int64) error {
	if _, err := s.runRepo.GetByID(runID); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting run transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.restoreRunInputs(tx, runID); err != nil {
		return err
	}
	if err := s.runRepo.Delete(tx, runID); err != nil {
		return err
	}
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionDelete,
		EntityType: "run",
		EntityID:   runID,
	}
	if err := s.auditRepo.Record(tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// RecalculateAll re-derives yield and cost for every run under the current
// settings. RunInput weights are never touched. A single run's validation
// or consistency fault is collected and skipped; persistence faults abort
// the whole pass.
func (s *runService) RecalculateAll(actorID *int64) (*RecalculationReport, error) {
	cfg, err := s.settingsSvc.LoadCostingConfig()
	if err != nil {
		return nil, err
	}
	entries, err := s.costRepo.GetAll("")
	if err != nil {
		return nil, err
	}
	allRuns, err := s.runRepo.GetAllOrdered()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(allRuns))
	for i := range allRuns {
		ids[i] = allRuns[i].ID
	}
	inputsByRun, err := s.runRepo.GetInputsForRuns(ids)
	if err != nil {
		return nil, err
	}

	// Yield feeds the period aggregates, so recompute it across the board
	// before building the index.
	for i := range allRuns {
		ApplyYield(&allRuns[i], CalculateYield(&allRuns[i]))
	}
	index := NewCostPeriodIndex(entries, allRuns)

	report := &RecalculationReport{}
	for i := range allRuns {
		run := &allRuns[i]
		report.Processed++

		ApplyCost(run, ComputeRunCost(run, inputsByRun[run.ID], index, cfg))

		err := s.runRepo.UpdateDerived(s.db, run)
		if errors.Is(err, repositories.ErrNotFound) {
			report.Failures = append(report.Failures, RunFailure{RunID: run.ID, Error: "run disappeared during recalculation"})
			continue
		} else if err != nil {
			return nil, err
		}
		report.Updated++
	}

	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionUpdate,
		EntityType: "recalculation",
	}
	if err := s.auditRepo.Record(s.db, event); err != nil {
		return nil, err
	}
	return report, nil
}
