package services

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

const importRowLimit = 500

// ImportRow is one normalized historical-run record. Source is the supplier
// name as written in the sheet; weights are pounds, outputs grams.
type ImportRow struct {
	RunDate       time.Time `json:"run_date"`
	Source        string    `json:"source"`
	StrainName    string    `json:"strain_name"`
	BioInHouseLbs *float64  `json:"bio_in_house_lbs,omitempty"`
	LbsRan        *float64  `json:"lbs_ran,omitempty"`
	GramsRan      *float64  `json:"grams_ran,omitempty"`
	ButaneLbs     *float64  `json:"butane_lbs,omitempty"`
	SolventRatio  *float64  `json:"solvent_ratio,omitempty"`
	WetHteG       *float64  `json:"wet_hte_g,omitempty"`
	WetThcaG      *float64  `json:"wet_thca_g,omitempty"`
	DryHteG       *float64  `json:"dry_hte_g,omitempty"`
	DryThcaG      *float64  `json:"dry_thca_g,omitempty"`
	PricePerLb    *float64  `json:"price_per_lb,omitempty"`
}

// ImportFailure records one row that could not be imported.
type ImportFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult summarizes an import batch.
type ImportResult struct {
	Imported int             `json:"imported"`
	Skipped  int             `json:"skipped"`
	Failed   int             `json:"failed"`
	Failures []ImportFailure `json:"failures,omitempty"`
}

// --- ImportService Interface ---
type ImportService interface {
	ParseCSV(r io.Reader) ([]ImportRow, int, error)
	Import(rows []ImportRow, actorID *int64) (*ImportResult, error)
}

type importService struct {
	supplierRepo repositories.SupplierRepository
	purchaseRepo repositories.PurchaseRepository
	lotRepo      repositories.LotRepository
	runRepo      repositories.RunRepository
	auditRepo    repositories.AuditRepository
	runSvc       RunService
	db           *sql.DB
}

// NewImportService creates a new instance of ImportService.
func NewImportService(supplierRepo repositories.SupplierRepository, purchaseRepo repositories.PurchaseRepository, lotRepo repositories.LotRepository, runRepo repositories.RunRepository, auditRepo repositories.AuditRepository, runSvc RunService, db *sql.DB) ImportService {
	return &importService{
		supplierRepo: supplierRepo,
		purchaseRepo: purchaseRepo,
		lotRepo:      lotRepo,
		runRepo:      runRepo,
		auditRepo:    auditRepo,
		runSvc:       runSvc,
		db:           db,
	}
}

// ParseCSV reads a header-keyed sheet export into normalized rows. The source
// sheets repeat their header block every few screens, so any row whose cells
// include a header word is dropped; the second return value is the number of
// rows dropped that way.
func (s *importService) ParseCSV(r io.Reader) ([]ImportRow, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, validationErrorf("csv has no header row")
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	var rows []ImportRow
	filtered := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, validationErrorf("malformed csv: %v", err)
		}
		cells := map[string]string{}
		for i, value := range record {
			if i < len(header) {
				cells[header[i]] = strings.TrimSpace(value)
			}
		}
		if isRepeatedHeader(cells) {
			filtered++
			continue
		}
		row := ImportRow{
			Source:        firstCell(cells, "source", "supplier"),
			StrainName:    firstCell(cells, "strain", "strain name"),
			BioInHouseLbs: parseImportFloat(firstCell(cells, "bio in house")),
			LbsRan:        parseImportFloat(firstCell(cells, "lbs ran", "bio in reactor")),
			GramsRan:      parseImportFloat(firstCell(cells, "grams ran")),
			ButaneLbs:     parseImportFloat(firstCell(cells, "butane in house", "butane")),
			SolventRatio:  parseImportFloat(firstCell(cells, "solvent ratio")),
			WetHteG:       parseImportFloat(firstCell(cells, "wet hte")),
			WetThcaG:      parseImportFloat(firstCell(cells, "wet thca")),
			DryHteG:       parseImportFloat(firstCell(cells, "dry hte")),
			DryThcaG:      parseImportFloat(firstCell(cells, "dry thca")),
			PricePerLb:    parseImportFloat(firstCell(cells, "price", "price/lb")),
		}
		if parsed, ok := parseImportDate(firstCell(cells, "date")); ok {
			row.RunDate = parsed
		}
		rows = append(rows, row)
		if len(rows) >= importRowLimit {
			break
		}
	}
	return rows, filtered, nil
}

func isRepeatedHeader(cells map[string]string) bool {
	for _, value := range cells {
		switch strings.ToLower(value) {
		case "date", "bio in house", "lbs ran":
			return true
		}
	}
	return false
}

func firstCell(cells map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := cells[key]; v != "" {
			return v
		}
	}
	return ""
}

var importDateFormats = []string{"1/2", "1-2", "1/2/2006", "1-2-2006", "1/2/06", "2006-01-02"}

func parseImportDate(s string) (time.Time, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "/")
	if s == "" {
		return time.Time{}, false
	}
	for _, format := range importDateFormats {
		parsed, err := time.Parse(format, s)
		if err != nil {
			continue
		}
		// Year-less sheet columns parse as year zero.
		if parsed.Year() == 0 {
			parsed = parsed.AddDate(2025, 0, 0)
		}
		return parsed, true
	}
	return time.Time{}, false
}

// parseImportFloat strips sheet formatting. Zero means "not recorded" in the
// source data, so it normalizes to nil like every other unparseable cell.
func parseImportFloat(s string) *float64 {
	s = strings.TrimSpace(strings.NewReplacer(",", "", "$", "", "%", "").Replace(s))
	if s == "" {
		return nil
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value == 0 {
		return nil
	}
	return &value
}

// Import loads historical runs. Rows are deduplicated against runs already
// linked to the same date, strain and supplier, so re-importing the same
// sheet is a no-op. Each row commits independently; a bad row never rolls
// back its neighbors.
func (s *importService) Import(rows []ImportRow, actorID *int64) (*ImportResult, error) {
	result := &ImportResult{}
	for i, row := range rows {
		if row.RunDate.IsZero() || row.StrainName == "" || row.Source == "" {
			result.Skipped++
			continue
		}

		supplier, err := s.supplierRepo.FindByName(row.Source)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		if supplier != nil {
			exists, err := s.runRepo.ExistsForDateStrainSupplier(row.RunDate, row.StrainName, supplier.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				result.Skipped++
				continue
			}
		}

		if err := s.importRow(row, supplier); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ImportFailure{Row: i + 1, Reason: err.Error()})
			continue
		}
		result.Imported++
	}

	if result.Imported > 0 {
		// Historical lots carry no prices until a purchase is back-filled,
		// but costs still need the new runs in the period aggregates.
		if _, err := s.runSvc.RecalculateAll(actorID); err != nil {
			return nil, err
		}
	}

	details := fmt.Sprintf(`{"imported":%d,"skipped":%d,"failed":%d}`,
		result.Imported, result.Skipped, result.Failed)
	event := &models.AuditEvent{
		UserID:     actorID,
		Action:     models.AuditActionCreate,
		EntityType: "import",
		Details:    &details,
	}
	if err := s.auditRepo.Record(s.db, event); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *importService) importRow(row ImportRow, supplier *models.Supplier) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if supplier == nil {
		supplier = &models.Supplier{Name: row.Source, IsActive: true}
		supplierID, err := s.supplierRepo.Create(tx, supplier)
		if err != nil {
			return err
		}
		supplier.ID = supplierID
	}

	purchase, err := s.purchaseRepo.GetLatestForSupplier(supplier.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		purchase = &models.Purchase{
			SupplierID:   supplier.ID,
			PurchaseDate: row.RunDate,
			Status:       models.PurchaseStatusComplete,
			PricePerLb:   row.PricePerLb,
		}
		purchaseID, err := s.purchaseRepo.Create(tx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = purchaseID
	} else if err != nil {
		return err
	}

	lot, err := s.lotRepo.FindByPurchaseAndStrain(purchase.ID, row.StrainName)
	if errors.Is(err, repositories.ErrNotFound) {
		lot = &models.Lot{PurchaseID: purchase.ID, StrainName: row.StrainName}
		lotID, err := s.lotRepo.Create(tx, lot)
		if err != nil {
			return err
		}
		lot.ID = lotID
	} else if err != nil {
		return err
	}

	run := &models.Run{
		RunDate:          row.RunDate,
		ReactorNumber:    1,
		RunType:          models.RunTypeStandard,
		BioInHouseLbs:    row.BioInHouseLbs,
		BioInReactorLbs:  row.LbsRan,
		GramsRan:         row.GramsRan,
		ButaneInHouseLbs: row.ButaneLbs,
		SolventRatio:     row.SolventRatio,
		WetHteG:          row.WetHteG,
		WetThcaG:         row.WetThcaG,
		DryHteG:          row.DryHteG,
		DryThcaG:         row.DryThcaG,
	}
	ApplyYield(run, CalculateYield(run))
	if run.GramsRan == nil && row.GramsRan != nil {
		run.GramsRan = row.GramsRan
	}
	runID, err := s.runRepo.Create(tx, run)
	if err != nil {
		return err
	}
	run.ID = runID

	// Historical material was consumed before the lot existed, so the lot
	// grows by the run's weight and remaining stays untouched.
	if row.LbsRan != nil && *row.LbsRan > 0 {
		if _, err := s.runRepo.CreateInput(tx, &models.RunInput{
			RunID:     run.ID,
			LotID:     lot.ID,
			WeightLbs: *row.LbsRan,
		}); err != nil {
			return err
		}
		lot.WeightLbs += *row.LbsRan
		if err := s.lotRepo.Update(tx, lot); err != nil {
			return err
		}
	}

	return tx.Commit()
}
