package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

// Export entities.
const (
	ExportRuns      = "runs"
	ExportPurchases = "purchases"
	ExportInventory = "inventory"
	ExportPipeline  = "pipeline"
)

const exportPageSize = 100000

// --- ExportService Interface ---
type ExportService interface {
	WriteCSV(entity string, w io.Writer) error
}

type exportService struct {
	runRepo      repositories.RunRepository
	purchaseRepo repositories.PurchaseRepository
	lotRepo      repositories.LotRepository
	pipelineRepo repositories.PipelineRepository
}

// NewExportService creates a new instance of ExportService.
func NewExportService(runRepo repositories.RunRepository, purchaseRepo repositories.PurchaseRepository, lotRepo repositories.LotRepository, pipelineRepo repositories.PipelineRepository) ExportService {
	return &exportService{
		runRepo:      runRepo,
		purchaseRepo: purchaseRepo,
		lotRepo:      lotRepo,
		pipelineRepo: pipelineRepo,
	}
}

func (s *exportService) WriteCSV(entity string, w io.Writer) error {
	writer := csv.NewWriter(w)
	var err error
	switch entity {
	case ExportRuns:
		err = s.writeRuns(writer)
	case ExportPurchases:
		err = s.writePurchases(writer)
	case ExportInventory:
		err = s.writeInventory(writer)
	case ExportPipeline:
		err = s.writePipeline(writer)
	default:
		return validationErrorf("unknown export entity %q", entity)
	}
	if err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func csvFixed(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func csvDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func csvString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *exportService) writeRuns(w *csv.Writer) error {
	if err := w.Write([]string{"Date", "Reactor", "Rollover", "Source", "Lbs Ran", "Grams Ran",
		"Wet HTE", "Wet THCA", "Dry HTE", "Dry THCA", "Overall Yield %",
		"THCA Yield %", "HTE Yield %", "Cost/Gram", "Notes"}); err != nil {
		return err
	}
	runs, err := s.runRepo.GetAllOrdered()
	if err != nil {
		return err
	}
	ids := make([]int64, len(runs))
	for i := range runs {
		ids[i] = runs[i].ID
	}
	inputsByRun, err := s.runRepo.GetInputsForRuns(ids)
	if err != nil {
		return err
	}
	for i := len(runs) - 1; i >= 0; i-- {
		run := &runs[i]
		var sources []string
		for _, input := range inputsByRun[run.ID] {
			if input.StrainName != nil {
				sources = append(sources, *input.StrainName)
			}
		}
		if err := w.Write([]string{
			run.RunDate.Format("2006-01-02"),
			strconv.Itoa(run.ReactorNumber),
			strconv.FormatBool(run.IsRollover),
			strings.Join(sources, ", "),
			csvFloat(run.BioInReactorLbs),
			csvFloat(run.GramsRan),
			csvFloat(run.WetHteG),
			csvFloat(run.WetThcaG),
			csvFloat(run.DryHteG),
			csvFloat(run.DryThcaG),
			csvFixed(run.OverallYieldPct),
			csvFixed(run.ThcaYieldPct),
			csvFixed(run.HteYieldPct),
			csvFixed(run.CostPerGramCombined),
			csvString(run.Notes),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) writePurchases(w *csv.Writer) error {
	if err := w.Write([]string{"Date", "Batch ID", "Supplier", "Status", "Stated Lbs", "Actual Lbs",
		"Stated Potency", "Tested Potency", "Price/Lb", "Total Cost", "True-Up", "Strains"}); err != nil {
		return err
	}
	purchases, _, err := s.purchaseRepo.GetAll(nil, 1, exportPageSize)
	if err != nil {
		return err
	}
	lots, err := s.lotRepo.GetAll()
	if err != nil {
		return err
	}
	strainsByPurchase := map[int64][]string{}
	for i := range lots {
		strainsByPurchase[lots[i].PurchaseID] = append(strainsByPurchase[lots[i].PurchaseID], lots[i].StrainName)
	}
	for i := range purchases {
		p := &purchases[i]
		stated := p.StatedWeightLbs
		if err := w.Write([]string{
			p.PurchaseDate.Format("2006-01-02"),
			csvString(p.BatchID),
			csvString(p.SupplierName),
			p.Status,
			csvFloat(&stated),
			csvFloat(p.ActualWeightLbs),
			csvFloat(p.StatedPotencyPct),
			csvFloat(p.TestedPotencyPct),
			csvFloat(p.PricePerLb),
			csvFixed(p.TotalCost),
			csvFixed(p.TrueUpAmount),
			strings.Join(strainsByPurchase[p.ID], ", "),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) writeInventory(w *csv.Writer) error {
	if err := w.Write([]string{"Strain", "Supplier", "Weight (lbs)", "Remaining (lbs)",
		"Potency %", "Milled", "Location"}); err != nil {
		return err
	}
	lots, err := s.lotRepo.GetAvailable()
	if err != nil {
		return err
	}
	for i := range lots {
		lot := &lots[i]
		weight := lot.WeightLbs
		remaining := lot.RemainingWeightLbs
		if err := w.Write([]string{
			lot.StrainName,
			csvString(lot.SupplierName),
			csvFloat(&weight),
			csvFloat(&remaining),
			csvFloat(lot.PotencyPct),
			strconv.FormatBool(lot.Milled),
			csvString(lot.Location),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) writePipeline(w *csv.Writer) error {
	if err := w.Write([]string{
		"Stage", "Supplier", "Strain",
		"Availability Date", "Declared Lbs", "Declared $/lb", "Est Potency %",
		"Testing Timing", "Testing Status", "Testing Date", "Tested Potency %",
		"Committed On", "Delivery Date", "Committed Lbs", "Committed $/lb",
		"Purchase ID", "Notes",
	}); err != nil {
		return err
	}
	items, err := s.pipelineRepo.GetAll(nil)
	if err != nil {
		return err
	}
	for i := range items {
		b := &items[i]
		declared := b.DeclaredWeightLbs
		purchaseRef := ""
		if b.PurchaseID != nil {
			purchaseRef = strconv.FormatInt(*b.PurchaseID, 10)
		}
		if err := w.Write([]string{
			b.Stage,
			csvString(b.SupplierName),
			csvString(b.StrainName),
			b.AvailabilityDate.Format("2006-01-02"),
			csvFloat(&declared),
			csvFloat(b.DeclaredPricePerLb),
			csvFloat(b.EstimatedPotencyPct),
			b.TestingTiming,
			b.TestingStatus,
			csvDate(b.TestingDate),
			csvFloat(b.TestedPotencyPct),
			csvDate(b.CommittedOn),
			csvDate(b.CommittedDeliveryDate),
			csvFloat(b.CommittedWeightLbs),
			csvFloat(b.CommittedPricePerLb),
			purchaseRef,
			csvString(b.Notes),
		}); err != nil {
			return err
		}
	}
	return nil
}
