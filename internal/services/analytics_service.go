package services

import (
	"sort"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

// Dashboard period selectors.
const (
	PeriodToday     = "today"
	PeriodWeek      = "7"
	PeriodMonth     = "30"
	PeriodQuarter   = "90"
	PeriodAllTime   = "all"
	allTimeFloor    = "2020-01-01"
	ninetyDayWindow = 90
)

// --- AnalyticsService Interface ---
type AnalyticsService interface {
	GetDashboard(period string) (*models.DashboardSummary, error)
	GetSupplierPerformance() ([]models.SupplierPerformance, error)
	GetStrainPerformance(lastNinetyDays bool) ([]models.StrainPerformance, error)
}

type analyticsService struct {
	runRepo      repositories.RunRepository
	lotRepo      repositories.LotRepository
	purchaseRepo repositories.PurchaseRepository
	supplierRepo repositories.SupplierRepository
	kpiRepo      repositories.KpiTargetRepository
	settingsSvc  SettingsService
}

// NewAnalyticsService creates a new instance of AnalyticsService.
func NewAnalyticsService(runRepo repositories.RunRepository, lotRepo repositories.LotRepository, purchaseRepo repositories.PurchaseRepository, supplierRepo repositories.SupplierRepository, kpiRepo repositories.KpiTargetRepository, settingsSvc SettingsService) AnalyticsService {
	return &analyticsService{
		runRepo:      runRepo,
		lotRepo:      lotRepo,
		purchaseRepo: purchaseRepo,
		supplierRepo: supplierRepo,
		kpiRepo:      kpiRepo,
		settingsSvc:  settingsSvc,
	}
}

func periodStart(period string, now time.Time) time.Time {
	today := now.Truncate(24 * time.Hour)
	switch period {
	case PeriodToday:
		return today
	case PeriodWeek:
		return today.AddDate(0, 0, -7)
	case PeriodQuarter:
		return today.AddDate(0, 0, -ninetyDayWindow)
	case PeriodAllTime:
		floor, _ := time.Parse("2006-01-02", allTimeFloor)
		return floor
	default:
		return today.AddDate(0, 0, -30)
	}
}

// includeInAggregates applies the data-quality exclusion filter. Partial
// runs stay in; only unlinked and unpriced are dropped when the setting is
// on. Unlinked runs are always dropped.
func includeInAggregates(classification string, excludeUnpriced bool) bool {
	if classification == models.PricingUnlinked {
		return false
	}
	if excludeUnpriced && classification == models.PricingUnpriced {
		return false
	}
	return true
}

// mean of the non-nil values; nil when none.
func meanPtr(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	return &mean
}

func collect(runs []models.Run, pick func(*models.Run) *float64) []float64 {
	var values []float64
	for i := range runs {
		if v := pick(&runs[i]); v != nil {
			values = append(values, *v)
		}
	}
	return values
}

func (s *analyticsService) loadRunsWithInputs() ([]models.Run, error) {
	runs, err := s.runRepo.GetAllOrdered()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(runs))
	for i := range runs {
		ids[i] = runs[i].ID
	}
	inputsByRun, err := s.runRepo.GetInputsForRuns(ids)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].Inputs = inputsByRun[runs[i].ID]
	}
	return runs, nil
}

func (s *analyticsService) onHandLbs() (float64, error) {
	lots, err := s.lotRepo.GetOnHand(models.OnHandPurchaseStatuses)
	if err != nil {
		return 0, err
	}
	var total float64
	for i := range lots {
		total += lots[i].RemainingWeightLbs
	}
	return total, nil
}

func (s *analyticsService) GetDashboard(period string) (*models.DashboardSummary, error) {
	excludeUnpriced, err := s.settingsSvc.GetBool(models.SettingExcludeUnpricedBatches)
	if err != nil {
		return nil, err
	}
	allRuns, err := s.loadRunsWithInputs()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	start := periodStart(period, now)
	var runs []models.Run
	for i := range allRuns {
		if allRuns[i].RunDate.Before(start) {
			continue
		}
		if excludeUnpriced && !includeInAggregates(ClassifyRunPricing(allRuns[i].Inputs), true) {
			continue
		}
		runs = append(runs, allRuns[i])
	}

	onHand, err := s.onHandLbs()
	if err != nil {
		return nil, err
	}

	summary := &models.DashboardSummary{
		Period:          period,
		TotalRuns:       len(runs),
		OnHandLbs:       onHand,
		ExcludeUnpriced: excludeUnpriced,
	}
	var totalLbs float64
	for i := range runs {
		if runs[i].BioInReactorLbs != nil {
			totalLbs += *runs[i].BioInReactorLbs
		}
		summary.TotalDryOutput += runs[i].TotalDryGrams()
	}
	summary.TotalLbsRan = totalLbs

	actuals := map[string]*float64{
		"overall_yield_pct":      meanPtr(collect(runs, func(r *models.Run) *float64 { return r.OverallYieldPct })),
		"thca_yield_pct":         meanPtr(collect(runs, func(r *models.Run) *float64 { return r.ThcaYieldPct })),
		"hte_yield_pct":          meanPtr(collect(runs, func(r *models.Run) *float64 { return r.HteYieldPct })),
		"cost_per_gram_combined": meanPtr(collect(runs, func(r *models.Run) *float64 { return r.CostPerGramCombined })),
		"cost_per_gram_thca":     meanPtr(collect(runs, func(r *models.Run) *float64 { return r.CostPerGramThca })),
		"cost_per_gram_hte":      meanPtr(collect(runs, func(r *models.Run) *float64 { return r.CostPerGramHte })),
	}

	if len(runs) > 0 {
		daysInPeriod := now.Truncate(24*time.Hour).Sub(start).Hours() / 24
		if daysInPeriod < 1 {
			daysInPeriod = 1
		}
		weeks := daysInPeriod / 7
		if weeks < 1 {
			weeks = 1
		}
		weekly := totalLbs / weeks
		actuals["weekly_throughput"] = &weekly

		dailyTarget, err := s.settingsSvc.GetFloat(models.SettingDailyThroughputTarget, 500)
		if err != nil {
			return nil, err
		}
		if dailyTarget > 0 {
			days := onHand / dailyTarget
			actuals["days_of_supply"] = &days
		}

		potencyPoint, err := s.costPerPotencyPoint(runs)
		if err != nil {
			return nil, err
		}
		actuals["cost_per_potency_point"] = potencyPoint
	}

	targets, err := s.kpiRepo.GetAll()
	if err != nil {
		return nil, err
	}
	for i := range targets {
		target := &targets[i]
		actual := actuals[target.KpiName]
		unit := ""
		if target.Unit != nil {
			unit = *target.Unit
		}
		summary.KpiCards = append(summary.KpiCards, models.KpiCard{
			Name:      target.DisplayName,
			Target:    target.TargetValue,
			Actual:    actual,
			Color:     target.Evaluate(actual),
			Unit:      unit,
			Direction: target.Direction,
		})
	}
	return summary, nil
}

// costPerPotencyPoint averages price-per-potency-point over the purchases
// whose biomass was actually run in the window, not purchases created in it.
func (s *analyticsService) costPerPotencyPoint(runs []models.Run) (*float64, error) {
	seen := map[int64]bool{}
	var purchaseIDs []int64
	for i := range runs {
		for _, input := range runs[i].Inputs {
			if input.PurchaseID != 0 && !seen[input.PurchaseID] {
				seen[input.PurchaseID] = true
				purchaseIDs = append(purchaseIDs, input.PurchaseID)
			}
		}
	}
	if len(purchaseIDs) == 0 {
		return nil, nil
	}
	purchases, err := s.purchaseRepo.GetByIDs(purchaseIDs)
	if err != nil {
		return nil, err
	}
	var ratios []float64
	for i := range purchases {
		p := &purchases[i]
		potency := p.TestedPotencyPct
		if potency == nil {
			potency = p.StatedPotencyPct
		}
		if p.PricePerLb != nil && potency != nil && *potency > 0 {
			ratios = append(ratios, *p.PricePerLb / *potency)
		}
	}
	return meanPtr(ratios), nil
}

// supplierIDs returns the distinct suppliers a run's inputs trace to.
func supplierIDs(run *models.Run) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, input := range run.Inputs {
		if input.SupplierID != 0 && !seen[input.SupplierID] {
			seen[input.SupplierID] = true
			ids = append(ids, input.SupplierID)
		}
	}
	return ids
}

func buildStats(runs []models.Run) models.PerformanceStats {
	stats := models.PerformanceStats{RunCount: len(runs)}
	stats.AvgYieldPct = meanPtr(collect(runs, func(r *models.Run) *float64 { return r.OverallYieldPct }))
	stats.AvgThcaPct = meanPtr(collect(runs, func(r *models.Run) *float64 { return r.ThcaYieldPct }))
	stats.AvgHtePct = meanPtr(collect(runs, func(r *models.Run) *float64 { return r.HteYieldPct }))
	stats.AvgCostPerGram = meanPtr(collect(runs, func(r *models.Run) *float64 { return r.CostPerGramCombined }))
	for i := range runs {
		if runs[i].BioInReactorLbs != nil {
			stats.TotalLbs += *runs[i].BioInReactorLbs
		}
		if runs[i].DryThcaG != nil {
			stats.TotalThcaG += *runs[i].DryThcaG
		}
		if runs[i].DryHteG != nil {
			stats.TotalHteG += *runs[i].DryHteG
		}
	}
	return stats
}

func (s *analyticsService) GetSupplierPerformance() ([]models.SupplierPerformance, error) {
	excludeUnpriced, err := s.settingsSvc.GetBool(models.SettingExcludeUnpricedBatches)
	if err != nil {
		return nil, err
	}
	suppliers, err := s.supplierRepo.GetAll(false)
	if err != nil {
		return nil, err
	}
	allRuns, err := s.loadRunsWithInputs()
	if err != nil {
		return nil, err
	}

	// Rollover runs re-process material already counted; keep them out of
	// supplier attribution.
	runsBySupplier := map[int64][]models.Run{}
	for i := range allRuns {
		run := &allRuns[i]
		if run.IsRollover {
			continue
		}
		if !includeInAggregates(ClassifyRunPricing(run.Inputs), excludeUnpriced) {
			continue
		}
		for _, supplierID := range supplierIDs(run) {
			runsBySupplier[supplierID] = append(runsBySupplier[supplierID], *run)
		}
	}

	cutoff := time.Now().Truncate(24*time.Hour).AddDate(0, 0, -ninetyDayWindow)
	result := make([]models.SupplierPerformance, 0, len(suppliers))
	for _, supplier := range suppliers {
		runs := runsBySupplier[supplier.ID]
		var recent []models.Run
		for i := range runs {
			if !runs[i].RunDate.Before(cutoff) {
				recent = append(recent, runs[i])
			}
		}

		perf := models.SupplierPerformance{
			Supplier:  supplier,
			AllTime:   buildStats(runs),
			NinetyDay: buildStats(recent),
		}
		if len(runs) > 0 {
			last := runs[len(runs)-1]
			runDate := last.RunDate
			perf.LastBatch = models.LastBatchStats{
				RunDate:     &runDate,
				YieldPct:    last.OverallYieldPct,
				ThcaPct:     last.ThcaYieldPct,
				HtePct:      last.HteYieldPct,
				CostPerGram: last.CostPerGramCombined,
			}
		}
		result = append(result, perf)
	}
	return result, nil
}

func (s *analyticsService) GetStrainPerformance(lastNinetyDays bool) ([]models.StrainPerformance, error) {
	excludeUnpriced, err := s.settingsSvc.GetBool(models.SettingExcludeUnpricedBatches)
	if err != nil {
		return nil, err
	}
	allRuns, err := s.loadRunsWithInputs()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Truncate(24*time.Hour).AddDate(0, 0, -ninetyDayWindow)
	type strainKey struct {
		strain   string
		supplier string
	}
	runsByKey := map[strainKey][]models.Run{}
	for i := range allRuns {
		run := &allRuns[i]
		if run.IsRollover {
			continue
		}
		if lastNinetyDays && run.RunDate.Before(cutoff) {
			continue
		}
		if !includeInAggregates(ClassifyRunPricing(run.Inputs), excludeUnpriced) {
			continue
		}
		seen := map[strainKey]bool{}
		for _, input := range run.Inputs {
			if input.StrainName == nil || input.SupplierName == nil {
				continue
			}
			key := strainKey{strain: *input.StrainName, supplier: *input.SupplierName}
			if seen[key] {
				continue
			}
			seen[key] = true
			runsByKey[key] = append(runsByKey[key], *run)
		}
	}

	result := make([]models.StrainPerformance, 0, len(runsByKey))
	for key, runs := range runsByKey {
		result = append(result, models.StrainPerformance{
			StrainName:   key.strain,
			SupplierName: key.supplier,
			Stats:        buildStats(runs),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		yi, yj := result[i].Stats.AvgYieldPct, result[j].Stats.AvgYieldPct
		switch {
		case yi == nil && yj == nil:
			return result[i].StrainName < result[j].StrainName
		case yi == nil:
			return false
		case yj == nil:
			return true
		default:
			return *yi > *yj
		}
	})
	return result, nil
}
