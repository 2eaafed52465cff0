package services

import (
	"testing"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

type analyticsFixture struct {
	svc          AnalyticsService
	runRepo      *mockRunRepo
	lotRepo      *mockLotRepo
	purchaseRepo *mockPurchaseRepo
	supplierRepo *mockSupplierRepo
	kpiRepo      *mockKpiRepo
	settingRepo  *mockSettingRepo
}

func newAnalyticsFixture(t *testing.T) *analyticsFixture {
	t.Helper()
	f := &analyticsFixture{
		runRepo:      newMockRunRepo(),
		lotRepo:      newMockLotRepo(),
		purchaseRepo: newMockPurchaseRepo(),
		supplierRepo: newMockSupplierRepo(),
		kpiRepo:      newMockKpiRepo(),
		settingRepo:  newMockSettingRepo(),
	}
	settingsSvc := NewSettingsService(f.settingRepo, f.kpiRepo, newMockAuditRepo(), newTestDB(t))
	f.svc = NewAnalyticsService(f.runRepo, f.lotRepo, f.purchaseRepo, f.supplierRepo, f.kpiRepo, settingsSvc)
	return f
}

// seedRun stores a run with precomputed yields and the given joined inputs.
func (f *analyticsFixture) seedRun(daysAgo int, yieldPct float64, inputs []models.RunInput) *models.Run {
	runDate := time.Now().Truncate(24*time.Hour).AddDate(0, 0, -daysAgo)
	run := f.runRepo.add(models.Run{
		RunDate:         runDate,
		ReactorNumber:   1,
		RunType:         models.RunTypeStandard,
		BioInReactorLbs: fptr(2),
		DryThcaG:        fptr(100),
		DryHteG:         fptr(100),
		OverallYieldPct: fptr(yieldPct),
		ThcaYieldPct:    fptr(yieldPct / 2),
		HteYieldPct:     fptr(yieldPct / 2),
	})
	for i := range inputs {
		inputs[i].RunID = run.ID
		f.runRepo.CreateInput(nil, &inputs[i])
	}
	return run
}

func linkedInput(strain, supplier string, supplierID int64, price *float64) models.RunInput {
	return models.RunInput{
		LotID:        1,
		WeightLbs:    2,
		StrainName:   &strain,
		SupplierName: &supplier,
		SupplierID:   supplierID,
		PurchaseID:   1,
		PricePerLb:   price,
	}
}

func TestIncludeInAggregates(t *testing.T) {
	tests := []struct {
		classification  string
		excludeUnpriced bool
		want            bool
	}{
		{models.PricingUnlinked, false, false},
		{models.PricingUnlinked, true, false},
		{models.PricingUnpriced, false, true},
		{models.PricingUnpriced, true, false},
		{models.PricingPartial, false, true},
		{models.PricingPartial, true, true}, // partially priced data still counts
		{models.PricingPriced, false, true},
		{models.PricingPriced, true, true},
	}
	for _, tt := range tests {
		if got := includeInAggregates(tt.classification, tt.excludeUnpriced); got != tt.want {
			t.Errorf("includeInAggregates(%q, %v) = %v, want %v", tt.classification, tt.excludeUnpriced, got, tt.want)
		}
	}
}

func TestPeriodStart(t *testing.T) {
	now := day("2025-06-15")
	if got := periodStart(PeriodToday, now); !got.Equal(day("2025-06-15")) {
		t.Errorf("today start = %v", got)
	}
	if got := periodStart(PeriodWeek, now); !got.Equal(day("2025-06-08")) {
		t.Errorf("week start = %v", got)
	}
	if got := periodStart("30", now); !got.Equal(day("2025-05-16")) {
		t.Errorf("month start = %v", got)
	}
	if got := periodStart(PeriodAllTime, now); !got.Equal(day("2020-01-01")) {
		t.Errorf("all-time floor = %v", got)
	}
	// Unknown selectors fall back to the 30-day window.
	if got := periodStart("whatever", now); !got.Equal(day("2025-05-16")) {
		t.Errorf("fallback start = %v", got)
	}
}

func TestGetDashboardKpiColors(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.kpiRepo.add(models.KpiTarget{
		KpiName: "overall_yield_pct", DisplayName: "Overall Yield",
		TargetValue: 12, GreenThreshold: 12, YellowThreshold: 10,
		Direction: models.KpiHigherIsBetter, Unit: sptr("%"),
	})
	f.kpiRepo.add(models.KpiTarget{
		KpiName: "cost_per_gram_combined", DisplayName: "Cost per Gram",
		TargetValue: 5, GreenThreshold: 4, YellowThreshold: 6,
		Direction: models.KpiLowerIsBetter, Unit: sptr("$"),
	})

	f.seedRun(2, 14, []models.RunInput{linkedInput("Blue Dream", "Green Valley", 1, fptr(400))})
	f.seedRun(3, 10, []models.RunInput{linkedInput("Blue Dream", "Green Valley", 1, fptr(400))})

	summary, err := f.svc.GetDashboard(PeriodMonth)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	if summary.TotalRuns != 2 {
		t.Fatalf("total runs = %d, want 2", summary.TotalRuns)
	}
	if !almostEqual(summary.TotalLbsRan, 4) {
		t.Fatalf("total lbs = %v, want 4", summary.TotalLbsRan)
	}
	if !almostEqual(summary.TotalDryOutput, 400) {
		t.Fatalf("total dry output = %v, want 400", summary.TotalDryOutput)
	}

	cards := map[string]models.KpiCard{}
	for _, card := range summary.KpiCards {
		cards[card.Name] = card
	}
	yield := cards["Overall Yield"]
	if yield.Actual == nil || !almostEqual(*yield.Actual, 12) {
		t.Fatalf("yield actual = %v, want mean 12", yield.Actual)
	}
	if yield.Color != "green" {
		t.Fatalf("yield color = %q, want green", yield.Color)
	}
	// No cost figures on the seeded runs, so the card goes gray.
	cost := cards["Cost per Gram"]
	if cost.Actual != nil || cost.Color != "gray" {
		t.Fatalf("cost card = %+v, want gray with no actual", cost)
	}
}

func TestGetDashboardExclusionFilter(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.settingRepo.values[models.SettingExcludeUnpricedBatches] = "1"

	f.seedRun(1, 12, []models.RunInput{linkedInput("A", "S", 1, fptr(400))}) // priced
	f.seedRun(2, 12, []models.RunInput{linkedInput("B", "S", 1, nil)})       // unpriced
	f.seedRun(3, 12, nil)                                                    // unlinked
	f.seedRun(4, 12, []models.RunInput{                                      // partial
		linkedInput("C", "S", 1, fptr(400)),
		linkedInput("D", "S", 1, nil),
	})

	summary, err := f.svc.GetDashboard(PeriodMonth)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	if summary.TotalRuns != 2 {
		t.Fatalf("total runs = %d, want 2 (priced + partial)", summary.TotalRuns)
	}
	if !summary.ExcludeUnpriced {
		t.Fatal("summary should report the active exclusion flag")
	}
}

func TestGetDashboardOnHandAndDaysOfSupply(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.lotRepo.add(models.Lot{PurchaseID: 1, StrainName: "A", WeightLbs: 300, RemainingWeightLbs: 250})
	f.lotRepo.add(models.Lot{PurchaseID: 2, StrainName: "B", WeightLbs: 100, RemainingWeightLbs: 0})
	f.seedRun(1, 12, []models.RunInput{linkedInput("A", "S", 1, fptr(400))})
	f.kpiRepo.add(models.KpiTarget{
		KpiName: "days_of_supply", DisplayName: "Days of Supply",
		TargetValue: 3, GreenThreshold: 3, YellowThreshold: 1,
		Direction: models.KpiHigherIsBetter,
	})

	summary, err := f.svc.GetDashboard(PeriodWeek)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	if !almostEqual(summary.OnHandLbs, 250) {
		t.Fatalf("on hand = %v, want 250", summary.OnHandLbs)
	}
	for _, card := range summary.KpiCards {
		if card.Name != "Days of Supply" {
			continue
		}
		// 250 lbs on hand at the default 500 lbs/day target.
		if card.Actual == nil || !almostEqual(*card.Actual, 0.5) {
			t.Fatalf("days of supply = %v, want 0.5", card.Actual)
		}
	}
}

func TestCostPerPotencyPointUsesTouchedPurchases(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.purchaseRepo.add(models.Purchase{
		SupplierID: 1, PurchaseDate: day("2025-01-01"),
		Status:     models.PurchaseStatusComplete,
		PricePerLb: fptr(300), StatedPotencyPct: fptr(20), TestedPotencyPct: fptr(25),
	})
	f.kpiRepo.add(models.KpiTarget{
		KpiName: "cost_per_potency_point", DisplayName: "Cost per Potency Point",
		TargetValue: 1.50, GreenThreshold: 1.35, YellowThreshold: 1.65,
		Direction: models.KpiLowerIsBetter,
	})
	f.seedRun(1, 12, []models.RunInput{linkedInput("A", "S", 1, fptr(300))})

	summary, err := f.svc.GetDashboard(PeriodMonth)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	for _, card := range summary.KpiCards {
		if card.Name != "Cost per Potency Point" {
			continue
		}
		// Tested potency wins over stated: 300 / 25.
		if card.Actual == nil || !almostEqual(*card.Actual, 12) {
			t.Fatalf("cost per potency point = %v, want 12", card.Actual)
		}
		if card.Color != "red" {
			t.Fatalf("color = %q, want red", card.Color)
		}
	}
}

func TestSupplierPerformanceSkipsRollovers(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.supplierRepo.add(models.Supplier{Name: "Green Valley", IsActive: true})

	f.seedRun(5, 14, []models.RunInput{linkedInput("A", "Green Valley", 1, fptr(400))})
	rollover := f.seedRun(4, 99, []models.RunInput{linkedInput("A", "Green Valley", 1, fptr(400))})
	stored := f.runRepo.runs[rollover.ID]
	stored.IsRollover = true

	perf, err := f.svc.GetSupplierPerformance()
	if err != nil {
		t.Fatalf("GetSupplierPerformance: %v", err)
	}
	if len(perf) != 1 {
		t.Fatalf("suppliers = %d, want 1", len(perf))
	}
	if perf[0].AllTime.RunCount != 1 {
		t.Fatalf("run count = %d, want 1 (rollover excluded)", perf[0].AllTime.RunCount)
	}
	if perf[0].AllTime.AvgYieldPct == nil || !almostEqual(*perf[0].AllTime.AvgYieldPct, 14) {
		t.Fatalf("avg yield = %v, want 14", perf[0].AllTime.AvgYieldPct)
	}
	if perf[0].LastBatch.RunDate == nil {
		t.Fatal("expected last batch stats")
	}
}

func TestStrainPerformanceSortsByYieldDescending(t *testing.T) {
	f := newAnalyticsFixture(t)

	f.seedRun(3, 10, []models.RunInput{linkedInput("OG Kush", "S", 1, fptr(400))})
	f.seedRun(2, 20, []models.RunInput{linkedInput("Blue Dream", "S", 1, fptr(400))})
	// Yield unknown sorts last.
	noYield := f.seedRun(1, 0, []models.RunInput{linkedInput("Mystery", "S", 1, fptr(400))})
	f.runRepo.runs[noYield.ID].OverallYieldPct = nil

	result, err := f.svc.GetStrainPerformance(false)
	if err != nil {
		t.Fatalf("GetStrainPerformance: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("strains = %d, want 3", len(result))
	}
	order := []string{result[0].StrainName, result[1].StrainName, result[2].StrainName}
	want := []string{"Blue Dream", "OG Kush", "Mystery"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestStrainPerformanceNinetyDayWindow(t *testing.T) {
	f := newAnalyticsFixture(t)

	f.seedRun(100, 15, []models.RunInput{linkedInput("Old Strain", "S", 1, fptr(400))})
	f.seedRun(5, 15, []models.RunInput{linkedInput("Fresh Strain", "S", 1, fptr(400))})

	result, err := f.svc.GetStrainPerformance(true)
	if err != nil {
		t.Fatalf("GetStrainPerformance: %v", err)
	}
	if len(result) != 1 || result[0].StrainName != "Fresh Strain" {
		t.Fatalf("result = %+v, want only Fresh Strain", result)
	}
}
