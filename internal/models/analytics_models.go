package models

import "time"

// Run pricing classifications. A run is classified by how many of its input
// lots trace back to a priced purchase.
const (
	PricingUnlinked = "unlinked" // no inputs at all
	PricingUnpriced = "unpriced" // inputs exist, none priced
	PricingPartial  = "partial"  // some inputs priced
	PricingPriced   = "priced"   // every input priced
)

// DashboardSummary is the aggregate view for a requested time window.
type DashboardSummary struct {
	Period          string    `json:"period"`
	TotalRuns       int       `json:"total_runs"`
	TotalLbsRan     float64   `json:"total_lbs_ran"`
	TotalDryOutput  float64   `json:"total_dry_output_g"`
	OnHandLbs       float64   `json:"on_hand_lbs"`
	ExcludeUnpriced bool      `json:"exclude_unpriced"`
	KpiCards        []KpiCard `json:"kpi_cards"`
}

// KpiCard pairs a KPI target with its computed actual and color.
type KpiCard struct {
	Name      string   `json:"name"`
	Target    float64  `json:"target"`
	Actual    *float64 `json:"actual,omitempty"`
	Color     string   `json:"color"`
	Unit      string   `json:"unit"`
	Direction string   `json:"direction"`
}

// PerformanceStats carries the mean yield/cost figures and summed weights for
// one aggregation bucket (a supplier, or a strain+supplier pair).
type PerformanceStats struct {
	RunCount       int      `json:"run_count"`
	AvgYieldPct    *float64 `json:"avg_yield_pct,omitempty"`
	AvgThcaPct     *float64 `json:"avg_thca_pct,omitempty"`
	AvgHtePct      *float64 `json:"avg_hte_pct,omitempty"`
	AvgCostPerGram *float64 `json:"avg_cost_per_gram,omitempty"`
	TotalLbs       float64  `json:"total_lbs"`
	TotalThcaG     float64  `json:"total_thca_g"`
	TotalHteG      float64  `json:"total_hte_g"`
}

// LastBatchStats reports the most recent single run for a supplier.
type LastBatchStats struct {
	RunDate     *time.Time `json:"run_date,omitempty"`
	YieldPct    *float64   `json:"yield_pct,omitempty"`
	ThcaPct     *float64   `json:"thca_pct,omitempty"`
	HtePct      *float64   `json:"hte_pct,omitempty"`
	CostPerGram *float64   `json:"cost_per_gram,omitempty"`
}

// SupplierPerformance aggregates run outcomes for one supplier across the
// standard windows.
type SupplierPerformance struct {
	Supplier  Supplier         `json:"supplier"`
	AllTime   PerformanceStats `json:"all_time"`
	NinetyDay PerformanceStats `json:"ninety_day"`
	LastBatch LastBatchStats   `json:"last_batch"`
}

// StrainPerformance aggregates run outcomes for one (strain, supplier) pair.
type StrainPerformance struct {
	StrainName   string           `json:"strain_name"`
	SupplierName string           `json:"supplier_name"`
	Stats        PerformanceStats `json:"stats"`
}
