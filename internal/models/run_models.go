package models

import "time"

// Run types.
const (
	RunTypeStandard = "standard"
	RunTypeKief     = "kief"
	RunTypeLD       = "ld"
)

// GramsPerLb converts reactor pounds into grams ran.
const GramsPerLb = 454.0

// Run represents a single extraction run. Yield and cost-per-gram fields are
// derived; nil means the figure is undefined for this run (e.g. no reactor
// weight recorded), never zero.
type Run struct {
	ID                  int64      `json:"id" db:"id"`
	RunDate             time.Time  `json:"run_date" db:"run_date"`
	ReactorNumber       int        `json:"reactor_number" db:"reactor_number" binding:"required"`
	IsRollover          bool       `json:"is_rollover" db:"is_rollover"`
	RunType             string     `json:"run_type" db:"run_type"`
	BioInHouseLbs       *float64   `json:"bio_in_house_lbs,omitempty" db:"bio_in_house_lbs"`
	BioInReactorLbs     *float64   `json:"bio_in_reactor_lbs,omitempty" db:"bio_in_reactor_lbs"`
	GramsRan            *float64   `json:"grams_ran,omitempty" db:"grams_ran"`
	ButaneInHouseLbs    *float64   `json:"butane_in_house_lbs,omitempty" db:"butane_in_house_lbs"`
	SolventRatio        *float64   `json:"solvent_ratio,omitempty" db:"solvent_ratio"`
	SystemTemp          *float64   `json:"system_temp,omitempty" db:"system_temp"`
	WetHteG             *float64   `json:"wet_hte_g,omitempty" db:"wet_hte_g"`
	WetThcaG            *float64   `json:"wet_thca_g,omitempty" db:"wet_thca_g"`
	DryHteG             *float64   `json:"dry_hte_g,omitempty" db:"dry_hte_g"`
	DryThcaG            *float64   `json:"dry_thca_g,omitempty" db:"dry_thca_g"`
	OverallYieldPct     *float64   `json:"overall_yield_pct,omitempty" db:"overall_yield_pct"`
	ThcaYieldPct        *float64   `json:"thca_yield_pct,omitempty" db:"thca_yield_pct"`
	HteYieldPct         *float64   `json:"hte_yield_pct,omitempty" db:"hte_yield_pct"`
	CostPerGramCombined *float64   `json:"cost_per_gram_combined,omitempty" db:"cost_per_gram_combined"`
	CostPerGramThca     *float64   `json:"cost_per_gram_thca,omitempty" db:"cost_per_gram_thca"`
	CostPerGramHte      *float64   `json:"cost_per_gram_hte,omitempty" db:"cost_per_gram_hte"`
	DecarbSampleDone    bool       `json:"decarb_sample_done" db:"decarb_sample_done"`
	FuelConsumption     *float64   `json:"fuel_consumption,omitempty" db:"fuel_consumption"`
	Notes               *string    `json:"notes,omitempty" db:"notes"`
	CreatedBy           *int64     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
	Inputs              []RunInput `json:"inputs,omitempty"`
}

// TotalDryGrams is the run's combined dry output.
func (r *Run) TotalDryGrams() float64 {
	var total float64
	if r.DryHteG != nil {
		total += *r.DryHteG
	}
	if r.DryThcaG != nil {
		total += *r.DryThcaG
	}
	return total
}

// RunInput records a lot being partially or fully consumed by a run.
type RunInput struct {
	ID           int64    `json:"id" db:"id"`
	RunID        int64    `json:"run_id" db:"run_id"`
	LotID        int64    `json:"lot_id" db:"lot_id" binding:"required"`
	WeightLbs    float64  `json:"weight_lbs" db:"weight_lbs" binding:"required,gt=0"`
	StrainName   *string  `json:"strain_name,omitempty"`   // From join with purchase_lots
	PricePerLb   *float64 `json:"price_per_lb,omitempty"`  // From join via purchases
	PurchaseID   int64    `json:"purchase_id,omitempty"`   // From join with purchase_lots
	SupplierID   int64    `json:"supplier_id,omitempty"`   // From join via purchases
	SupplierName *string  `json:"supplier_name,omitempty"` // From join with suppliers
}
