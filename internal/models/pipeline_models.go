package models

import "time"

// Pipeline stages, in declared order. Backward transitions are allowed
// (e.g. committed back to testing when a lab result falls through).
const (
	PipelineStageDeclared  = "declared"
	PipelineStageTesting   = "testing"
	PipelineStageCommitted = "committed"
	PipelineStageDelivered = "delivered"
	PipelineStageCancelled = "cancelled"
)

// ValidPipelineStages lists every accepted pipeline stage value.
var ValidPipelineStages = []string{
	PipelineStageDeclared, PipelineStageTesting, PipelineStageCommitted,
	PipelineStageDelivered, PipelineStageCancelled,
}

// Testing metadata enums.
const (
	TestingTimingBeforeDelivery = "before_delivery"
	TestingTimingAfterDelivery  = "after_delivery"

	TestingStatusPending   = "pending"
	TestingStatusCompleted = "completed"
	TestingStatusNotNeeded = "not_needed"
)

// PipelineAvailability tracks declared biomass from a supplier before it
// becomes a purchase. PurchaseID is set once the record reaches the
// committed/delivered stage and a linked purchase is created.
type PipelineAvailability struct {
	ID                    int64      `json:"id" db:"id"`
	SupplierID            int64      `json:"supplier_id" db:"supplier_id" binding:"required"`
	AvailabilityDate      time.Time  `json:"availability_date" db:"availability_date"`
	StrainName            *string    `json:"strain_name,omitempty" db:"strain_name"`
	Stage                 string     `json:"stage" db:"stage"`
	DeclaredWeightLbs     float64    `json:"declared_weight_lbs" db:"declared_weight_lbs"`
	DeclaredPricePerLb    *float64   `json:"declared_price_per_lb,omitempty" db:"declared_price_per_lb"`
	EstimatedPotencyPct   *float64   `json:"estimated_potency_pct,omitempty" db:"estimated_potency_pct"`
	TestingTiming         string     `json:"testing_timing" db:"testing_timing"`
	TestingStatus         string     `json:"testing_status" db:"testing_status"`
	TestingDate           *time.Time `json:"testing_date,omitempty" db:"testing_date"`
	TestedPotencyPct      *float64   `json:"tested_potency_pct,omitempty" db:"tested_potency_pct"`
	CommittedOn           *time.Time `json:"committed_on,omitempty" db:"committed_on"`
	CommittedDeliveryDate *time.Time `json:"committed_delivery_date,omitempty" db:"committed_delivery_date"`
	CommittedWeightLbs    *float64   `json:"committed_weight_lbs,omitempty" db:"committed_weight_lbs"`
	CommittedPricePerLb   *float64   `json:"committed_price_per_lb,omitempty" db:"committed_price_per_lb"`
	PurchaseID            *int64     `json:"purchase_id,omitempty" db:"purchase_id"`
	Notes                 *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
	SupplierName          *string    `json:"supplier_name,omitempty"` // From join with suppliers
}

// CommittedOrDeclaredWeight prefers the committed weight when present.
func (b *PipelineAvailability) CommittedOrDeclaredWeight() float64 {
	if b.CommittedWeightLbs != nil && *b.CommittedWeightLbs > 0 {
		return *b.CommittedWeightLbs
	}
	return b.DeclaredWeightLbs
}

// CommittedOrDeclaredPrice prefers the committed price when present.
func (b *PipelineAvailability) CommittedOrDeclaredPrice() *float64 {
	if b.CommittedPricePerLb != nil {
		return b.CommittedPricePerLb
	}
	return b.DeclaredPricePerLb
}

// CommittedOrAvailabilityDate prefers the commitment date when present.
func (b *PipelineAvailability) CommittedOrAvailabilityDate() time.Time {
	if b.CommittedOn != nil {
		return *b.CommittedOn
	}
	return b.AvailabilityDate
}
