package models

import "time"

// Purchase statuses. The purchase status set is a superset of the pipeline
// stages: the first five mirror pipeline stages, the rest are purchase-only
// logistics states.
const (
	PurchaseStatusDeclared   = "declared"
	PurchaseStatusInTesting  = "in_testing"
	PurchaseStatusCommitted  = "committed"
	PurchaseStatusOrdered    = "ordered"
	PurchaseStatusInTransit  = "in_transit"
	PurchaseStatusAvailable  = "available"
	PurchaseStatusDelivered  = "delivered"
	PurchaseStatusProcessing = "processing"
	PurchaseStatusComplete   = "complete"
	PurchaseStatusCancelled  = "cancelled"
)

// ValidPurchaseStatuses lists every accepted purchase status value.
var ValidPurchaseStatuses = []string{
	PurchaseStatusDeclared, PurchaseStatusInTesting, PurchaseStatusCommitted,
	PurchaseStatusOrdered, PurchaseStatusInTransit, PurchaseStatusAvailable,
	PurchaseStatusDelivered, PurchaseStatusProcessing, PurchaseStatusComplete,
	PurchaseStatusCancelled,
}

// OnHandPurchaseStatuses are the statuses under which a purchase's lots count
// as physically on hand for inventory and days-of-supply math.
var OnHandPurchaseStatuses = []string{
	PurchaseStatusDelivered, PurchaseStatusInTesting, PurchaseStatusAvailable,
	PurchaseStatusProcessing, PurchaseStatusComplete,
}

// InTransitPurchaseStatuses are the statuses of purchases that are committed
// but not yet arrived.
var InTransitPurchaseStatuses = []string{
	PurchaseStatusCommitted, PurchaseStatusOrdered, PurchaseStatusInTransit,
}

// Purchase represents a biomass purchase from a supplier. TotalCost and
// TrueUpAmount are derived on save; BatchID is unique across all purchases.
type Purchase struct {
	ID               int64      `json:"id" db:"id"`
	SupplierID       int64      `json:"supplier_id" db:"supplier_id" binding:"required"`
	PurchaseDate     time.Time  `json:"purchase_date" db:"purchase_date"`
	DeliveryDate     *time.Time `json:"delivery_date,omitempty" db:"delivery_date"`
	Status           string     `json:"status" db:"status"`
	StatedWeightLbs  float64    `json:"stated_weight_lbs" db:"stated_weight_lbs"`
	ActualWeightLbs  *float64   `json:"actual_weight_lbs,omitempty" db:"actual_weight_lbs"`
	StatedPotencyPct *float64   `json:"stated_potency_pct,omitempty" db:"stated_potency_pct"`
	TestedPotencyPct *float64   `json:"tested_potency_pct,omitempty" db:"tested_potency_pct"`
	PricePerLb       *float64   `json:"price_per_lb,omitempty" db:"price_per_lb"`
	TotalCost        *float64   `json:"total_cost,omitempty" db:"total_cost"`
	TrueUpAmount     *float64   `json:"true_up_amount,omitempty" db:"true_up_amount"`
	TrueUpStatus     *string    `json:"true_up_status,omitempty" db:"true_up_status"`
	BatchID          *string    `json:"batch_id,omitempty" db:"batch_id"`
	HarvestDate      *time.Time `json:"harvest_date,omitempty" db:"harvest_date"`
	CleanOrDirty     *string    `json:"clean_or_dirty,omitempty" db:"clean_or_dirty"`
	IndoorOutdoor    *string    `json:"indoor_outdoor,omitempty" db:"indoor_outdoor"`
	Notes            *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	SupplierName     *string    `json:"supplier_name,omitempty"` // From join with suppliers
	Lots             []Lot      `json:"lots,omitempty"`
}

// EffectiveWeightLbs prefers the scale weight over the supplier's stated one.
func (p *Purchase) EffectiveWeightLbs() float64 {
	if p.ActualWeightLbs != nil && *p.ActualWeightLbs > 0 {
		return *p.ActualWeightLbs
	}
	return p.StatedWeightLbs
}

// EffectiveDate is the date used for batch identifiers: delivery date when
// set, otherwise the purchase date.
func (p *Purchase) EffectiveDate() time.Time {
	if p.DeliveryDate != nil {
		return *p.DeliveryDate
	}
	return p.PurchaseDate
}

// Lot is a strain-specific inventory unit within a purchase. RemainingWeightLbs
// is depleted by run inputs and restored when runs are edited or deleted.
type Lot struct {
	ID                 int64    `json:"id" db:"id"`
	PurchaseID         int64    `json:"purchase_id" db:"purchase_id" binding:"required"`
	StrainName         string   `json:"strain_name" db:"strain_name" binding:"required"`
	WeightLbs          float64  `json:"weight_lbs" db:"weight_lbs"`
	RemainingWeightLbs float64  `json:"remaining_weight_lbs" db:"remaining_weight_lbs"`
	PotencyPct         *float64 `json:"potency_pct,omitempty" db:"potency_pct"`
	MicroPotTest       *string  `json:"micro_pot_test,omitempty" db:"micro_pot_test"`
	Milled             bool     `json:"milled" db:"milled"`
	Location           *string  `json:"location,omitempty" db:"location"`
	Notes              *string  `json:"notes,omitempty" db:"notes"`
	SupplierName       *string  `json:"supplier_name,omitempty"` // From join via purchases
	PricePerLb         *float64 `json:"price_per_lb,omitempty"`  // From join with purchases
}
