package models

import "time"

// Cost entry types.
const (
	CostTypeSolvent   = "solvent"
	CostTypePersonnel = "personnel"
	CostTypeOverhead  = "overhead"
)

// ValidCostTypes lists every accepted cost entry type.
var ValidCostTypes = []string{CostTypeSolvent, CostTypePersonnel, CostTypeOverhead}

// CostEntry is a time-windowed operational cost (solvent, personnel or
// overhead). The [StartDate, EndDate] window is inclusive on both ends; a
// run whose date falls inside the window absorbs a share of the entry.
type CostEntry struct {
	ID        int64     `json:"id" db:"id"`
	CostType  string    `json:"cost_type" db:"cost_type" binding:"required"`
	Name      string    `json:"name" db:"name" binding:"required"`
	UnitCost  *float64  `json:"unit_cost,omitempty" db:"unit_cost"`
	Unit      *string   `json:"unit,omitempty" db:"unit"`
	Quantity  *float64  `json:"quantity,omitempty" db:"quantity"`
	TotalCost float64   `json:"total_cost" db:"total_cost"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedBy *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Covers reports whether the entry's date window contains d. Comparison is
// by calendar day, inclusive on both ends.
func (e *CostEntry) Covers(d time.Time) bool {
	day := d.Truncate(24 * time.Hour)
	start := e.StartDate.Truncate(24 * time.Hour)
	end := e.EndDate.Truncate(24 * time.Hour)
	return !day.Before(start) && !day.After(end)
}
