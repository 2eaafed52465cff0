package models

import "time"

// Setting keys consumed by the calculation engines. Every key has a seeded
// default so typed getters never miss.
const (
	SettingPotencyRate            = "potency_rate"
	SettingNumReactors            = "num_reactors"
	SettingReactorCapacity        = "reactor_capacity"
	SettingRunsPerDay             = "runs_per_day"
	SettingOperatingDays          = "operating_days"
	SettingDailyThroughputTarget  = "daily_throughput_target"
	SettingWeeklyThroughputTarget = "weekly_throughput_target"
	SettingExcludeUnpricedBatches = "exclude_unpriced_batches"
	SettingCostAllocationMethod   = "cost_allocation_method"
	SettingCostAllocationThcaPct  = "cost_allocation_thca_pct"
)

// Cost allocation methods for splitting a run's total cost between THCA and
// HTE output.
const (
	AllocationPerGramUniform = "per_gram_uniform"
	AllocationSplit5050      = "split_50_50"
	AllocationCustomSplit    = "custom_split"
)

// SystemSetting is a key-value pair for application configuration.
type SystemSetting struct {
	ID           int64     `json:"id" db:"id"`
	SettingKey   string    `json:"setting_key" db:"setting_key" binding:"required"`
	SettingValue *string   `json:"setting_value,omitempty" db:"setting_value"`
	Description  *string   `json:"description,omitempty" db:"description"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// KPI directions.
const (
	KpiHigherIsBetter = "higher_is_better"
	KpiLowerIsBetter  = "lower_is_better"
)

// KpiTarget holds a dashboard KPI target with its color thresholds.
type KpiTarget struct {
	ID              int64      `json:"id" db:"id"`
	KpiName         string     `json:"kpi_name" db:"kpi_name" binding:"required"`
	DisplayName     string     `json:"display_name" db:"display_name" binding:"required"`
	TargetValue     float64    `json:"target_value" db:"target_value"`
	GreenThreshold  float64    `json:"green_threshold" db:"green_threshold"`
	YellowThreshold float64    `json:"yellow_threshold" db:"yellow_threshold"`
	Direction       string     `json:"direction" db:"direction"`
	Unit            *string    `json:"unit,omitempty" db:"unit"`
	EffectiveDate   *time.Time `json:"effective_date,omitempty" db:"effective_date"`
	UpdatedBy       *int64     `json:"updated_by,omitempty" db:"updated_by"`
}

// Evaluate returns the KPI color for an actual value: "green", "yellow" or
// "red" against the thresholds, or "gray" when no value is available.
func (k *KpiTarget) Evaluate(actual *float64) string {
	if actual == nil {
		return "gray"
	}
	if k.Direction == KpiHigherIsBetter {
		switch {
		case *actual >= k.GreenThreshold:
			return "green"
		case *actual >= k.YellowThreshold:
			return "yellow"
		default:
			return "red"
		}
	}
	switch {
	case *actual <= k.GreenThreshold:
		return "green"
	case *actual <= k.YellowThreshold:
		return "yellow"
	default:
		return "red"
	}
}
