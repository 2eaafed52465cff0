package services

import "github.com/benwaldman33/gold-drop-production-tracker/internal/models"

// CostingConfig is an explicit snapshot of the settings the cost engine
// reads. Services load it once per operation so a concurrent settings edit
// cannot split a single calculation across two configurations.
type CostingConfig struct {
	AllocationMethod string
	ThcaPct          float64 // custom_split share for THCA, 0..100
	PotencyRate      float64 // $ per potency point per lb, for pricing and true-up
	ExcludeUnpriced  bool
}

// CostFigures are the derived cost fields for a single run. Nil means
// undefined (zero dry output, or a product with no output under a split).
type CostFigures struct {
	BiomassCost         float64
	OpRate              float64
	CostPerGramCombined *float64
	CostPerGramThca     *float64
	CostPerGramHte      *float64
}

// CostPeriodIndex precomputes, for every cost entry, the total dry grams
// produced inside its date window. Built once per recalculation pass so
// per-run costing never rescans the run set.
type CostPeriodIndex struct {
	entries        []models.CostEntry
	periodDryGrams map[int64]float64
}

// NewCostPeriodIndex groups the runs under each entry's window.
func NewCostPeriodIndex(entries []models.CostEntry, allRuns []models.Run) *CostPeriodIndex {
	index := &CostPeriodIndex{
		entries:        entries,
		periodDryGrams: make(map[int64]float64, len(entries)),
	}
	for i := range entries {
		entry := &entries[i]
		var total float64
		for j := range allRuns {
			if entry.Covers(allRuns[j].RunDate) {
				total += allRuns[j].TotalDryGrams()
			}
		}
		index.periodDryGrams[entry.ID] = total
	}
	return index
}

// OpRate sums each covering entry's per-gram contribution for a run date.
// An entry with zero period output contributes nothing.
func (idx *CostPeriodIndex) OpRate(run *models.Run) float64 {
	var rate float64
	for i := range idx.entries {
		entry := &idx.entries[i]
		if !entry.Covers(run.RunDate) {
			continue
		}
		if grams := idx.periodDryGrams[entry.ID]; grams > 0 {
			rate += entry.TotalCost / grams
		}
	}
	return rate
}

// BiomassCost sums weight * price over a run's inputs. Inputs whose purchase
// has no price contribute zero; the pricing classification carries that
// signal instead.
func BiomassCost(inputs []models.RunInput) float64 {
	var cost float64
	for i := range inputs {
		if inputs[i].PricePerLb != nil {
			cost += inputs[i].WeightLbs * *inputs[i].PricePerLb
		}
	}
	return cost
}

// ComputeRunCost runs the full allocation for one run: biomass cost plus
// operational rate, split across products per the configured method.
func ComputeRunCost(run *models.Run, inputs []models.RunInput, index *CostPeriodIndex, cfg CostingConfig) CostFigures {
	figures := CostFigures{
		BiomassCost: BiomassCost(inputs),
		OpRate:      index.OpRate(run),
	}

	totalDry := run.TotalDryGrams()
	if totalDry <= 0 {
		return figures
	}
	totalCost := figures.BiomassCost + figures.OpRate*totalDry
	combined := totalCost / totalDry
	figures.CostPerGramCombined = &combined

	dryThca := 0.0
	if run.DryThcaG != nil {
		dryThca = *run.DryThcaG
	}
	dryHte := 0.0
	if run.DryHteG != nil {
		dryHte = *run.DryHteG
	}

	switch cfg.AllocationMethod {
	case models.AllocationSplit5050:
		if dryThca > 0 {
			thca := (totalCost / 2) / dryThca
			figures.CostPerGramThca = &thca
		}
		if dryHte > 0 {
			hte := (totalCost / 2) / dryHte
			figures.CostPerGramHte = &hte
		}
	case models.AllocationCustomSplit:
		thcaShare := totalCost * cfg.ThcaPct / 100
		hteShare := totalCost - thcaShare
		if dryThca > 0 {
			thca := thcaShare / dryThca
			figures.CostPerGramThca = &thca
		}
		if dryHte > 0 {
			hte := hteShare / dryHte
			figures.CostPerGramHte = &hte
		}
	default: // per_gram_uniform
		if dryThca > 0 {
			thca := combined
			figures.CostPerGramThca = &thca
		}
		if dryHte > 0 {
			hte := combined
			figures.CostPerGramHte = &hte
		}
	}
	return figures
}

// ApplyCost writes the derived cost fields back onto the run.
func ApplyCost(run *models.Run, figures CostFigures) {
	run.CostPerGramCombined = figures.CostPerGramCombined
	run.CostPerGramThca = figures.CostPerGramThca
	run.CostPerGramHte = figures.CostPerGramHte
}

// ClassifyRunPricing buckets a run by how much of its biomass is priced:
// no inputs at all, inputs but none priced, some priced, or all priced.
func ClassifyRunPricing(inputs []models.RunInput) string {
	if len(inputs) == 0 {
		return models.PricingUnlinked
	}
	// A recorded price of zero still counts as priced; only a missing price
	// leaves the input unpriced.
	priced := 0
	for i := range inputs {
		if inputs[i].PricePerLb != nil {
			priced++
		}
	}
	switch priced {
	case 0:
		return models.PricingUnpriced
	case len(inputs):
		return models.PricingPriced
	default:
		return models.PricingPartial
	}
}
