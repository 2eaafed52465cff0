package services

import "github.com/benwaldman33/gold-drop-production-tracker/internal/models"

// YieldFigures holds the derived yield fields for a run. A nil field means
// the figure is undefined, distinct from a measured zero.
type YieldFigures struct {
	GramsRan        *float64
	OverallYieldPct *float64
	ThcaYieldPct    *float64
	HteYieldPct     *float64
}

// CalculateYield derives grams ran and yield percentages from a run's raw
// fields. With no reactor weight every percentage is undefined, never 0%.
func CalculateYield(run *models.Run) YieldFigures {
	var figures YieldFigures

	if run.BioInReactorLbs == nil || *run.BioInReactorLbs <= 0 {
		return figures
	}
	gramsRan := *run.BioInReactorLbs * models.GramsPerLb
	figures.GramsRan = &gramsRan

	dryHte := 0.0
	if run.DryHteG != nil {
		dryHte = *run.DryHteG
	}
	dryThca := 0.0
	if run.DryThcaG != nil {
		dryThca = *run.DryThcaG
	}

	overall := (dryHte + dryThca) / gramsRan * 100
	thca := dryThca / gramsRan * 100
	hte := dryHte / gramsRan * 100
	figures.OverallYieldPct = &overall
	figures.ThcaYieldPct = &thca
	figures.HteYieldPct = &hte
	return figures
}

// ApplyYield writes the derived figures back onto the run.
func ApplyYield(run *models.Run, figures YieldFigures) {
	run.GramsRan = figures.GramsRan
	run.OverallYieldPct = figures.OverallYieldPct
	run.ThcaYieldPct = figures.ThcaYieldPct
	run.HteYieldPct = figures.HteYieldPct
}
