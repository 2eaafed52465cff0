package services

import (
	"math"
	"testing"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateYieldFromReactorWeight(t *testing.T) {
	run := &models.Run{
		RunDate:         time.Now(),
		BioInReactorLbs: fptr(2),
		DryHteG:         fptr(200),
		DryThcaG:        fptr(100),
	}
	figures := CalculateYield(run)

	if figures.GramsRan == nil || !almostEqual(*figures.GramsRan, 908) {
		t.Fatalf("grams ran = %v, want 908", figures.GramsRan)
	}
	if figures.OverallYieldPct == nil || !almostEqual(*figures.OverallYieldPct, 300.0/908.0*100) {
		t.Fatalf("overall yield = %v, want %.4f", figures.OverallYieldPct, 300.0/908.0*100)
	}
	if figures.ThcaYieldPct == nil || !almostEqual(*figures.ThcaYieldPct, 100.0/908.0*100) {
		t.Fatalf("thca yield = %v, want %.4f", figures.ThcaYieldPct, 100.0/908.0*100)
	}
	if figures.HteYieldPct == nil || !almostEqual(*figures.HteYieldPct, 200.0/908.0*100) {
		t.Fatalf("hte yield = %v, want %.4f", figures.HteYieldPct, 200.0/908.0*100)
	}
}

func TestCalculateYieldUndefinedWithoutReactorWeight(t *testing.T) {
	for name, run := range map[string]*models.Run{
		"nil weight":  {DryHteG: fptr(200), DryThcaG: fptr(100)},
		"zero weight": {BioInReactorLbs: fptr(0), DryHteG: fptr(200)},
	} {
		figures := CalculateYield(run)
		if figures.GramsRan != nil || figures.OverallYieldPct != nil ||
			figures.ThcaYieldPct != nil || figures.HteYieldPct != nil {
			t.Errorf("%s: expected all figures nil, got %+v", name, figures)
		}
	}
}

func TestCalculateYieldMissingOutputsCountAsZero(t *testing.T) {
	run := &models.Run{BioInReactorLbs: fptr(1), DryThcaG: fptr(45.4)}
	figures := CalculateYield(run)

	if figures.OverallYieldPct == nil || !almostEqual(*figures.OverallYieldPct, 10) {
		t.Fatalf("overall yield = %v, want 10", figures.OverallYieldPct)
	}
	if figures.HteYieldPct == nil || !almostEqual(*figures.HteYieldPct, 0) {
		t.Fatalf("hte yield = %v, want 0 (defined, not nil)", figures.HteYieldPct)
	}
}

func TestApplyYieldWritesBack(t *testing.T) {
	run := &models.Run{BioInReactorLbs: fptr(2), DryHteG: fptr(200), DryThcaG: fptr(100)}
	ApplyYield(run, CalculateYield(run))

	if run.GramsRan == nil || !almostEqual(*run.GramsRan, 908) {
		t.Fatalf("grams ran not applied: %v", run.GramsRan)
	}

	// Clearing the reactor weight must clear the derived fields on reapply.
	run.BioInReactorLbs = nil
	ApplyYield(run, CalculateYield(run))
	if run.GramsRan != nil || run.OverallYieldPct != nil {
		t.Fatalf("derived fields should reset to nil, got grams=%v overall=%v", run.GramsRan, run.OverallYieldPct)
	}
}
