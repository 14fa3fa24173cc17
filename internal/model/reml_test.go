package model

import (
	"errors"
	"testing"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/core"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
)

func homogeneousEffects() []meta.HarmonizedEffect {
	effects := make([]meta.HarmonizedEffect, 5)
	for i := range effects {
		effects[i] = meta.HarmonizedEffect{Label: "h", Effect: 0.5, Variance: 0.1}
	}
	return effects
}

func heterogeneousEffects() []meta.HarmonizedEffect {
	values := []float64{-0.5, 0.0, 0.5, 1.0, 1.5}
	effects := make([]meta.HarmonizedEffect, len(values))
	for i, v := range values {
		effects[i] = meta.HarmonizedEffect{Label: "h", Effect: v, Variance: 0.04}
	}
	return effects
}

// TestFitTau2_Homogeneous verifies identical effects give tau2 = 0.
func TestFitTau2_Homogeneous(t *testing.T) {
	tau2, _, err := FitTau2(homogeneousEffects(), FitOptions{})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if tau2 != 0 {
		t.Errorf("expected tau2 = 0 for homogeneous effects, got %g", tau2)
	}
}

// TestFitTau2_Heterogeneous verifies clearly dispersed effects produce a
// substantial positive tau2 and the iteration converges.
func TestFitTau2_Heterogeneous(t *testing.T) {
	tau2, iterations, err := FitTau2(heterogeneousEffects(), FitOptions{})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	// Sampling variance is 0.04 while the spread of true effects is ~0.625;
	// tau2 should account for most of the dispersion.
	if tau2 < 0.3 {
		t.Errorf("expected tau2 well above 0.3, got %g", tau2)
	}
	if iterations < 1 {
		t.Errorf("expected at least one iteration, got %d", iterations)
	}
}

// TestFitTau2_NeverNegative fuzzes a few variance patterns and checks the
// non-negativity clamp.
func TestFitTau2_NeverNegative(t *testing.T) {
	cases := [][]meta.HarmonizedEffect{
		{
			{Effect: 0.1, Variance: 0.5},
			{Effect: 0.12, Variance: 0.6},
			{Effect: 0.09, Variance: 0.4},
		},
		{
			{Effect: 0.0, Variance: 1.0},
			{Effect: 0.01, Variance: 2.0},
		},
	}

	for i, effects := range cases {
		tau2, _, err := FitTau2(effects, FitOptions{})
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if tau2 < 0 {
			t.Errorf("case %d: tau2 must be non-negative, got %g", i, tau2)
		}
	}
}

// TestFitTau2_SingleStudy verifies the k = 1 degenerate case fixes tau2 at 0.
func TestFitTau2_SingleStudy(t *testing.T) {
	tau2, iterations, err := FitTau2([]meta.HarmonizedEffect{{Effect: 0.7, Variance: 0.1}}, FitOptions{})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if tau2 != 0 || iterations != 0 {
		t.Errorf("expected tau2 = 0 with no iterations, got %g after %d", tau2, iterations)
	}
}

// TestFitTau2_NonConvergence verifies the iteration cap reports the last
// iterate instead of crashing.
func TestFitTau2_NonConvergence(t *testing.T) {
	tau2, iterations, err := FitTau2(heterogeneousEffects(), FitOptions{MaxIter: 1})
	if !errors.Is(err, core.ErrNonConvergence) {
		t.Fatalf("expected ErrNonConvergence, got %v", err)
	}
	if iterations != 1 {
		t.Errorf("expected 1 iteration, got %d", iterations)
	}
	if tau2 <= 0 {
		t.Errorf("expected a positive last iterate for dispersed effects, got %g", tau2)
	}
}

// TestFitTau2_Empty verifies the degenerate-model error for k < 1.
func TestFitTau2_Empty(t *testing.T) {
	_, _, err := FitTau2(nil, FitOptions{})
	if !errors.Is(err, core.ErrDegenerateModel) {
		t.Errorf("expected ErrDegenerateModel, got %v", err)
	}
}
