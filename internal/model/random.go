package model

import (
	"errors"
	"math"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/core"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
)

// RandomEffectsFit is the fitted model plus the per-study random-effects
// weights the fit implies, normalized to percentages in study order.
type RandomEffectsFit struct {
	Model          meta.PooledModel
	WeightPercents []float64
}

// FitRandomEffects estimates tau2 by REML, pools the harmonized effects under
// random-effects weights and applies the Knapp-Hartung adjustment: inflated
// standard error, t-distribution with k-1 df for the CI and the mu = 0 test.
//
// A non-converged REML iteration yields a warning-level fit (Converged false,
// last tau2 iterate) rather than an error; only a degenerate input (k < 1)
// fails outright.
func FitRandomEffects(effects []meta.HarmonizedEffect, opts FitOptions) (RandomEffectsFit, error) {
	k := len(effects)
	if k < 1 {
		return RandomEffectsFit{}, core.ErrDegenerateModel
	}

	fe, err := Aggregate(effects)
	if err != nil {
		return RandomEffectsFit{}, err
	}

	tau2, iterations, err := FitTau2(effects, opts)
	converged := true
	if err != nil {
		if !errors.Is(err, core.ErrNonConvergence) {
			return RandomEffectsFit{}, err
		}
		converged = false
	}

	dist := NewDistributions()

	// Random-effects weights and naive pooled estimate
	weights := make([]float64, k)
	sumW, sumWY := 0.0, 0.0
	for i, e := range effects {
		w := 1 / (e.Variance + tau2)
		weights[i] = w
		sumW += w
		sumWY += w * e.Effect
	}
	mu := sumWY / sumW
	se0 := math.Sqrt(1 / sumW)

	percents := make([]float64, k)
	for i, w := range weights {
		percents[i] = w / sumW * 100
	}

	m := meta.PooledModel{
		K:            k,
		DF:           k - 1,
		Tau2:         tau2,
		PooledEffect: mu,
		Q:            fe.Q,
		QPValue:      fe.QPValue,
		Converged:    converged,
		Iterations:   iterations,
	}

	if fe.Q > float64(fe.DF) && fe.Q > 0 {
		m.I2 = (fe.Q - float64(fe.DF)) / fe.Q * 100
	}

	if k == 1 {
		// Degenerate single-study model: the pooled estimate is the study's own
		// effect; a t with 0 df is undefined, so inference falls back to the
		// standard normal.
		m.StandardError = se0
		m.TestStatistic = mu / se0
		m.PValue = dist.NormalPValue(m.TestStatistic)
		zCrit := dist.NormalQuantile(0.975)
		m.CILow = mu - zCrit*se0
		m.CIHigh = mu + zCrit*se0
		return RandomEffectsFit{Model: m, WeightPercents: percents}, nil
	}

	// Knapp-Hartung variance inflation; the adjusted SE never drops below se0
	c := 0.0
	for i, e := range effects {
		dev := e.Effect - mu
		c += weights[i] * dev * dev
	}
	c /= float64(k - 1)
	if c < 1 {
		c = 1
	}
	se := se0 * math.Sqrt(c)

	m.StandardError = se
	m.TestStatistic = mu / se
	m.PValue = dist.TTestPValue(m.TestStatistic, k-1)

	tCrit := dist.TQuantile(0.975, k-1)
	m.CILow = mu - tCrit*se
	m.CIHigh = mu + tCrit*se

	if k >= 3 {
		tPI := dist.TQuantile(0.975, k-2)
		half := tPI * math.Sqrt(se*se+tau2)
		m.HasPI = true
		m.PILow = mu - half
		m.PIHigh = mu + half
	}

	return RandomEffectsFit{Model: m, WeightPercents: percents}, nil
}
