package model

import (
	"math"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/core"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
)

// REML iteration defaults; overridable through FitOptions.
const (
	DefaultREMLTolerance = 1e-8
	DefaultREMLMaxIter   = 100
)

// FitOptions controls the REML iteration.
type FitOptions struct {
	Tolerance float64
	MaxIter   int
}

// withDefaults fills zero-valued options.
func (o FitOptions) withDefaults() FitOptions {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultREMLTolerance
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultREMLMaxIter
	}
	return o
}

// FitTau2 estimates the between-study variance by restricted maximum
// likelihood via fixed-point iteration, clamped at zero. The DerSimonian-Laird
// estimate seeds the iteration. On hitting the iteration cap the last iterate
// is returned alongside ErrNonConvergence so callers can surface a
// warning-level result instead of crashing.
func FitTau2(effects []meta.HarmonizedEffect, opts FitOptions) (tau2 float64, iterations int, err error) {
	opts = opts.withDefaults()
	k := len(effects)
	if k < 1 {
		return 0, 0, core.ErrDegenerateModel
	}
	if k == 1 {
		// Between-study variance is unidentifiable from one study.
		return 0, 0, nil
	}

	tau2 = dlEstimate(effects)

	for iterations = 1; iterations <= opts.MaxIter; iterations++ {
		next := remlStep(effects, tau2)
		if next < 0 {
			next = 0
		}
		if math.Abs(next-tau2) < opts.Tolerance {
			return next, iterations, nil
		}
		tau2 = next
	}

	return tau2, opts.MaxIter, core.NewNonConvergenceError(opts.MaxIter, tau2)
}

// remlStep performs one fixed-point update of the REML estimating equation
//
//	tau2 <- sum(wi^2 ((yi-mu)^2 - vi)) / sum(wi^2) + 1/sum(wi)
//
// with wi = 1/(vi + tau2) and mu the weighted mean at the current tau2.
func remlStep(effects []meta.HarmonizedEffect, tau2 float64) float64 {
	sumW, sumWY := 0.0, 0.0
	for _, e := range effects {
		w := 1 / (e.Variance + tau2)
		sumW += w
		sumWY += w * e.Effect
	}
	mu := sumWY / sumW

	sumW2, sumW2Dev := 0.0, 0.0
	for _, e := range effects {
		w := 1 / (e.Variance + tau2)
		dev := e.Effect - mu
		sumW2 += w * w
		sumW2Dev += w * w * (dev*dev - e.Variance)
	}

	return sumW2Dev/sumW2 + 1/sumW
}

// dlEstimate computes the DerSimonian-Laird moment estimate used to seed the
// REML iteration.
func dlEstimate(effects []meta.HarmonizedEffect) float64 {
	fe, err := Aggregate(effects)
	if err != nil || fe.DF < 1 {
		return 0
	}

	sumW, sumW2 := 0.0, 0.0
	for _, w := range fe.Weights {
		sumW += w
		sumW2 += w * w
	}

	denom := sumW - sumW2/sumW
	if denom <= 0 {
		return 0
	}

	tau2 := (fe.Q - float64(fe.DF)) / denom
	if tau2 < 0 {
		return 0
	}
	return tau2
}
