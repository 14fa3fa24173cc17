package model

import (
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/core"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
)

// FixedEffect holds the inverse-variance fixed-effect aggregation and the
// heterogeneity statistic Q it implies.
type FixedEffect struct {
	Weights []float64 `json:"weights"` // wi = 1/vi, study order preserved
	Pooled  float64   `json:"pooled"`  // mu_fe
	Q       float64   `json:"q"`
	DF      int       `json:"df"` // k - 1
	QPValue float64   `json:"q_p_value"`
}

// Aggregate computes fixed-effect weights, the fixed-effect pooled estimate and
// Q. A single study is a degenerate aggregation (Q = 0, df = 0), not an error.
func Aggregate(effects []meta.HarmonizedEffect) (FixedEffect, error) {
	k := len(effects)
	if k < 1 {
		return FixedEffect{}, core.ErrDegenerateModel
	}

	weights := make([]float64, k)
	sumW, sumWY := 0.0, 0.0
	for i, e := range effects {
		w := 1 / e.Variance
		weights[i] = w
		sumW += w
		sumWY += w * e.Effect
	}
	pooled := sumWY / sumW

	q := 0.0
	for i, e := range effects {
		dev := e.Effect - pooled
		q += weights[i] * dev * dev
	}

	fe := FixedEffect{
		Weights: weights,
		Pooled:  pooled,
		Q:       q,
		DF:      k - 1,
	}

	if fe.DF > 0 {
		fe.QPValue = NewDistributions().ChiSquarePValue(q, fe.DF)
	} else {
		fe.Q = 0
		fe.QPValue = 1.0
	}
	return fe, nil
}
