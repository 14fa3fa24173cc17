package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions provides unified access to the distribution tails and quantiles
// the fitters need, so CDF calculations are not scattered through the model code.
type Distributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *Distributions {
	return &Distributions{}
}

// TTestPValue computes the two-sided p-value for a t-statistic
func (d *Distributions) TTestPValue(tStatistic float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(degreesOfFreedom)}
	return 2 * (1 - tDist.CDF(math.Abs(tStatistic)))
}

// TQuantile computes the quantile of the t-distribution (inverse CDF)
func (d *Distributions) TQuantile(p float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return math.NaN()
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(degreesOfFreedom)}
	return tDist.Quantile(p)
}

// ChiSquarePValue computes the upper-tail p-value for a chi-square statistic
func (d *Distributions) ChiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	return 1 - chiDist.CDF(chiSquare)
}

// NormalPValue computes the two-sided p-value for a z-statistic
func (d *Distributions) NormalPValue(z float64) float64 {
	return 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
}

// NormalQuantile computes the quantile of the standard normal (inverse CDF)
func (d *Distributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}
