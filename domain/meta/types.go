package meta

import (
	"math"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/core"
)

// MeasureKind identifies the raw effect measure a study reports
type MeasureKind string

const (
	MeasureSMD MeasureKind = "SMD" // standardized mean difference (means/SDs/sample sizes)
	MeasureOR  MeasureKind = "OR"  // odds ratio from a 2x2 table
)

// StudyRecord is one retrieved study as supplied by the loader.
// INVARIANTS:
// - Exactly one measure kind's required fields are present and finite
// - Sample sizes / cell counts are positive
// - Total n > 2 (Hedges correction undefined otherwise)
type StudyRecord struct {
	Label   string      `json:"label"` // author + year, display only
	Measure MeasureKind `json:"measure"`

	// SMD inputs
	Mean1 float64 `json:"m1,omitempty"`
	Mean2 float64 `json:"m2,omitempty"`
	SD1   float64 `json:"sd1,omitempty"`
	SD2   float64 `json:"sd2,omitempty"`
	N1    int     `json:"n1,omitempty"`
	N2    int     `json:"n2,omitempty"`

	// OR inputs: 2x2 counts (exposed-event, exposed-no-event, control-event, control-no-event)
	A int `json:"a,omitempty"`
	B int `json:"b,omitempty"`
	C int `json:"c,omitempty"`
	D int `json:"d,omitempty"`
}

// TotalN returns the study's total sample size for the declared measure.
func (s StudyRecord) TotalN() int {
	switch s.Measure {
	case MeasureSMD:
		return s.N1 + s.N2
	case MeasureOR:
		return s.A + s.B + s.C + s.D
	default:
		return 0
	}
}

// HarmonizedEffect is the bias-corrected standardized effect derived from one StudyRecord.
// Immutable once produced; Variance > 0 always holds for a successfully harmonized study.
type HarmonizedEffect struct {
	Label      string  `json:"label"`
	Effect     float64 `json:"effect"`                 // Hedges' g
	Variance   float64 `json:"variance"`               // sampling variance of g
	N          int     `json:"n"`                      // total study sample size
	EvenSplitN bool    `json:"even_split_n,omitempty"` // group sizes were assumed equal (n1=n2=n/2)
}

// SE returns the standard error of the harmonized effect.
func (h HarmonizedEffect) SE() float64 {
	return math.Sqrt(h.Variance)
}

// PooledModel is the fitted random-effects model for one analysis run.
// INVARIANTS:
// - K >= 1; when K == 1 the heterogeneity block is degenerate (Tau2 = 0, Q = 0, I2 = 0)
// - Tau2 >= 0; I2 in [0, 100]
type PooledModel struct {
	K  int `json:"k"`
	DF int `json:"df"` // K - 1

	Tau2          float64 `json:"tau2"`
	PooledEffect  float64 `json:"pooled_effect"`
	StandardError float64 `json:"standard_error"` // HKSJ-adjusted
	CILow         float64 `json:"ci_low"`
	CIHigh        float64 `json:"ci_high"`
	TestStatistic float64 `json:"test_statistic"` // t = mu/se, k-1 df
	PValue        float64 `json:"p_value"`

	Q       float64 `json:"q"`
	QPValue float64 `json:"q_p_value"`
	I2      float64 `json:"i2"` // percent, 0-100

	// Prediction interval for a new study's true effect; valid only when HasPI
	HasPI  bool    `json:"has_pi"`
	PILow  float64 `json:"pi_low,omitempty"`
	PIHigh float64 `json:"pi_high,omitempty"`

	// Converged is false when the REML iteration hit its cap; Tau2 then holds
	// the last iterate and the fit is a warning-level result.
	Converged  bool `json:"converged"`
	Iterations int  `json:"iterations"`
}

// InfluenceRecord is the per-study Baujat pair: the study's share of Q against
// its leave-one-out influence on the pooled estimate.
type InfluenceRecord struct {
	Label                     string  `json:"label"`
	HeterogeneityContribution float64 `json:"heterogeneity_contribution"` // x axis
	LeaveOneOutInfluence      float64 `json:"leave_one_out_influence"`    // y axis
}

// StudyIssue records a study the harmonizer rejected, with the reason, so the
// caller can decide whether to exclude it or abort the run.
type StudyIssue struct {
	Label string `json:"label"`
	Err   error  `json:"-"`
	Cause string `json:"cause"`
}

// StudyResult is a per-study row of the analysis output for downstream
// renderers (forest plot, textual summary).
type StudyResult struct {
	Label         string  `json:"label"`
	Effect        float64 `json:"effect"`
	Variance      float64 `json:"variance"`
	CILow         float64 `json:"ci_low"`
	CIHigh        float64 `json:"ci_high"`
	WeightPercent float64 `json:"weight_percent"` // random-effects weight, sums to 100 across studies
}

// AnalysisResult bundles everything one batch computation produces. All fields
// are values created by the pipeline; nothing is mutated after the run.
type AnalysisResult struct {
	RunID     core.RunID         `json:"run_id"`
	Model     PooledModel        `json:"model"`
	Studies   []StudyResult      `json:"studies"`   // original study order
	Effects   []HarmonizedEffect `json:"effects"`   // original study order
	Influence []InfluenceRecord  `json:"influence,omitempty"`
	Excluded  []StudyIssue       `json:"excluded,omitempty"`

	// InfluenceUnavailable is set when k < 3 and the Baujat diagnostic cannot
	// be computed; the rest of the result is still valid.
	InfluenceUnavailable bool `json:"influence_unavailable,omitempty"`
}
