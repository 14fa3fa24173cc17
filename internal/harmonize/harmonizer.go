package harmonize

import (
	"math"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/core"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
)

// Harmonizer converts heterogeneous raw study measures into bias-corrected
// standardized effects on a common Hedges' g scale.
type Harmonizer struct{}

// NewHarmonizer creates a new effect harmonizer
func NewHarmonizer() *Harmonizer {
	return &Harmonizer{}
}

// Harmonize converts one raw study record into a HarmonizedEffect.
// Pure function of its input; the record is never mutated.
func (h *Harmonizer) Harmonize(study meta.StudyRecord) (meta.HarmonizedEffect, error) {
	var d, varD float64
	var evenSplit bool
	var err error

	switch study.Measure {
	case meta.MeasureSMD:
		d, varD, evenSplit, err = h.cohenD(study)
	case meta.MeasureOR:
		d, varD, err = h.logOddsToD(study)
	default:
		return meta.HarmonizedEffect{}, core.NewStudyError(core.ErrUnsupportedMeasure, study.Label, string(study.Measure))
	}
	if err != nil {
		return meta.HarmonizedEffect{}, err
	}

	nTotal := study.TotalN()
	if nTotal <= 2 {
		return meta.HarmonizedEffect{}, core.NewStudyError(core.ErrInsufficientSampleSize, study.Label, "total n must exceed 2")
	}

	// Hedges small-sample correction
	j := 1 - 3/(4*float64(nTotal-2)-1)
	g := j * d
	varG := j * j * varD

	return meta.HarmonizedEffect{
		Label:      study.Label,
		Effect:     g,
		Variance:   varG,
		N:          nTotal,
		EvenSplitN: evenSplit,
	}, nil
}

// HarmonizeAll harmonizes every study in order, collecting per-study failures
// instead of aborting the batch. The caller decides exclusion policy.
func (h *Harmonizer) HarmonizeAll(studies []meta.StudyRecord) ([]meta.HarmonizedEffect, []meta.StudyIssue) {
	effects := make([]meta.HarmonizedEffect, 0, len(studies))
	var issues []meta.StudyIssue

	for _, study := range studies {
		effect, err := h.Harmonize(study)
		if err != nil {
			issues = append(issues, meta.StudyIssue{Label: study.Label, Err: err, Cause: err.Error()})
			continue
		}
		effects = append(effects, effect)
	}

	return effects, issues
}

// cohenD computes Cohen's d and its variance from means/SDs/sample sizes.
// When only a total n is known the caller encodes it as N1 = n, N2 = 0 and the
// split is assumed even; the approximation is flagged on the result.
func (h *Harmonizer) cohenD(study meta.StudyRecord) (d, varD float64, evenSplit bool, err error) {
	n1, n2 := study.N1, study.N2
	if n1 > 0 && n2 == 0 {
		// Even-split approximation for total-only sample sizes
		n2 = n1 / 2
		n1 -= n2
		evenSplit = true
	}
	if n1 < 1 || n2 < 1 {
		return 0, 0, false, core.NewStudyError(core.ErrMissingField, study.Label, "group sizes must be positive")
	}
	for _, v := range []float64{study.Mean1, study.Mean2, study.SD1, study.SD2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, false, core.NewStudyError(core.ErrMissingField, study.Label, "non-finite SMD input")
		}
	}
	if study.SD1 <= 0 || study.SD2 <= 0 {
		return 0, 0, false, core.NewStudyError(core.ErrMissingField, study.Label, "standard deviations must be positive")
	}

	fn1, fn2 := float64(n1), float64(n2)
	pooledSD := math.Sqrt(((fn1-1)*study.SD1*study.SD1 + (fn2-1)*study.SD2*study.SD2) / (fn1 + fn2 - 2))
	if pooledSD == 0 {
		return 0, 0, false, core.NewStudyError(core.ErrMissingField, study.Label, "zero pooled standard deviation")
	}

	d = (study.Mean1 - study.Mean2) / pooledSD
	varD = (fn1+fn2)/(fn1*fn2) + d*d/(2*(fn1+fn2))
	return d, varD, evenSplit, nil
}

// logOddsToD computes the log odds ratio from the 2x2 counts and maps it onto
// the d scale with Chinn's transform under an assumed underlying logistic.
func (h *Harmonizer) logOddsToD(study meta.StudyRecord) (d, varD float64, err error) {
	a, b, c, dd := float64(study.A), float64(study.B), float64(study.C), float64(study.D)
	if a <= 0 || b <= 0 || c <= 0 || dd <= 0 {
		return 0, 0, core.NewStudyError(core.ErrMissingField, study.Label, "2x2 counts must be positive")
	}

	logOR := math.Log((a * dd) / (b * c))
	varLogOR := 1/a + 1/b + 1/c + 1/dd

	d = logOR * math.Sqrt(3) / math.Pi
	varD = varLogOR * 3 / (math.Pi * math.Pi)
	return d, varD, nil
}
