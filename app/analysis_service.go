package app

import (
	"context"
	"errors"
	"math"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/core"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/harmonize"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/influence"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/model"
)

// FailurePolicy decides what a harmonization failure does to the batch.
type FailurePolicy int

const (
	// SkipInvalid excludes failing studies and records them on the result.
	SkipInvalid FailurePolicy = iota
	// FailFast aborts the run on the first harmonization failure.
	FailFast
)

// AnalysisRequest defines the inputs for one analysis run
type AnalysisRequest struct {
	Studies []meta.StudyRecord
	Policy  FailurePolicy
	FitOpts model.FitOptions
}

// AnalysisService runs the batch pipeline: harmonize, aggregate, fit,
// influence. Each stage creates a new generation of immutable records from the
// previous stage's output.
type AnalysisService struct {
	harmonizer *harmonize.Harmonizer
}

// NewAnalysisService creates an analysis service
func NewAnalysisService() *AnalysisService {
	return &AnalysisService{harmonizer: harmonize.NewHarmonizer()}
}

// Run executes the full pipeline over the ordered study records.
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*meta.AnalysisResult, error) {
	effects, issues := s.harmonizer.HarmonizeAll(req.Studies)
	if req.Policy == FailFast && len(issues) > 0 {
		return nil, issues[0].Err
	}

	fit, err := model.FitRandomEffects(effects, req.FitOpts)
	if err != nil {
		return nil, err
	}

	result := &meta.AnalysisResult{
		RunID:    core.RunID(core.NewID()),
		Model:    fit.Model,
		Effects:  effects,
		Studies:  studyResults(effects, fit.WeightPercents),
		Excluded: issues,
	}

	records, err := influence.NewAnalyzer(req.FitOpts).Analyze(ctx, effects, fit.Model)
	switch {
	case err == nil:
		result.Influence = records
	case errors.Is(err, core.ErrInsufficientStudies):
		// Baujat diagnostic is unavailable below 3 studies; the fit stands.
		result.InfluenceUnavailable = true
	default:
		return nil, err
	}

	return result, nil
}

// studyResults builds the per-study rows downstream renderers consume,
// pairing each harmonized effect with its normalized random-effects weight
// and a 95% CI on its own effect.
func studyResults(effects []meta.HarmonizedEffect, weightPercents []float64) []meta.StudyResult {
	const z95 = 1.959963984540054

	rows := make([]meta.StudyResult, len(effects))
	for i, e := range effects {
		se := math.Sqrt(e.Variance)
		rows[i] = meta.StudyResult{
			Label:         e.Label,
			Effect:        e.Effect,
			Variance:      e.Variance,
			CILow:         e.Effect - z95*se,
			CIHigh:        e.Effect + z95*se,
			WeightPercent: weightPercents[i],
		}
	}
	return rows
}
