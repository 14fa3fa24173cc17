package influence

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/core"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/model"
)

// Analyzer computes per-study Baujat diagnostics: each study's contribution to
// the heterogeneity statistic Q against its leave-one-out influence on the
// pooled estimate.
type Analyzer struct {
	fitOpts model.FitOptions
	sem     *semaphore.Weighted
}

// NewAnalyzer creates an influence analyzer whose leave-one-out refits run
// concurrently, bounded by the number of CPUs.
func NewAnalyzer(fitOpts model.FitOptions) *Analyzer {
	return &Analyzer{
		fitOpts: fitOpts,
		sem:     semaphore.NewWeighted(int64(runtime.NumCPU())),
	}
}

// Analyze computes one InfluenceRecord per study. Requires k >= 3 so that each
// leave-one-out refit still has at least two studies. Each refit reads an
// immutable subset and produces its own fit; no shared mutable state exists
// beyond the indexed results slice.
func (a *Analyzer) Analyze(ctx context.Context, effects []meta.HarmonizedEffect, full meta.PooledModel) ([]meta.InfluenceRecord, error) {
	k := len(effects)
	if k < 3 {
		return nil, fmt.Errorf("%w: have %d, need at least 3", core.ErrInsufficientStudies, k)
	}

	fe, err := model.Aggregate(effects)
	if err != nil {
		return nil, err
	}

	records := make([]meta.InfluenceRecord, k)
	errs := make([]error, k)

	var wg sync.WaitGroup
	for i := range effects {
		if err := a.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer a.sem.Release(1)

			dev := effects[i].Effect - fe.Pooled
			contribution := fe.Weights[i] * dev * dev

			looInfluence, err := a.leaveOneOut(effects, i, full.PooledEffect)
			if err != nil {
				errs[i] = err
				return
			}

			records[i] = meta.InfluenceRecord{
				Label:                     effects[i].Label,
				HeterogeneityContribution: contribution,
				LeaveOneOutInfluence:      looInfluence,
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// leaveOneOut refits the random-effects model on the set excluding study i and
// returns the squared standardized difference between the full and the
// leave-one-out pooled estimates.
func (a *Analyzer) leaveOneOut(effects []meta.HarmonizedEffect, exclude int, fullPooled float64) (float64, error) {
	subset := make([]meta.HarmonizedEffect, 0, len(effects)-1)
	for j, e := range effects {
		if j != exclude {
			subset = append(subset, e)
		}
	}

	fit, err := model.FitRandomEffects(subset, a.fitOpts)
	if err != nil {
		return 0, fmt.Errorf("leave-one-out refit excluding %q: %w", effects[exclude].Label, err)
	}

	diff := (fullPooled - fit.Model.PooledEffect) / fit.Model.StandardError
	return diff * diff, nil
}
