package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Harmonization errors (per-study, carry the study's identity)
	ErrUnsupportedMeasure     = errors.New("unsupported measure kind")
	ErrMissingField           = errors.New("missing or non-finite raw field")
	ErrInsufficientSampleSize = errors.New("insufficient sample size")

	// Model-fitting errors
	ErrDegenerateModel     = errors.New("degenerate model: no harmonized effects")
	ErrInsufficientStudies = errors.New("insufficient studies for influence diagnostics")
	ErrNonConvergence      = errors.New("REML iteration did not converge")
)

// Error constructors with context
func NewStudyError(sentinel error, label string, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: study %q", sentinel, label)
	}
	return fmt.Errorf("%w: study %q: %s", sentinel, label, detail)
}

func NewNonConvergenceError(iterations int, lastTau2 float64) error {
	return fmt.Errorf("%w after %d iterations (last tau2=%.6g)", ErrNonConvergence, iterations, lastTau2)
}

// Error checking helpers
func IsHarmonizationError(err error) bool {
	return errors.Is(err, ErrUnsupportedMeasure) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInsufficientSampleSize)
}

func IsModelError(err error) bool {
	return errors.Is(err, ErrDegenerateModel) ||
		errors.Is(err, ErrNonConvergence)
}
