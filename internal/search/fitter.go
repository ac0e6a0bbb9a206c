package search

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/copyleftdev/symfit/internal/optimization"
	"github.com/copyleftdev/symfit/internal/optimization/neldermead"
	"github.com/copyleftdev/symfit/internal/optimization/pattern"
)

// NewFitter returns the fit engine for algo.
func NewFitter(algo optimization.Algorithm, settings optimization.Settings, residual *optimization.Residual, logger *zap.Logger) (optimization.Fitter, error) {
	var (
		f   optimization.Fitter
		err error
	)
	switch algo {
	case optimization.PatternSearch, "":
		f, err = pattern.New(settings, residual, logger)
	case optimization.NelderMead:
		f, err = neldermead.New(settings, residual, logger)
	default:
		return nil, fmt.Errorf("unknown fit algorithm %q", algo)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
