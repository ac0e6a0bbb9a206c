// Package pattern implements a derivative-free coordinate pattern search.
package pattern

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/symfit/internal/expr"
	"github.com/copyleftdev/symfit/internal/optimization"
)

const component = "pattern_search"

// Search fits candidate parameters by compass search: each parameter in
// turn is moved one step up or down, the first strict improvement is kept,
// and all steps are halved after an iteration without improvement.
type Search struct {
	settings optimization.Settings
	residual *optimization.Residual
	logger   *zap.Logger
}

var _ optimization.Fitter = (*Search)(nil)

// New returns a pattern search minimizing residual.
func New(settings optimization.Settings, residual *optimization.Residual, logger *zap.Logger) (*Search, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Search{
		settings: settings,
		residual: residual,
		logger:   logger.Named(component),
	}, nil
}

// Fit optimizes c.Params in place. It converges when every step is below
// MinStep and fails with a FitError when the iteration cap is exceeded,
// when the residual never became finite, or when c has no parameters.
func (s *Search) Fit(c *expr.Candidate) (*optimization.FitResult, error) {
	const op = "Fit"

	n := len(c.Params)
	if n == 0 {
		return nil, optimization.NewFitError(optimization.NoParameters, math.Inf(1), 0).
			WithComponent(component).WithOperation(op)
	}

	bounds := s.settings.Bounds
	for i := range c.Params {
		c.Params[i].Value = bounds.Clamp(c.Params[i].Value)
	}

	steps := make([]float64, n)
	for i := range steps {
		steps[i] = s.settings.InitialStep()
	}

	current := s.residual.Candidate(c)
	for iter := 1; ; iter++ {
		if iter > s.settings.MaxIterations {
			return nil, s.fail(op, current, s.settings.MaxIterations, optimization.NotConverged)
		}

		improved := false
		for i := range c.Params {
			if s.probe(c, i, steps[i], &current) {
				improved = true
			}
		}
		if improved {
			continue
		}

		converged := true
		for i := range steps {
			steps[i] /= 2
			if steps[i] >= s.settings.MinStep {
				converged = false
			}
		}
		if !converged {
			continue
		}
		if math.IsInf(current, 1) {
			return nil, s.fail(op, current, iter, optimization.Diverged)
		}

		s.logger.Debug("Fit converged",
			zap.Int("iterations", iter),
			zap.Float64("residual", current),
			zap.Int("params", n),
		)
		return &optimization.FitResult{
			Residual:   current,
			Iterations: iter,
			Converged:  true,
		}, nil
	}
}

// probe tries c.Params[i] +/- step and keeps the first move that strictly
// lowers *current.
func (s *Search) probe(c *expr.Candidate, i int, step float64, current *float64) bool {
	orig := c.Params[i].Value
	for _, dir := range [2]float64{1, -1} {
		v := s.settings.Bounds.Clamp(orig + dir*step)
		if v == orig {
			continue
		}
		c.Params[i].Value = v
		if r := s.residual.Candidate(c); r < *current {
			*current = r
			return true
		}
	}
	c.Params[i].Value = orig
	return false
}

func (s *Search) fail(op string, residual float64, iterations int, kind optimization.FitErrorKind) error {
	if kind == optimization.NotConverged && math.IsInf(residual, 1) {
		kind = optimization.Diverged
	}
	s.logger.Debug("Fit failed",
		zap.Stringer("kind", kind),
		zap.Int("iterations", iterations),
		zap.Float64("residual", residual),
	)
	return optimization.NewFitError(kind, residual, iterations).
		WithComponent(component).
		WithOperation(op)
}
