// Package neldermead fits candidate parameters with gonum's Nelder-Mead
// simplex method.
package neldermead

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/symfit/internal/expr"
	"github.com/copyleftdev/symfit/internal/optimization"
)

const (
	component = "nelder_mead"

	// stallIterations is how many major iterations may pass without a
	// MinStep improvement before the fit is considered converged.
	stallIterations = 50
)

// Search is a bounded Nelder-Mead fitter. Parameters are clamped to the
// configured bounds every time the objective is evaluated.
type Search struct {
	settings optimization.Settings
	residual *optimization.Residual
	logger   *zap.Logger
}

var _ optimization.Fitter = (*Search)(nil)

// New returns a Nelder-Mead search minimizing residual.
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

// Fit optimizes c.Params in place.
func (s *Search) Fit(c *expr.Candidate) (*optimization.FitResult, error) {
	const op = "Fit"

	n := len(c.Params)
	if n == 0 {
		return nil, optimization.NewFitError(optimization.NoParameters, math.Inf(1), 0).
			WithComponent(component).WithOperation(op)
	}

	bounds := s.settings.Bounds
	start := make([]float64, n)
	for i, p := range c.Params {
		start[i] = bounds.Clamp(p.Value)
	}

	work := c.Params.Clone()
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			for i := range x {
				work[i].Value = bounds.Clamp(x[i])
			}
			// gonum refuses an infinite start; a finite ceiling lets the
			// simplex walk out of undefined regions.
			if r := s.residual.Eval(c.Expr, work); r < math.MaxFloat64 {
				return r
			}
			return math.MaxFloat64
		},
	}

	settings := &optimize.Settings{
		MajorIterations: s.settings.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   s.settings.MinStep,
			Iterations: stallIterations,
		},
	}

	method := &optimize.NelderMead{
		Reflection:  1.0,
		Expansion:   2.0,
		Contraction: 0.5,
		Shrink:      0.5,
		SimplexSize: s.settings.InitialStep(),
	}

	result, err := optimize.Minimize(problem, start, settings, method)
	if result == nil || (err != nil && result.Status != optimize.IterationLimit) {
		s.restore(c, start)
		return nil, s.fail(op, s.residual.Candidate(c), 0, optimization.NotConverged, err)
	}

	for i := range c.Params {
		c.Params[i].Value = bounds.Clamp(result.X[i])
	}
	residual := s.residual.Candidate(c)
	iterations := result.Stats.MajorIterations

	switch {
	case math.IsInf(residual, 1):
		s.restore(c, start)
		return nil, s.fail(op, residual, iterations, optimization.Diverged, nil)
	case result.Status == optimize.IterationLimit:
		return nil, s.fail(op, residual, iterations, optimization.NotConverged, nil)
	}

	s.logger.Debug("Fit converged",
		zap.Int("iterations", iterations),
		zap.Float64("residual", residual),
		zap.Stringer("status", result.Status),
	)
	return &optimization.FitResult{
		Residual:   residual,
		Iterations: iterations,
		Converged:  true,
	}, nil
}

// restore resets c to the clamped start values.
func (s *Search) restore(c *expr.Candidate, start []float64) {
	for i := range c.Params {
		c.Params[i].Value = start[i]
	}
}

func (s *Search) fail(op string, residual float64, iterations int, kind optimization.FitErrorKind, cause error) error {
	if kind == optimization.NotConverged && math.IsInf(residual, 1) {
		kind = optimization.Diverged
	}
	s.logger.Debug("Fit failed",
		zap.Stringer("kind", kind),
		zap.Int("iterations", iterations),
		zap.Float64("residual", residual),
		zap.Error(cause),
	)
	fe := optimization.NewFitError(kind, residual, iterations).
		WithComponent(component).
		WithOperation(op)
	if cause != nil {
		fe = fe.WithCause(cause)
	}
	return fe
}
