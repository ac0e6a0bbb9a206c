package optimization

import (
	"fmt"
	"math"

	"github.com/copyleftdev/symfit/internal/expr"
)

// Fitter fits the parameters of a candidate against a fixed dataset.
type Fitter interface {
	// Fit optimizes c.Params in place, in declared order where the
	// algorithm visits parameters one by one. On error the parameters
	// hold the last accepted values.
	Fit(c *expr.Candidate) (*FitResult, error)
}

// Algorithm selects a Fitter implementation.
type Algorithm string

const (
	PatternSearch Algorithm = "pattern-search"
	NelderMead    Algorithm = "nelder-mead"
)

// Settings configures a fit.
type Settings struct {
	// Bounds is the [min, max] domain shared by every parameter.
	Bounds Bounds

	// MinStep is the step size below which a fit has converged.
	MinStep float64

	// MaxIterations caps the number of iterations of one fit.
	MaxIterations int

	// InitialStepFraction sizes the first step as a fraction of the
	// domain width.
	InitialStepFraction float64
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Bounds:              Bounds{Min: -5, Max: 5},
		MinStep:             1e-3,
		MaxIterations:       1000,
		InitialStepFraction: 0.1,
	}
}

// Validate checks that the settings describe a runnable fit.
func (s Settings) Validate() error {
	switch {
	case !(s.Bounds.Min < s.Bounds.Max):
		return fmt.Errorf("invalid parameter bounds [%v, %v]", s.Bounds.Min, s.Bounds.Max)
	case !(s.MinStep > 0):
		return fmt.Errorf("min step must be positive, got %v", s.MinStep)
	case s.MaxIterations < 1:
		return fmt.Errorf("max iterations must be positive, got %d", s.MaxIterations)
	case !(s.InitialStepFraction > 0 && s.InitialStepFraction <= 1):
		return fmt.Errorf("initial step fraction must be in (0, 1], got %v", s.InitialStepFraction)
	}
	return nil
}

// InitialStep returns the first step size of a fit.
func (s Settings) InitialStep() float64 {
	return s.InitialStepFraction * s.Bounds.Width()
}

// Bounds is a closed interval of parameter values.
type Bounds struct {
	Min, Max float64
}

// Width returns Max - Min.
func (b Bounds) Width() float64 { return b.Max - b.Min }

// Clamp returns v limited to [Min, Max]. NaN clamps to Min.
func (b Bounds) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return b.Min
	}
	return math.Max(b.Min, math.Min(v, b.Max))
}

// Contains reports whether v lies in [Min, Max].
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// FitResult is the outcome of a fit.
type FitResult struct {
	// Residual at the final parameter values.
	Residual float64
	// Iterations used.
	Iterations int
	// Converged is false only for results accepted despite hitting the
	// iteration cap.
	Converged bool
}
