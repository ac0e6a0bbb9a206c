package search

import (
	"math"
	"time"

	"github.com/copyleftdev/symfit/internal/errors"
	"github.com/copyleftdev/symfit/internal/expr"
	"github.com/copyleftdev/symfit/internal/optimization"
)

// Options configure a Driver. They are fixed for the lifetime of a run.
type Options struct {
	// Seed seeds the candidate generator; 0 seeds from the clock.
	Seed int64

	// ComplexityMin and ComplexityMax bound the per-candidate budget.
	ComplexityMin int
	ComplexityMax int

	// MaxParams rejects simplified candidates with more parameters.
	MaxParams int

	// ResidueThreshold is the residual a candidate must reach to be
	// reported at all.
	ResidueThreshold float64

	// AcceptUnconverged keeps fits that ran out of iterations with a
	// finite residual instead of discarding them.
	AcceptUnconverged bool

	// ProgressInterval is the period of throughput lines; 0 disables them.
	ProgressInterval time.Duration

	// Stop is evaluated once per iteration.
	Stop []StopPolicy

	// Template and TemplateParams drive FitTemplate.
	Template       string
	TemplateParams map[string]float64

	Algorithm optimization.Algorithm
	Residual  optimization.ResidualKind
	Fit       optimization.Settings
}

// DefaultOptions returns the options of an unbounded pattern-search run.
func DefaultOptions() Options {
	return Options{
		ComplexityMin:    10,
		ComplexityMax:    30,
		MaxParams:        7,
		ResidueThreshold: math.Inf(1),
		ProgressInterval: 10 * time.Second,
		Algorithm:        optimization.PatternSearch,
		Residual:         optimization.LeastSquares,
		Fit:              optimization.DefaultSettings(),
	}
}

// Validate reports the first inconsistent option.
func (o Options) Validate() error {
	const op = "Validate"

	switch {
	case o.ComplexityMin < 0:
		return errors.Errorf("complexity minimum %d is negative", o.ComplexityMin).
			WithComponent(component).WithOperation(op)
	case o.ComplexityMax < o.ComplexityMin:
		return errors.Errorf("complexity range [%d, %d] is empty", o.ComplexityMin, o.ComplexityMax).
			WithComponent(component).WithOperation(op)
	case o.MaxParams < 0 || o.MaxParams > expr.MaxParamNames:
		return errors.Errorf("max params %d outside [0, %d]", o.MaxParams, expr.MaxParamNames).
			WithComponent(component).WithOperation(op)
	case math.IsNaN(o.ResidueThreshold):
		return errors.New("residue threshold is NaN").
			WithComponent(component).WithOperation(op)
	case o.ProgressInterval < 0:
		return errors.Errorf("progress interval %s is negative", o.ProgressInterval).
			WithComponent(component).WithOperation(op)
	}
	if _, err := optimization.ParseResidualKind(string(o.Residual)); err != nil {
		return errors.Wrap(err, "residual").WithComponent(component).WithOperation(op)
	}
	if err := o.Fit.Validate(); err != nil {
		return errors.Wrap(err, "fit settings").WithComponent(component).WithOperation(op)
	}
	for name := range o.TemplateParams {
		r := []rune(name)
		if len(r) != 1 || !expr.IsParamName(r[0]) {
			return errors.Errorf("template parameter %q is not a parameter name", name).
				WithComponent(component).WithOperation(op)
		}
	}
	return nil
}
