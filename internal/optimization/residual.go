package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/symfit/internal/dataset"
	"github.com/copyleftdev/symfit/internal/expr"
)

// ResidualKind selects how disagreement with the data is aggregated.
type ResidualKind string

const (
	// LeastSquares sums squared errors.
	LeastSquares ResidualKind = "least-squares"
	// AbsoluteError sums absolute errors.
	AbsoluteError ResidualKind = "absolute"
)

// ParseResidualKind validates a configured residual name.
func ParseResidualKind(s string) (ResidualKind, error) {
	switch k := ResidualKind(s); k {
	case LeastSquares, AbsoluteError:
		return k, nil
	}
	return "", fmt.Errorf("unknown residual function %q", s)
}

// Residual measures how far an expression is from a dataset. A non-finite
// prediction at any sample makes the residual +Inf, so optimizers are
// pushed out of invalid parameter regions instead of ignoring them.
//
// A Residual reuses an internal buffer and is not safe for concurrent use.
type Residual struct {
	kind ResidualKind
	data *dataset.Dataset
	pred []float64
}

// NewResidual returns a residual of the given kind over data.
func NewResidual(kind ResidualKind, data *dataset.Dataset) *Residual {
	return &Residual{
		kind: kind,
		data: data,
		pred: make([]float64, data.Len()),
	}
}

// Kind returns the aggregation in use.
func (r *Residual) Kind() ResidualKind { return r.kind }

// Dataset returns the samples the residual is measured against.
func (r *Residual) Dataset() *dataset.Dataset { return r.data }

// Eval returns the residual of e with parameter values p.
func (r *Residual) Eval(e expr.Expr, p expr.Params) float64 {
	for i, x := range r.data.Xs() {
		v := e.Eval(x, p)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.Inf(1)
		}
		r.pred[i] = v
	}
	var res float64
	switch r.kind {
	case AbsoluteError:
		res = floats.Distance(r.pred, r.data.Ys(), 1)
	default:
		d := floats.Distance(r.pred, r.data.Ys(), 2)
		res = d * d
	}
	if math.IsNaN(res) {
		return math.Inf(1)
	}
	return res
}

// Candidate returns the residual of c at its current parameter values.
func (r *Residual) Candidate(c *expr.Candidate) float64 {
	return r.Eval(c.Expr, c.Params)
}

// Predict returns the predictions of c at every sample.
func (r *Residual) Predict(c *expr.Candidate) []float64 {
	xs := r.data.Xs()
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = c.Eval(x)
	}
	return out
}

// RSquared returns the coefficient of determination of c, or NaN when a
// prediction is not finite.
func (r *Residual) RSquared(c *expr.Candidate) float64 {
	pred := r.Predict(c)
	for _, v := range pred {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.NaN()
		}
	}
	return stat.RSquaredFrom(pred, r.data.Ys(), nil)
}
