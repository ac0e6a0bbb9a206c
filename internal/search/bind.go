package search

import (
	"github.com/copyleftdev/symfit/internal/expr"
	"github.com/copyleftdev/symfit/internal/optimization"
)

// DefaultParamValue seeds parameters that have no configured value.
const DefaultParamValue = 1.0

// Bind pairs e with a value for each of its parameters, in first-occurrence
// order. Values come from values, default to DefaultParamValue and are
// clamped to bounds.
func Bind(e expr.Expr, values map[string]float64, bounds optimization.Bounds) (*expr.Candidate, error) {
	names := expr.ParamNames(e)
	params := make(expr.Params, len(names))
	for i, name := range names {
		v, ok := values[string(name)]
		if !ok {
			v = DefaultParamValue
		}
		params[i] = expr.ParamValue{Name: name, Value: bounds.Clamp(v)}
	}
	return expr.NewCandidate(e, params)
}

// ParamMap returns the values of ps keyed by name.
func ParamMap(ps expr.Params) map[string]float64 {
	m := make(map[string]float64, len(ps))
	for _, p := range ps {
		m[string(p.Name)] = p.Value
	}
	return m
}
