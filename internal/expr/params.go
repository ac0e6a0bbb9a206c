package expr

import (
	"fmt"
	"strings"
)

// paramAlphabet is the canonical parameter name sequence. x is the
// variable and e is left out so that literals like 2e3 stay unambiguous.
const paramAlphabet = "abcdfghijklmnopqrstuvwyz"

// MaxParamNames is the number of distinct parameter names available.
const MaxParamNames = len(paramAlphabet)

// CanonicalName returns the i-th canonical parameter name.
func CanonicalName(i int) (rune, bool) {
	if i < 0 || i >= MaxParamNames {
		return 0, false
	}
	return rune(paramAlphabet[i]), true
}

// IsParamName reports whether r may name a parameter.
func IsParamName(r rune) bool {
	return strings.ContainsRune(paramAlphabet, r)
}

// ParamValue is a named parameter and its current value.
type ParamValue struct {
	Name  rune
	Value float64
}

// Params is an ordered set of uniquely named parameters. The order is the
// order in which optimizers visit them.
type Params []ParamValue

// Value returns the value bound to name.
func (ps Params) Value(name rune) (float64, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Value, true
		}
	}
	return 0, false
}

// Index returns the position of name, or -1.
func (ps Params) Index(name rune) int {
	for i, p := range ps {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Values returns the parameter values in declared order.
func (ps Params) Values() []float64 {
	vs := make([]float64, len(ps))
	for i, p := range ps {
		vs[i] = p.Value
	}
	return vs
}

// SetValues overwrites the values in declared order.
func (ps Params) SetValues(vs []float64) {
	for i := range ps {
		ps[i].Value = vs[i]
	}
}

// Clone returns a copy that does not share storage with ps.
func (ps Params) Clone() Params {
	if ps == nil {
		return nil
	}
	return append(Params(nil), ps...)
}

// String renders the set as "a=1, b=2".
func (ps Params) String() string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("%c=%s", p.Name, formatFloat(p.Value))
	}
	return strings.Join(parts, ", ")
}

// Candidate pairs an expression with the parameters it references.
type Candidate struct {
	Expr   Expr
	Params Params
}

// NewCandidate pairs e with params. Every parameter of e must be bound and
// every binding must be used.
func NewCandidate(e Expr, params Params) (*Candidate, error) {
	names := ParamNames(e)
	if len(names) != len(params) {
		return nil, fmt.Errorf("expression uses %d parameters, %d bound", len(names), len(params))
	}
	seen := make(map[rune]bool, len(params))
	for _, p := range params {
		if seen[p.Name] {
			return nil, fmt.Errorf("parameter %c bound twice", p.Name)
		}
		seen[p.Name] = true
	}
	for _, n := range names {
		if !seen[n] {
			return nil, fmt.Errorf("parameter %c is not bound", n)
		}
	}
	return &Candidate{Expr: e, Params: params}, nil
}

// Eval evaluates the candidate at x with its current parameter values.
func (c *Candidate) Eval(x float64) float64 {
	return c.Expr.Eval(x, c.Params)
}

// Clone returns a deep copy, so a fit on the copy leaves c untouched.
func (c *Candidate) Clone() *Candidate {
	return &Candidate{Expr: c.Expr.Clone(), Params: c.Params.Clone()}
}

// String renders the expression with parameter names.
func (c *Candidate) String() string {
	return c.Expr.String()
}

// PlotString renders the expression with parameter values substituted.
func (c *Candidate) PlotString() string {
	return PlotString(c.Expr, c.Params)
}
