package optimization

import (
	"math"
	"testing"

	"github.com/copyleftdev/symfit/internal/dataset"
	"github.com/copyleftdev/symfit/internal/expr"
)

// LineDataset returns the samples of y = 2x at x = 0..3.
func LineDataset() *dataset.Dataset {
	return dataset.New([]dataset.Point{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 2, Y: 4}, {X: 3, Y: 6}})
}

// LineCandidate returns a*x + b with the given starting values.
func LineCandidate(t testing.TB, a, b float64) *expr.Candidate {
	t.Helper()
	e, err := expr.Parse("a*x + b")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, err := expr.NewCandidate(e, expr.Params{{Name: 'a', Value: a}, {Name: 'b', Value: b}})
	if err != nil {
		t.Fatalf("candidate: %v", err)
	}
	return c
}

// AssertParamsNear checks the parameter values of c against want.
func AssertParamsNear(t testing.TB, c *expr.Candidate, want []float64, tol float64) {
	t.Helper()

	got := c.Params.Values()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("parameter %c: got %v, want %v (tolerance %v)", c.Params[i].Name, got[i], want[i], tol)
		}
	}
}

// AssertParamsInBounds checks that every parameter of c lies within b.
func AssertParamsInBounds(t testing.TB, c *expr.Candidate, b Bounds) {
	t.Helper()

	for _, p := range c.Params {
		if !b.Contains(p.Value) {
			t.Fatalf("parameter %c = %v outside [%v, %v]", p.Name, p.Value, b.Min, b.Max)
		}
	}
}
