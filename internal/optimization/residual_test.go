package optimization

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/symfit/internal/dataset"
	"github.com/copyleftdev/symfit/internal/expr"
)

func TestResidual(t *testing.T) {
	tests := []struct {
		name string
		kind ResidualKind
		a, b float64
		want float64
	}{
		{"exact least squares", LeastSquares, 2, 0, 0},
		{"offset least squares", LeastSquares, 2, 1, 4},
		{"slope least squares", LeastSquares, 1, 0, 14},
		{"exact absolute", AbsoluteError, 2, 0, 0},
		{"offset absolute", AbsoluteError, 2, 1, 4},
		{"slope absolute", AbsoluteError, 1, 0, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResidual(tt.kind, LineDataset())
			c := LineCandidate(t, tt.a, tt.b)
			assert.InDelta(t, tt.want, r.Candidate(c), 1e-9)
			assert.Equal(t, tt.kind, r.Kind())
		})
	}
}

func TestResidualNonFiniteIsInfinite(t *testing.T) {
	r := NewResidual(LeastSquares, LineDataset())

	for _, text := range []string{"1 / x", "ln(x - 1)", "x^0.5 * (0 - 1)^0.5"} {
		e, err := expr.Parse(text)
		require.NoError(t, err)
		assert.True(t, math.IsInf(r.Eval(e, nil), 1), text)
	}
}

func TestResidualOverflowIsInfinite(t *testing.T) {
	d := dataset.New([]dataset.Point{{X: 1e200, Y: 0}, {X: 1e200, Y: 0}})
	r := NewResidual(LeastSquares, d)
	e, err := expr.Parse("x * x^0")
	require.NoError(t, err)
	assert.True(t, math.IsInf(r.Eval(e, nil), 1))
}

func TestRSquared(t *testing.T) {
	r := NewResidual(LeastSquares, LineDataset())

	assert.InDelta(t, 1.0, r.RSquared(LineCandidate(t, 2, 0)), 1e-12)
	assert.Less(t, r.RSquared(LineCandidate(t, 0, 3)), 1.0)

	e, err := expr.Parse("1 / x")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r.RSquared(&expr.Candidate{Expr: e})))
}

func TestPredict(t *testing.T) {
	r := NewResidual(LeastSquares, LineDataset())
	assert.Equal(t, []float64{1, 2, 3, 4}, r.Predict(LineCandidate(t, 1, 1)))
}

func TestParseResidualKind(t *testing.T) {
	k, err := ParseResidualKind("absolute")
	require.NoError(t, err)
	assert.Equal(t, AbsoluteError, k)

	_, err = ParseResidualKind("huber")
	assert.Error(t, err)
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
	assert.Equal(t, 1.0, DefaultSettings().InitialStep())

	bad := []func(s *Settings){
		func(s *Settings) { s.Bounds = Bounds{Min: 1, Max: 1} },
		func(s *Settings) { s.MinStep = 0 },
		func(s *Settings) { s.MaxIterations = 0 },
		func(s *Settings) { s.InitialStepFraction = 2 },
		func(s *Settings) { s.MinStep = math.NaN() },
	}
	for i, mutate := range bad {
		s := DefaultSettings()
		mutate(&s)
		assert.Error(t, s.Validate(), "case %d", i)
	}
}

func TestBounds(t *testing.T) {
	b := Bounds{Min: -5, Max: 5}
	assert.Equal(t, 5.0, b.Clamp(7))
	assert.Equal(t, -5.0, b.Clamp(-9))
	assert.Equal(t, 1.5, b.Clamp(1.5))
	assert.Equal(t, -5.0, b.Clamp(math.NaN()))
	assert.True(t, b.Contains(5))
	assert.False(t, b.Contains(5.0001))
	assert.Equal(t, 10.0, b.Width())
}

func TestFitError(t *testing.T) {
	err := error(NewFitError(NotConverged, 1.5, 1000).WithComponent("pattern_search").WithOperation("Fit"))

	assert.True(t, errors.Is(err, ErrNotConverged))
	assert.False(t, errors.Is(err, ErrDiverged))
	assert.Equal(t, "pattern_search: Fit: fit not converged after 1000 iterations (residual 1.5)", err.Error())

	fe, ok := AsFitError(err)
	require.True(t, ok)
	assert.Equal(t, 1000, fe.Iterations)

	cause := errors.New("boom")
	wrapped := NewFitError(Diverged, math.Inf(1), 3).WithCause(cause)
	assert.True(t, errors.Is(wrapped, cause))
	assert.Contains(t, wrapped.Error(), "boom")

	_, ok = AsFitError(cause)
	assert.False(t, ok)
}
