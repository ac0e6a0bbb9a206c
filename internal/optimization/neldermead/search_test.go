package neldermead

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/copyleftdev/symfit/internal/dataset"
	"github.com/copyleftdev/symfit/internal/expr"
	"github.com/copyleftdev/symfit/internal/optimization"
)

func newSearch(t *testing.T, settings optimization.Settings, d *dataset.Dataset) *Search {
	t.Helper()
	s, err := New(settings, optimization.NewResidual(optimization.LeastSquares, d), zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func tightSettings() optimization.Settings {
	settings := optimization.DefaultSettings()
	settings.MinStep = 1e-12
	return settings
}

func TestNewValidatesSettings(t *testing.T) {
	settings := optimization.DefaultSettings()
	settings.Bounds = optimization.Bounds{Min: 3, Max: -3}

	_, err := New(settings, optimization.NewResidual(optimization.LeastSquares, optimization.LineDataset()), nil)
	assert.Error(t, err)
}

func TestFitRecoversLine(t *testing.T) {
	starts := [][2]float64{{0, 0}, {-3, 4}, {1, 1}}
	for _, start := range starts {
		s := newSearch(t, tightSettings(), optimization.LineDataset())
		c := optimization.LineCandidate(t, start[0], start[1])

		res, err := s.Fit(c)
		require.NoError(t, err, "start %v", start)
		assert.True(t, res.Converged)
		assert.Less(t, res.Residual, 1e-4, "start %v", start)
		optimization.AssertParamsNear(t, c, []float64{2, 0}, 1e-2)
	}
}

func TestFitEnforcesBounds(t *testing.T) {
	d := dataset.New([]dataset.Point{{X: 1, Y: 100}, {X: 2, Y: 200}})
	s := newSearch(t, optimization.DefaultSettings(), d)

	c, err := expr.NewCandidate(expr.MustParse("a * x"), expr.Params{{Name: 'a', Value: 42}})
	require.NoError(t, err)

	_, err = s.Fit(c)
	require.NoError(t, err)
	optimization.AssertParamsInBounds(t, c, optimization.DefaultSettings().Bounds)
	assert.InDelta(t, 5.0, c.Params[0].Value, 1e-9)
}

func TestFitNoParameters(t *testing.T) {
	s := newSearch(t, optimization.DefaultSettings(), optimization.LineDataset())

	_, err := s.Fit(&expr.Candidate{Expr: expr.MustParse("x")})
	assert.True(t, errors.Is(err, optimization.ErrNoParameters))
}

func TestFitNotConverged(t *testing.T) {
	settings := tightSettings()
	settings.MaxIterations = 2
	s := newSearch(t, settings, optimization.LineDataset())

	_, err := s.Fit(optimization.LineCandidate(t, -4, 4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrNotConverged))

	fe, ok := optimization.AsFitError(err)
	require.True(t, ok)
	assert.False(t, math.IsInf(fe.Residual, 0))
}

func TestFitDiverged(t *testing.T) {
	s := newSearch(t, optimization.DefaultSettings(), optimization.LineDataset())

	c, err := expr.NewCandidate(expr.MustParse("ln(a - 10) + x"), expr.Params{{Name: 'a', Value: 1}})
	require.NoError(t, err)

	_, err = s.Fit(c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrDiverged))

	fe, ok := optimization.AsFitError(err)
	require.True(t, ok)
	assert.True(t, math.IsInf(fe.Residual, 1))
	assert.Equal(t, 1.0, c.Params[0].Value)
}

func TestFitLeavesDomainOnInvalidRegion(t *testing.T) {
	// ln(a + 1) is undefined for a <= -1; the simplex must move above it.
	d := dataset.New([]dataset.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	s := newSearch(t, optimization.DefaultSettings(), d)

	c, err := expr.NewCandidate(expr.MustParse("x * a + ln(a + 1)"), expr.Params{{Name: 'a', Value: -1.5}})
	require.NoError(t, err)

	res, err := s.Fit(c)
	require.NoError(t, err)
	assert.False(t, math.IsInf(res.Residual, 0))
	assert.Greater(t, c.Params[0].Value, -1.0)
}
