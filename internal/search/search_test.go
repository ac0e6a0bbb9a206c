package search

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/copyleftdev/symfit/internal/expr"
	"github.com/copyleftdev/symfit/internal/optimization"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Seed = 7
	opts.ComplexityMin = 1
	opts.ComplexityMax = 6
	opts.ProgressInterval = 0
	opts.Fit.MaxIterations = 300
	return opts
}

func newDriver(t *testing.T, opts Options) (*Driver, *bytes.Buffer, *Metrics) {
	t.Helper()
	var out bytes.Buffer
	metrics := NewMetrics(prometheus.NewRegistry())
	d, err := New(opts, optimization.LineDataset(), &out, metrics, zaptest.NewLogger(t))
	require.NoError(t, err)
	return d, &out, metrics
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{12345.678, "12346"},
		{543.21, "543.2"},
		{54.321, "54.32"},
		{5.4321, "5.432"},
		{0.54321, "0.543"},
		{0.054321, "0.0543"},
		{0.0054321, "0.00543"},
		{0.00054321, "0.000543"},
		{0, "0.000000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRate(tt.in), "rate %v", tt.in)
	}
}

func TestStopPolicies(t *testing.T) {
	policies := StopPolicies(10, 0, time.Minute)
	require.Len(t, policies, 2)

	_, stop := policies[0].ShouldStop(Stats{Generated: 9})
	assert.False(t, stop)
	reason, stop := policies[0].ShouldStop(Stats{Generated: 10})
	assert.True(t, stop)
	assert.Equal(t, "generated 10 candidates", reason)

	_, stop = policies[1].ShouldStop(Stats{Elapsed: 2 * time.Minute})
	assert.True(t, stop)

	_, stop = MaxFitted(3).ShouldStop(Stats{Fitted: 3})
	assert.True(t, stop)

	assert.Empty(t, StopPolicies(0, 0, 0))
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	bad := map[string]func(o *Options){
		"negative complexity": func(o *Options) { o.ComplexityMin = -1 },
		"empty range":         func(o *Options) { o.ComplexityMax = 2 },
		"too many params":     func(o *Options) { o.MaxParams = 25 },
		"nan threshold":       func(o *Options) { o.ResidueThreshold = math.NaN() },
		"unknown residual":    func(o *Options) { o.Residual = "huber" },
		"bad fit settings":    func(o *Options) { o.Fit.MinStep = 0 },
		"bad template param":  func(o *Options) { o.TemplateParams = map[string]float64{"x": 1} },
		"negative interval":   func(o *Options) { o.ProgressInterval = -time.Second },
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			o := DefaultOptions()
			mutate(&o)
			assert.Error(t, o.Validate())
		})
	}
}

func TestNewRejectsUnknownAlgorithm(t *testing.T) {
	opts := testOptions()
	opts.Algorithm = "simulated-annealing"
	_, err := New(opts, optimization.LineDataset(), &bytes.Buffer{}, nil, nil)
	assert.Error(t, err)
}

func TestStepImprovesMonotonically(t *testing.T) {
	d, out, metrics := newDriver(t, testOptions())

	assert.False(t, d.Best().Found)
	assert.True(t, math.IsInf(d.Best().Residual, 1))
	assert.Equal(t, "x", d.Best().Candidate.String())

	prev := math.Inf(1)
	for i := 0; i < 200; i++ {
		if d.Step() == OutcomeImproved {
			b := d.Best()
			assert.LessOrEqual(t, b.Residual, prev)
			prev = b.Residual
		}
	}

	s := d.Stats()
	assert.Equal(t, uint64(200), s.Generated)
	assert.Equal(t, s.Generated, s.Fitted+s.Rejected)
	assert.GreaterOrEqual(t, s.Improvements, uint64(1))
	assert.True(t, d.Best().Found)
	assert.Contains(t, out.String(), "FOUND NEW BEST FUNCTION:")
	assert.Contains(t, out.String(), "candidates generated: ")

	assert.Equal(t, 200.0, testutil.ToFloat64(metrics.Generated))
	assert.Equal(t, float64(s.Fitted), testutil.ToFloat64(metrics.Fitted))
	assert.Equal(t, d.Best().Residual, testutil.ToFloat64(metrics.BestResidual))
}

func TestStepEnforcesParameterCap(t *testing.T) {
	opts := testOptions()
	opts.MaxParams = 0
	d, _, metrics := newDriver(t, opts)

	for i := 0; i < 50; i++ {
		assert.Equal(t, OutcomeRejected, d.Step())
	}
	assert.False(t, d.Best().Found)
	assert.Equal(t, uint64(0), d.Stats().Fitted)
	assert.Greater(t, testutil.ToFloat64(metrics.Rejected.WithLabelValues(RejectTooManyParams)), 0.0)
}

func TestResidueThreshold(t *testing.T) {
	opts := testOptions()
	opts.ResidueThreshold = -1
	d, out, _ := newDriver(t, opts)

	for i := 0; i < 50; i++ {
		assert.NotEqual(t, OutcomeImproved, d.Step())
	}
	assert.False(t, d.Best().Found)
	assert.NotContains(t, out.String(), "FOUND NEW BEST FUNCTION:")
}

func TestRunStopsOnPolicy(t *testing.T) {
	opts := testOptions()
	opts.Stop = StopPolicies(40, 0, 0)
	d, out, _ := newDriver(t, opts)

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, uint64(40), d.Stats().Generated)
	assert.Contains(t, out.String(), "search stopped: generated 40 candidates")
}

func TestRunStopsOnCancel(t *testing.T) {
	d, out, _ := newDriver(t, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, uint64(0), d.Stats().Generated)
	assert.Contains(t, out.String(), "search stopped: interrupted")
}

func TestSameSeedSameSearch(t *testing.T) {
	run := func() string {
		d, _, _ := newDriver(t, testOptions())
		for i := 0; i < 100; i++ {
			d.Step()
		}
		b := d.Best()
		return b.Candidate.PlotString()
	}
	assert.Equal(t, run(), run())
}

func TestSnapshotIsACopy(t *testing.T) {
	d, _, _ := newDriver(t, testOptions())
	for d.Step() != OutcomeImproved {
	}

	snap := d.Snapshot()
	require.NotEmpty(t, snap.Best.Candidate.Params)
	snap.Best.Candidate.Params[0].Value = 1234

	assert.NotEqual(t, 1234.0, d.Best().Candidate.Params[0].Value)
}

func TestFitTemplate(t *testing.T) {
	opts := testOptions()
	opts.Template = "a*x + b"
	opts.TemplateParams = map[string]float64{"a": 0, "b": 0}
	d, out, _ := newDriver(t, opts)

	b, err := d.FitTemplate()
	require.NoError(t, err)

	assert.True(t, b.Found)
	assert.True(t, b.Converged)
	assert.Less(t, b.Residual, 1e-6)
	assert.InDelta(t, 1.0, b.RSquared, 1e-9)
	optimization.AssertParamsNear(t, b.Candidate, []float64{2, 0}, 1e-3)
	assert.Equal(t, b.Residual, d.Best().Residual)

	text := out.String()
	assert.Contains(t, text, "f = a * x + b\n")
	assert.Contains(t, text, "fit_iters: ")
	assert.Contains(t, text, "FUNCTION:\n")
	assert.Contains(t, text, "residue = ")
}

func TestFitTemplateDefaultsMissingParams(t *testing.T) {
	opts := testOptions()
	opts.Template = "c * x"
	d, _, _ := newDriver(t, opts)

	b, err := d.FitTemplate()
	require.NoError(t, err)
	// From the default start of 1, the first step of 1 lands on the slope.
	assert.Equal(t, 2.0, b.Candidate.Params[0].Value)
}

func TestFitTemplateErrors(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		maxParams int
	}{
		{"missing", "", 7},
		{"malformed", "a * (x +", 7},
		{"too many params", "a*x + b", 1},
		{"no params", "2 * x", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			opts.Template = tt.template
			opts.MaxParams = tt.maxParams
			d, _, _ := newDriver(t, opts)

			_, err := d.FitTemplate()
			assert.Error(t, err)
			assert.False(t, d.Best().Found)
		})
	}
}

func TestAcceptUnconverged(t *testing.T) {
	opts := testOptions()
	opts.Template = "a*x + b"
	opts.TemplateParams = map[string]float64{"a": 0, "b": 0}
	opts.Fit.MaxIterations = 3

	d, _, _ := newDriver(t, opts)
	_, err := d.FitTemplate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrNotConverged))

	opts.AcceptUnconverged = true
	d, _, _ = newDriver(t, opts)
	b, err := d.FitTemplate()
	require.NoError(t, err)
	assert.False(t, b.Converged)
	assert.Equal(t, 3, b.FitIterations)
	assert.False(t, math.IsInf(b.Residual, 0))
}

func TestNelderMeadDriver(t *testing.T) {
	opts := testOptions()
	opts.Algorithm = optimization.NelderMead
	opts.Template = "a*x + b"
	opts.Fit.MinStep = 1e-12
	d, _, _ := newDriver(t, opts)

	b, err := d.FitTemplate()
	require.NoError(t, err)
	assert.Less(t, b.Residual, 1e-4)
}

func TestBind(t *testing.T) {
	e, err := expr.Parse("h + a*exp(k*(x - m))")
	require.NoError(t, err)

	c, err := Bind(e, map[string]float64{"k": -1, "a": 50}, optimization.DefaultSettings().Bounds)
	require.NoError(t, err)

	assert.Equal(t, "h=1, a=5, k=-1, m=1", c.Params.String())
	assert.Equal(t, map[string]float64{"h": 1, "a": 5, "k": -1, "m": 1}, ParamMap(c.Params))
}
