package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/symfit/internal/optimization"
	"github.com/copyleftdev/symfit/internal/search"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.StatusServerEnabled())
	assert.Equal(t, "./data/fit_Dm_4.dat", cfg.Dataset.Path)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)

	opts := cfg.SearchOptions()
	assert.Equal(t, 10, opts.ComplexityMin)
	assert.Equal(t, 30, opts.ComplexityMax)
	assert.Equal(t, 7, opts.MaxParams)
	assert.True(t, math.IsInf(opts.ResidueThreshold, 1))
	assert.Equal(t, 10*time.Second, opts.ProgressInterval)
	assert.Empty(t, opts.Stop)
	assert.Equal(t, optimization.PatternSearch, opts.Algorithm)
	assert.Equal(t, optimization.LeastSquares, opts.Residual)
	assert.Equal(t, optimization.DefaultSettings(), opts.Fit)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SEARCH_SEED", "42")
	t.Setenv("SEARCH_MAX_FITTED", "100")
	t.Setenv("SEARCH_MAX_DURATION", "1m")
	t.Setenv("SEARCH_TEMPLATE", "h + a*exp(k*(x-m))")
	t.Setenv("SEARCH_TEMPLATE_PARAMS", "h:0,a:1,k:-1,m:0")
	t.Setenv("FIT_ALGORITHM", "nelder-mead")
	t.Setenv("FIT_RESIDUAL", "absolute")
	t.Setenv("FIT_PARAM_MIN", "-10")
	t.Setenv("FIT_PARAM_MAX", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.StatusServerEnabled())

	opts := cfg.SearchOptions()
	assert.Equal(t, int64(42), opts.Seed)
	assert.Equal(t, map[string]float64{"h": 0, "a": 1, "k": -1, "m": 0}, opts.TemplateParams)
	assert.Equal(t, optimization.NelderMead, opts.Algorithm)
	assert.Equal(t, optimization.AbsoluteError, opts.Residual)
	assert.Equal(t, optimization.Bounds{Min: -10, Max: 10}, opts.Fit.Bounds)
	assert.Equal(t, []search.StopPolicy{search.MaxFitted(100), search.MaxDuration(time.Minute)}, opts.Stop)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string][2]string{
		"unknown algorithm":   {"FIT_ALGORITHM", "gradient-descent"},
		"unknown residual":    {"FIT_RESIDUAL", "huber"},
		"unknown log format":  {"LOG_FORMAT", "xml"},
		"inverted complexity": {"SEARCH_COMPLEXITY_MIN", "40"},
		"too many params":     {"SEARCH_MAX_PARAMS", "30"},
		"zero min step":       {"FIT_MIN_STEP", "0"},
		"empty bounds":        {"FIT_PARAM_MAX", "-5"},
		"bad template param":  {"SEARCH_TEMPLATE_PARAMS", "xy:1"},
		"not a number":        {"SEARCH_SEED", "seven"},
		"bad address":         {"HTTP_ADDR", "localhost"},
	}

	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
