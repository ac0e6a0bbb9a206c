// Package config loads symfit settings from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"

	"github.com/copyleftdev/symfit/internal/errors"
	"github.com/copyleftdev/symfit/internal/optimization"
	"github.com/copyleftdev/symfit/internal/search"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development" validate:"oneof=development staging production"`
	HTTP        struct {
		// Addr enables the status server when non-empty.
		Addr            string        `env:"HTTP_ADDR" validate:"omitempty,hostname_port"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s" validate:"gte=0"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s" validate:"gte=0"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s" validate:"gte=0"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s" validate:"gte=0"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error fatal DEBUG INFO WARN ERROR FATAL"`
		Format string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text auto"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr" validate:"required"`
	}
	Dataset struct {
		Path string `env:"DATASET_PATH" envDefault:"./data/fit_Dm_4.dat" validate:"required"`
	}
	Search struct {
		Seed              int64              `env:"SEARCH_SEED" envDefault:"0"`
		ComplexityMin     int                `env:"SEARCH_COMPLEXITY_MIN" envDefault:"10" validate:"gte=0"`
		ComplexityMax     int                `env:"SEARCH_COMPLEXITY_MAX" envDefault:"30" validate:"gtefield=ComplexityMin"`
		MaxParams         int                `env:"SEARCH_MAX_PARAMS" envDefault:"7" validate:"gte=0,lte=24"`
		ResidueThreshold  float64            `env:"SEARCH_RESIDUE_THRESHOLD" envDefault:"+Inf"`
		MaxGenerated      uint64             `env:"SEARCH_MAX_GENERATED" envDefault:"0"`
		MaxFitted         uint64             `env:"SEARCH_MAX_FITTED" envDefault:"0"`
		MaxDuration       time.Duration      `env:"SEARCH_MAX_DURATION" envDefault:"0s" validate:"gte=0"`
		ProgressInterval  time.Duration      `env:"SEARCH_PROGRESS_INTERVAL" envDefault:"10s" validate:"gte=0"`
		AcceptUnconverged bool               `env:"SEARCH_ACCEPT_UNCONVERGED" envDefault:"false"`
		Template          string             `env:"SEARCH_TEMPLATE"`
		TemplateParams    map[string]float64 `env:"SEARCH_TEMPLATE_PARAMS" envKeyValSeparator:":" envSeparator:","`
	}
	Fit struct {
		Algorithm           string  `env:"FIT_ALGORITHM" envDefault:"pattern-search" validate:"oneof=pattern-search nelder-mead"`
		Residual            string  `env:"FIT_RESIDUAL" envDefault:"least-squares" validate:"oneof=least-squares absolute"`
		ParamMin            float64 `env:"FIT_PARAM_MIN" envDefault:"-5"`
		ParamMax            float64 `env:"FIT_PARAM_MAX" envDefault:"5" validate:"gtfield=ParamMin"`
		MinStep             float64 `env:"FIT_MIN_STEP" envDefault:"1e-3" validate:"gt=0"`
		MaxIterations       int     `env:"FIT_MAX_ITERATIONS" envDefault:"1000" validate:"gte=1"`
		InitialStepFraction float64 `env:"FIT_INITIAL_STEP_FRACTION" envDefault:"0.1" validate:"gt=0,lte=1"`
	}
}

var validate = validator.New()

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment").WithComponent("config").WithOperation("Load")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the search options they produce.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration").WithComponent("config").WithOperation("Validate")
	}
	if err := c.SearchOptions().Validate(); err != nil {
		return errors.Wrap(err, "invalid search options").WithComponent("config").WithOperation("Validate")
	}
	return nil
}

// FitSettings returns the fit engine settings.
func (c *Config) FitSettings() optimization.Settings {
	return optimization.Settings{
		Bounds:              optimization.Bounds{Min: c.Fit.ParamMin, Max: c.Fit.ParamMax},
		MinStep:             c.Fit.MinStep,
		MaxIterations:       c.Fit.MaxIterations,
		InitialStepFraction: c.Fit.InitialStepFraction,
	}
}

// SearchOptions returns the search driver options.
func (c *Config) SearchOptions() search.Options {
	return search.Options{
		Seed:              c.Search.Seed,
		ComplexityMin:     c.Search.ComplexityMin,
		ComplexityMax:     c.Search.ComplexityMax,
		MaxParams:         c.Search.MaxParams,
		ResidueThreshold:  c.Search.ResidueThreshold,
		AcceptUnconverged: c.Search.AcceptUnconverged,
		ProgressInterval:  c.Search.ProgressInterval,
		Stop:              search.StopPolicies(c.Search.MaxGenerated, c.Search.MaxFitted, c.Search.MaxDuration),
		Template:          c.Search.Template,
		TemplateParams:    c.Search.TemplateParams,
		Algorithm:         optimization.Algorithm(c.Fit.Algorithm),
		Residual:          optimization.ResidualKind(c.Fit.Residual),
		Fit:               c.FitSettings(),
	}
}

// StatusServerEnabled reports whether HTTP_ADDR was set.
func (c *Config) StatusServerEnabled() bool {
	return c.HTTP.Addr != ""
}
