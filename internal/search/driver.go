// Package search runs the generate, simplify, fit and compare loop that
// looks for the expression best describing a dataset.
package search

import (
	"context"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/copyleftdev/symfit/internal/dataset"
	"github.com/copyleftdev/symfit/internal/errors"
	"github.com/copyleftdev/symfit/internal/expr"
	"github.com/copyleftdev/symfit/internal/optimization"
)

const component = "search"

// Outcome is the fate of one generated candidate.
type Outcome int

const (
	// OutcomeRejected means the candidate was discarded before comparison.
	OutcomeRejected Outcome = iota
	// OutcomeFitted means the candidate was fitted but did not beat the best.
	OutcomeFitted
	// OutcomeImproved means the candidate replaced the best function.
	OutcomeImproved
)

// Best is the best function found so far. Before any improvement it holds
// the sentinel x with the residue threshold as its residual.
type Best struct {
	Candidate     *expr.Candidate
	Residual      float64
	RSquared      float64
	FitIterations int
	Converged     bool
	FoundAt       time.Time
	Found         bool
}

// Stats are the running counters of a search.
type Stats struct {
	Generated    uint64
	Fitted       uint64
	Rejected     uint64
	Improvements uint64
	Started      time.Time
	Elapsed      time.Duration
}

// GeneratedRate returns candidates generated per second.
func (s Stats) GeneratedRate() float64 { return perSecond(s.Generated, s.Elapsed) }

// FittedRate returns candidates fitted per second.
func (s Stats) FittedRate() float64 { return perSecond(s.Fitted, s.Elapsed) }

func perSecond(n uint64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

// Snapshot is a consistent copy of the search state for concurrent readers.
type Snapshot struct {
	Best  Best
	Stats Stats
}

// Driver owns the search loop. Run, Step and FitTemplate must be called
// from a single goroutine; Snapshot, Best and Stats may be called from any.
type Driver struct {
	opts     Options
	gen      *expr.Generator
	residual *optimization.Residual
	fitter   optimization.Fitter
	reporter *Reporter
	metrics  *Metrics
	logger   *zap.Logger
	progress *rate.Sometimes
	now      func() time.Time

	mu    sync.RWMutex
	best  Best
	stats Stats
}

// New builds a Driver searching for functions that fit data. The
// transcript goes to out.
func New(opts Options, data *dataset.Dataset, out io.Writer, metrics *Metrics, logger *zap.Logger) (*Driver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named(component)
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	residual := optimization.NewResidual(opts.Residual, data)
	fitter, err := NewFitter(opts.Algorithm, opts.Fit, residual, logger)
	if err != nil {
		return nil, errors.Wrap(err, "create fitter").WithComponent(component).WithOperation("New")
	}

	d := &Driver{
		opts:     opts,
		gen:      expr.NewGenerator(rng, opts.Fit.Bounds.Min, opts.Fit.Bounds.Max),
		residual: residual,
		fitter:   fitter,
		reporter: NewReporter(out),
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		best: Best{
			Candidate: &expr.Candidate{Expr: &expr.Var{}},
			Residual:  opts.ResidueThreshold,
			RSquared:  math.NaN(),
		},
	}
	if opts.ProgressInterval > 0 {
		d.progress = &rate.Sometimes{Interval: opts.ProgressInterval}
	}
	d.stats.Started = d.now()
	metrics.BestResidual.Set(opts.ResidueThreshold)

	logger.Info("Search configured",
		zap.Int64("seed", seed),
		zap.Int("samples", data.Len()),
		zap.Int("complexity_min", opts.ComplexityMin),
		zap.Int("complexity_max", opts.ComplexityMax),
		zap.Int("max_params", opts.MaxParams),
		zap.String("algorithm", string(opts.Algorithm)),
		zap.String("residual", string(opts.Residual)),
	)
	return d, nil
}

// Run searches until a stop policy fires or ctx is cancelled. It returns
// nil when a policy stopped the search and ctx.Err() on cancellation.
func (d *Driver) Run(ctx context.Context) error {
	d.mu.Lock()
	d.stats.Started = d.now()
	d.mu.Unlock()

	if d.progress != nil {
		// The first Do always fires; spend it so the first line comes
		// one interval in.
		d.progress.Do(func() {})
	}
	d.logger.Info("Search started", zap.Int("stop_policies", len(d.opts.Stop)))

	for {
		if err := ctx.Err(); err != nil {
			d.finish("interrupted", d.Stats())
			return err
		}

		stats := d.Stats()
		for _, p := range d.opts.Stop {
			if reason, stop := p.ShouldStop(stats); stop {
				d.finish(reason, stats)
				return nil
			}
		}

		d.Step()

		if d.progress != nil {
			d.progress.Do(func() { d.reporter.Throughput(d.Stats()) })
		}
	}
}

// Step generates, simplifies, fits and compares one candidate.
func (d *Driver) Step() Outcome {
	c := d.gen.Generate(d.gen.Budget(d.opts.ComplexityMin, d.opts.ComplexityMax))
	d.mu.Lock()
	d.stats.Generated++
	d.mu.Unlock()
	d.metrics.Generated.Inc()

	c = expr.Simplify(c)
	if len(c.Params) > d.opts.MaxParams {
		return d.reject(RejectTooManyParams, c, nil)
	}

	res, err := d.fit(c)
	if err != nil {
		return d.reject(rejectReason(err), c, err)
	}
	d.fitted(res)

	if !isFinite(res.Residual) {
		return d.reject(RejectNonFinite, c, nil)
	}
	if res.Residual > d.bestResidual() {
		return OutcomeFitted
	}

	b := d.record(c, res)
	d.reporter.Throughput(d.Stats())
	d.reporter.NewBest(b)
	return OutcomeImproved
}

// FitTemplate fits the configured template once and records it as the
// best function. Parameters missing from TemplateParams start at
// DefaultParamValue.
func (d *Driver) FitTemplate() (Best, error) {
	const op = "FitTemplate"

	if d.opts.Template == "" {
		return Best{}, errors.New("no template configured").
			WithComponent(component).WithOperation(op)
	}
	e, err := expr.Parse(d.opts.Template)
	if err != nil {
		return Best{}, errors.Wrap(err, "parse template").
			WithComponent(component).WithOperation(op)
	}

	if n := len(expr.ParamNames(e)); n > d.opts.MaxParams {
		return Best{}, errors.Errorf("template uses %d parameters, at most %d allowed", n, d.opts.MaxParams).
			WithComponent(component).WithOperation(op)
	}
	c, err := Bind(e, d.opts.TemplateParams, d.opts.Fit.Bounds)
	if err != nil {
		return Best{}, errors.Wrap(err, "bind template").
			WithComponent(component).WithOperation(op)
	}
	for name := range d.opts.TemplateParams {
		if c.Params.Index([]rune(name)[0]) < 0 {
			d.logger.Warn("Template parameter not used", zap.String("param", name))
		}
	}

	d.reporter.Template(e.String())
	d.mu.Lock()
	d.stats.Generated++
	d.mu.Unlock()
	d.metrics.Generated.Inc()

	res, err := d.fit(c)
	if err != nil {
		d.reject(rejectReason(err), c, err)
		return Best{}, errors.Wrap(err, "fit template").
			WithComponent(component).WithOperation(op)
	}
	d.fitted(res)

	b := d.record(c, res)
	d.reporter.Result(b)
	return b, nil
}

// Snapshot returns a copy of the best function and counters.
func (d *Driver) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	b := d.best
	b.Candidate = b.Candidate.Clone()
	return Snapshot{Best: b, Stats: d.statsLocked()}
}

// Best returns a copy of the best function found so far.
func (d *Driver) Best() Best {
	return d.Snapshot().Best
}

// Stats returns the current counters.
func (d *Driver) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.statsLocked()
}

func (d *Driver) statsLocked() Stats {
	s := d.stats
	s.Elapsed = d.now().Sub(s.Started)
	return s
}

func (d *Driver) bestResidual() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.best.Residual
}

// fit runs the fitter, turning an unconverged fit into a result when the
// options allow it.
func (d *Driver) fit(c *expr.Candidate) (*optimization.FitResult, error) {
	res, err := d.fitter.Fit(c)
	if err == nil {
		return res, nil
	}
	fe, ok := optimization.AsFitError(err)
	if ok && d.opts.AcceptUnconverged && fe.Kind == optimization.NotConverged && isFinite(fe.Residual) {
		return &optimization.FitResult{Residual: fe.Residual, Iterations: fe.Iterations}, nil
	}
	return nil, err
}

func (d *Driver) fitted(res *optimization.FitResult) {
	d.mu.Lock()
	d.stats.Fitted++
	d.mu.Unlock()
	d.metrics.Fitted.Inc()
	d.metrics.FitIterations.Observe(float64(res.Iterations))
}

func (d *Driver) record(c *expr.Candidate, res *optimization.FitResult) Best {
	b := Best{
		Candidate:     c,
		Residual:      res.Residual,
		RSquared:      d.residual.RSquared(c),
		FitIterations: res.Iterations,
		Converged:     res.Converged,
		FoundAt:       d.now(),
		Found:         true,
	}

	d.mu.Lock()
	d.best = b
	d.stats.Improvements++
	d.mu.Unlock()

	d.metrics.Improvements.Inc()
	d.metrics.BestResidual.Set(b.Residual)
	d.logger.Info("New best function",
		zap.String("function", c.String()),
		zap.Stringer("params", c.Params),
		zap.Float64("residual", b.Residual),
		zap.Float64("r_squared", b.RSquared),
		zap.Int("fit_iterations", b.FitIterations),
	)
	return b
}

func (d *Driver) reject(reason string, c *expr.Candidate, err error) Outcome {
	d.mu.Lock()
	d.stats.Rejected++
	d.mu.Unlock()
	d.metrics.Rejected.WithLabelValues(reason).Inc()
	d.logger.Debug("Candidate rejected",
		zap.String("reason", reason),
		zap.String("function", c.String()),
		zap.Int("params", len(c.Params)),
		zap.Error(err),
	)
	return OutcomeRejected
}

func (d *Driver) finish(reason string, s Stats) {
	b := d.Best()
	d.logger.Info("Search stopped",
		zap.String("reason", reason),
		zap.Uint64("generated", s.Generated),
		zap.Uint64("fitted", s.Fitted),
		zap.Uint64("rejected", s.Rejected),
		zap.Uint64("improvements", s.Improvements),
		zap.Float64("best_residual", b.Residual),
		zap.String("best_function", b.Candidate.String()),
	)
	d.reporter.Stopped(reason, s)
}

func rejectReason(err error) string {
	fe, ok := optimization.AsFitError(err)
	if !ok {
		return RejectDiverged
	}
	switch fe.Kind {
	case optimization.NoParameters:
		return RejectNoParameters
	case optimization.NotConverged:
		return RejectNotConverged
	default:
		return RejectDiverged
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
