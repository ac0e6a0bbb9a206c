package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons recorded by Metrics.Rejected.
const (
	RejectTooManyParams = "too_many_params"
	RejectNoParameters  = "no_parameters"
	RejectNotConverged  = "not_converged"
	RejectDiverged      = "diverged"
	RejectNonFinite     = "non_finite"
)

// Metrics are the Prometheus collectors updated by the search loop.
type Metrics struct {
	Generated     prometheus.Counter
	Fitted        prometheus.Counter
	Rejected      *prometheus.CounterVec
	Improvements  prometheus.Counter
	BestResidual  prometheus.Gauge
	FitIterations prometheus.Histogram
}

// NewMetrics creates the search collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Generated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "symfit",
			Subsystem: "search",
			Name:      "candidates_generated_total",
			Help:      "Total candidate expressions generated",
		}),
		Fitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "symfit",
			Subsystem: "search",
			Name:      "candidates_fitted_total",
			Help:      "Total candidates whose parameters were fitted",
		}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "symfit",
			Subsystem: "search",
			Name:      "candidates_rejected_total",
			Help:      "Total candidates discarded before comparison",
		}, []string{"reason"}),
		Improvements: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "symfit",
			Subsystem: "search",
			Name:      "improvements_total",
			Help:      "Total replacements of the best function",
		}),
		BestResidual: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "symfit",
			Subsystem: "search",
			Name:      "best_residual",
			Help:      "Residual of the best function found so far",
		}),
		FitIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "symfit",
			Subsystem: "fit",
			Name:      "iterations",
			Help:      "Iterations used per successful fit",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 10),
		}),
	}
}
