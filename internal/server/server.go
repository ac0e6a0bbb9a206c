// Package server exposes a read-only view of a running search over HTTP.
package server

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/symfit/internal/config"
	"github.com/copyleftdev/symfit/internal/errors"
	"github.com/copyleftdev/symfit/internal/expr"
	"github.com/copyleftdev/symfit/internal/logging"
	"github.com/copyleftdev/symfit/internal/optimization"
	"github.com/copyleftdev/symfit/internal/search"
)

// SnapshotSource is implemented by search.Driver.
type SnapshotSource interface {
	Snapshot() search.Snapshot
}

// Server serves health, metrics and the state of one search run.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	source   SnapshotSource
	gatherer prometheus.Gatherer
	runID    string
}

// NewServer creates a status server for the search behind source. Metrics
// are served from gatherer.
func NewServer(cfg *config.Config, source SnapshotSource, gatherer prometheus.Gatherer, logger *logging.Logger, runID string) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		source:   source,
		gatherer: gatherer,
		runID:    runID,
	}
}

// Router returns the handler with the middleware chain and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(errors.RecoveryMiddleware(s.logger))
	r.Use(errors.ErrorHandler(s.logger))
	if s.cfg.HTTP.WriteTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.HTTP.WriteTimeout))
	}
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the endpoints on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/best", s.handleBest)
		r.Get("/stats", s.handleStats)
		r.Post("/simplify", s.handleSimplify)
	})
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTP.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.HTTP.Addr).WithComponent("server").WithOperation("Run")
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting status server", map[string]interface{}{
			"address": ln.Addr().String(),
		})
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "serve").WithComponent("server").WithOperation("Serve")
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down status server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown").WithComponent("server").WithOperation("Serve")
	}
	s.logger.Info("Status server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// bestResponse describes the best function. Residual and RSquared are null
// while they are not finite.
type bestResponse struct {
	RunID         string             `json:"run_id"`
	Found         bool               `json:"found"`
	Function      string             `json:"function"`
	Plot          string             `json:"plot"`
	Params        map[string]float64 `json:"params"`
	Residual      *float64           `json:"residual"`
	RSquared      *float64           `json:"r_squared"`
	FitIterations int                `json:"fit_iterations"`
	Converged     bool               `json:"converged"`
	FoundAt       *time.Time         `json:"found_at,omitempty"`
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	b := s.source.Snapshot().Best

	resp := bestResponse{
		RunID:         s.runID,
		Found:         b.Found,
		Function:      b.Candidate.String(),
		Plot:          b.Candidate.PlotString(),
		Params:        search.ParamMap(b.Candidate.Params),
		Residual:      finite(b.Residual),
		RSquared:      finite(b.RSquared),
		FitIterations: b.FitIterations,
		Converged:     b.Converged,
	}
	if b.Found {
		resp.FoundAt = &b.FoundAt
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	RunID              string    `json:"run_id"`
	Generated          uint64    `json:"generated"`
	Fitted             uint64    `json:"fitted"`
	Rejected           uint64    `json:"rejected"`
	Improvements       uint64    `json:"improvements"`
	StartedAt          time.Time `json:"started_at"`
	ElapsedSeconds     float64   `json:"elapsed_seconds"`
	GeneratedPerSecond float64   `json:"generated_per_second"`
	FittedPerSecond    float64   `json:"fitted_per_second"`
	BestResidual       *float64  `json:"best_residual"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	st := snap.Stats

	s.respondJSON(w, http.StatusOK, statsResponse{
		RunID:              s.runID,
		Generated:          st.Generated,
		Fitted:             st.Fitted,
		Rejected:           st.Rejected,
		Improvements:       st.Improvements,
		StartedAt:          st.Started,
		ElapsedSeconds:     st.Elapsed.Seconds(),
		GeneratedPerSecond: st.GeneratedRate(),
		FittedPerSecond:    st.FittedRate(),
		BestResidual:       finite(snap.Best.Residual),
	})
}

type simplifyRequest struct {
	Expression string             `json:"expression"`
	Params     map[string]float64 `json:"params"`
}

type simplifyResponse struct {
	Expression  string             `json:"expression"`
	Params      map[string]float64 `json:"params"`
	NodesBefore int                `json:"nodes_before"`
	NodesAfter  int                `json:"nodes_after"`
}

// handleSimplify runs the simplifier on a posted expression. Parameters
// without a value start at search.DefaultParamValue. The result is
// structural: an absorbed parameter keeps its own value, so the returned
// params are starting values for a refit and need not reproduce the input.
func (s *Server) handleSimplify(w http.ResponseWriter, r *http.Request) {
	var req simplifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	e, err := expr.Parse(req.Expression)
	if err != nil {
		logging.FromContext(r.Context()).Debug("Rejected expression", map[string]interface{}{
			"expression": req.Expression,
			"error":      err.Error(),
		})
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := search.Bind(e, req.Params, optimization.Bounds{Min: math.Inf(-1), Max: math.Inf(1)})
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	simplified := expr.Simplify(c)
	s.respondJSON(w, http.StatusOK, simplifyResponse{
		Expression:  simplified.String(),
		Params:      search.ParamMap(simplified.Params),
		NodesBefore: c.Expr.NodeCount(),
		NodesAfter:  simplified.Expr.NodeCount(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
