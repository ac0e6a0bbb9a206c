package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/symfit/internal/config"
	"github.com/copyleftdev/symfit/internal/dataset"
	"github.com/copyleftdev/symfit/internal/expr"
	"github.com/copyleftdev/symfit/internal/logging"
	"github.com/copyleftdev/symfit/internal/optimization"
	"github.com/copyleftdev/symfit/internal/search"
	"github.com/copyleftdev/symfit/internal/server"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "symfit",
		Short: "Search for a closed-form function that fits a dataset",
		Long: `symfit generates random expressions, simplifies them, fits their
parameters to the samples in DATASET_PATH and reports every improvement.
All settings come from the environment.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), false)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "search",
			Short: "Run the search until a stop limit is reached or it is interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), cmd.OutOrStdout(), false)
			},
		},
		&cobra.Command{
			Use:   "fit",
			Short: "Fit SEARCH_TEMPLATE once, seeded from SEARCH_TEMPLATE_PARAMS",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), cmd.OutOrStdout(), true)
			},
		},
		&cobra.Command{
			Use:   "simplify <expression>",
			Short: "Print the simplified form of an expression",
			Long: `Print the simplified form of an expression. Simplification is structural:
constants merged into a free parameter are dropped rather than folded into
its value, so the simplified form only matches the input after a refit.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return simplify(cmd.OutOrStdout(), args[0])
			},
		},
	)
	return root
}

// run loads the configuration and dataset, then either fits the template
// or runs the search, with the status server alongside when enabled.
func run(ctx context.Context, out io.Writer, template bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	runID := uuid.NewString()
	runLogger := logger.WithFields(map[string]interface{}{
		"service": "symfit",
		"run_id":  runID,
	})
	zapLogger := logging.NewZapLogger(runLogger)
	defer func() { _ = zapLogger.Sync() }()

	data, err := dataset.Load(cfg.Dataset.Path)
	if err != nil {
		runLogger.Error("Failed to load dataset", map[string]interface{}{
			"path":  cfg.Dataset.Path,
			"error": err.Error(),
		})
		return err
	}
	runLogger.Info("Dataset loaded", map[string]interface{}{
		"path":    cfg.Dataset.Path,
		"samples": data.Len(),
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := search.NewMetrics(reg)

	driver, err := search.New(cfg.SearchOptions(), data, out, metrics, zapLogger)
	if err != nil {
		return err
	}

	if template {
		if _, err := driver.FitTemplate(); err != nil {
			return fmt.Errorf("unable to fit: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The status server has nothing to report once the search ends.
		defer cancel()
		if err := driver.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfg.StatusServerEnabled() {
		srv := server.NewServer(cfg, driver, reg, runLogger, runID)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	return g.Wait()
}

func simplify(out io.Writer, text string) error {
	e, err := expr.Parse(text)
	if err != nil {
		return err
	}
	c, err := search.Bind(e, nil, optimization.Bounds{Min: math.Inf(-1), Max: math.Inf(1)})
	if err != nil {
		return err
	}
	s := expr.Simplify(c)

	fmt.Fprintf(out, "input:      %s\n", c)
	fmt.Fprintf(out, "simplified: %s\n", s)
	if len(s.Params) > 0 {
		fmt.Fprintf(out, "params:     %s\n", s.Params)
	}
	fmt.Fprintf(out, "nodes:      %d -> %d\n", c.Expr.NodeCount(), s.Expr.NodeCount())
	return nil
}
