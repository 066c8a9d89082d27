package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/branchprice/colgen/internal/solver"
	"github.com/branchprice/colgen/pkg/config"
	"github.com/branchprice/colgen/pkg/json"
	"github.com/branchprice/colgen/pkg/logger"
	"github.com/branchprice/colgen/pkg/observability"
)

var version = "0.1.0"

// solveOverrides carries flag values that take precedence over the
// configuration file when set.
type solveOverrides struct {
	MaxRounds int
	TimeLimit time.Duration
	LogLevel  string
	TraceFile string
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	root := &cobra.Command{
		Use:   "colgen",
		Short: "Colgen - Column generation engine for branch-and-price solvers",
		Long: `Colgen prices, scores, and admits columns for a restricted master problem.
The solve command runs the built-in cutting stock solver end to end: a knapsack
pricer proposes patterns, the price store selects among them, and a restricted
master LP closes the loop until no pattern prices out negative.`,
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("colgen v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// Main solve command
	var configFile, instanceFile, outputFile string
	var maxRounds int
	var timeLimit time.Duration
	var logLevel, traceFile string

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "Run column generation on a cutting stock instance",
		Long: `Run the cutting stock solver on a YAML instance file. Without --instance
a small built-in instance is solved, which is useful for smoke testing.

Example:
  colgen solve --config examples/cutting_stock.yaml
  colgen solve --instance rolls.yaml --trace solve_trace.jsonl.zst`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(configFile, instanceFile, outputFile, &solveOverrides{
				MaxRounds: maxRounds,
				TimeLimit: timeLimit,
				LogLevel:  logLevel,
				TraceFile: traceFile,
			})
		},
	}

	solveCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to solve configuration YAML file (optional)")
	solveCmd.Flags().StringVarP(&instanceFile, "instance", "i", "", "Path to instance YAML file (default: built-in demo instance)")
	solveCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the JSON solve report to this file instead of stdout")
	solveCmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "Cap on pricing rounds (0 = use config)")
	solveCmd.Flags().DurationVar(&timeLimit, "time-limit", 0, "Wall clock limit for the solve (0 = use config)")
	solveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error; overrides config)")
	solveCmd.Flags().StringVar(&traceFile, "trace", "", "Write per-round trace records to this file (enables tracing)")

	root.AddCommand(solveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSolveConfig builds the solve configuration from an optional YAML
// file plus command line overrides.
func loadSolveConfig(configFile string, overrides *solveOverrides) (*config.SolveConfig, error) {
	cfg := config.NewSolveConfig("colgen-solve")
	if configFile != "" {
		if err := config.Load(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", configFile, err)
		}
	}

	if overrides.MaxRounds > 0 {
		cfg.Search.MaxRounds = overrides.MaxRounds
	}
	if overrides.TimeLimit > 0 {
		cfg.Search.TimeLimit = overrides.TimeLimit
	}
	if overrides.LogLevel != "" {
		cfg.Observability.LogLevel = overrides.LogLevel
	}
	if overrides.TraceFile != "" {
		cfg.Trace.Enabled = true
		cfg.Trace.Path = overrides.TraceFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runSolve executes one column generation solve end to end.
func runSolve(configFile, instanceFile, outputFile string, overrides *solveOverrides) error {
	cfg, err := loadSolveConfig(configFile, overrides)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Observability.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get().With(zap.String("component", "colgen-cli"))

	if cfg.Observability.EnableTracing {
		obsCfg := observability.DefaultConfig()
		obsCfg.Tracing.ServiceVersion = version
		obsCfg.Tracing.SamplingRate = cfg.Observability.TracingSampleRate
		if err := observability.Initialize(obsCfg); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := observability.Shutdown(ctx); err != nil {
				log.Warn("failed to shut down tracing", zap.Error(err))
			}
		}()
	}

	if cfg.Observability.ServesMetrics() {
		go serveMetrics(cfg.Observability.MetricsAddr, log)
	}

	// Flag wins over config; both empty means the built-in instance.
	instancePath := instanceFile
	if instancePath == "" {
		instancePath = cfg.Instance
	}
	inst, err := loadInstance(instancePath)
	if err != nil {
		return err
	}

	log.Info("starting solve",
		zap.String("instance", inst.Name),
		zap.Int("items", len(inst.Items)),
		zap.Int("roll_width", inst.RollWidth),
		zap.Int("max_rounds", cfg.Search.MaxRounds),
		zap.String("mode", string(cfg.Pricing.EfficacyMode)))

	s, err := solver.New(cfg, inst, log)
	if err != nil {
		return fmt.Errorf("failed to build solver: %w", err)
	}

	result, err := s.Solve(context.Background())
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	log.Info("solve completed",
		zap.Float64("objective", result.Objective),
		zap.Int("integer_rolls", result.IntegerRolls),
		zap.Int("rounds", result.Rounds),
		zap.Bool("converged", result.Converged),
		zap.Duration("elapsed", result.Elapsed))

	return writeReport(result, outputFile)
}

// loadInstance reads the instance file, falling back to the built-in
// demo instance when no path is given.
func loadInstance(path string) (*solver.Instance, error) {
	if path == "" {
		return solver.DemoInstance(), nil
	}
	inst, err := solver.LoadInstance(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load instance %s: %w", path, err)
	}
	return inst, nil
}

// writeReport renders the solve result as indented JSON on stdout or
// into the requested file.
func writeReport(result *solver.Result, outputFile string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if outputFile == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outputFile, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", outputFile, err)
	}
	return nil
}

// serveMetrics exposes the Prometheus registry until the process exits.
func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}
