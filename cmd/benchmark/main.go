// Command benchmark stress-tests the price store in process. Synthetic
// candidate batches are admitted and applied over many rounds against a
// master that accepts everything, so the figures isolate the store's
// scoring and selection cost. Results land in a timestamped JSON file.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/branchprice/colgen/pkg/column"
	"github.com/branchprice/colgen/pkg/json"
	"github.com/branchprice/colgen/pkg/logger"
	"github.com/branchprice/colgen/pkg/metrics"
	"github.com/branchprice/colgen/pkg/performance"
	"github.com/branchprice/colgen/pkg/pricing"
)

var (
	rounds      = flag.Int("rounds", 200, "Number of pricing rounds to simulate")
	candidates  = flag.Int("candidates", 500, "Candidate columns per round")
	dim         = flag.Int("dim", 128, "Coefficient vector dimension")
	maxCols     = flag.Int("max-cols", 30, "Columns applied per round")
	mode        = flag.String("mode", "dantzig", "Efficacy mode (dantzig, steepest-edge)")
	orthoWeight = flag.Float64("ortho-weight", 0, "Orthogonality weight; > 0 enables the diversity pass")
	minOrtho    = flag.Float64("min-ortho", 0, "Prune candidates whose orthogonality falls below this")
	outputDir   = flag.String("output", "benchmark-results", "Output directory for results")
	seed        = flag.Int64("seed", 1, "Random seed for candidate generation")
	verbose     = flag.Bool("v", false, "Verbose logging")
)

// benchResult is the JSON shape written to the results file.
type benchResult struct {
	Timestamp           string  `json:"timestamp"`
	GoVersion           string  `json:"go_version"`
	Rounds              int     `json:"rounds"`
	CandidatesPerRound  int     `json:"candidates_per_round"`
	Dimension           int     `json:"dimension"`
	MaxCols             int     `json:"max_cols"`
	Mode                string  `json:"mode"`
	OrthogonalityWeight float64 `json:"orthogonality_weight"`
	MinOrthogonality    float64 `json:"min_orthogonality"`
	Seed                int64   `json:"seed"`

	ColumnsFound   int64         `json:"columns_found"`
	ColumnsApplied int64         `json:"columns_applied"`
	ColumnsPruned  int64         `json:"columns_pruned"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	AddsPerSecond  float64       `json:"adds_per_second"`
	ApplyP50       time.Duration `json:"apply_p50_ns"`
	ApplyP95       time.Duration `json:"apply_p95_ns"`
	ApplyP99       time.Duration `json:"apply_p99_ns"`
	ApplyMean      time.Duration `json:"apply_mean_ns"`

	CPUPercent          float64 `json:"cpu_percent"`
	MemoryRSSMB         uint64  `json:"memory_rss_mb"`
	HeapAllocMB         uint64  `json:"heap_alloc_mb"`
	SystemMemoryPercent float64 `json:"system_memory_percent"`
	GCCount             uint32  `json:"gc_count"`
}

// discardMaster accepts every column, so runs measure the store's
// selection cost rather than master behavior.
type discardMaster struct {
	accepted int64
}

func (m *discardMaster) AddColumn(_ context.Context, col column.Column, _ bool) (bool, error) {
	m.accepted++
	col.Release()
	return true, nil
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	timestamp := time.Now().Format("20060102-150405")

	logCfg := logger.Config{Level: "warn", Encoding: "console", Development: true}
	if *verbose {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get().With(zap.String("component", "benchmark"))

	cfg := pricing.DefaultConfig()
	cfg.MaxCols = *maxCols
	cfg.MaxColsRoot = *maxCols
	cfg.EfficacyMode = pricing.EfficacyMode(*mode)
	cfg.OrthogonalityWeight = *orthoWeight
	cfg.MinOrthogonality = *minOrtho

	master := &discardMaster{}
	store, err := pricing.NewStore("bench", cfg, master, log)
	if err != nil {
		return err
	}

	fmt.Println("=== Price Store Benchmark ===")
	fmt.Printf("Timestamp: %s\n", timestamp)
	fmt.Printf("Rounds: %d, candidates/round: %d, dim: %d, cap: %d, mode: %s\n\n",
		*rounds, *candidates, *dim, *maxCols, *mode)

	rng := rand.New(rand.NewSource(*seed))
	monitor := performance.NewResourceMonitor()
	applyLatency := performance.NewLatencyTracker()
	throughput := metrics.NewThroughputTracker("bench")
	scratch := make([]float64, *dim)

	ctx := context.Background()
	start := time.Now()

	for round := 0; round < *rounds; round++ {
		for i := 0; i < *candidates; i++ {
			store.AddCol(randomColumn(rng, scratch), false)
		}
		throughput.Increment(int64(*candidates))

		timer := metrics.NewTimer("apply_cols")
		if _, err := store.ApplyCols(ctx, false); err != nil {
			return fmt.Errorf("apply failed in round %d: %w", round, err)
		}
		applyLatency.Record(timer.Stop())
	}

	elapsed := time.Since(start)
	addsPerSecond := throughput.GetAndReset()
	storeMetrics := store.GetMetrics()

	if err := store.Close(); err != nil {
		return err
	}

	usage, err := monitor.GetResourceUsage()
	if err != nil {
		return fmt.Errorf("failed to sample resources: %w", err)
	}

	p50, p95, p99 := applyLatency.GetPercentiles()
	result := benchResult{
		Timestamp:           timestamp,
		GoVersion:           runtime.Version(),
		Rounds:              *rounds,
		CandidatesPerRound:  *candidates,
		Dimension:           *dim,
		MaxCols:             *maxCols,
		Mode:                *mode,
		OrthogonalityWeight: *orthoWeight,
		MinOrthogonality:    *minOrtho,
		Seed:                *seed,
		ColumnsFound:        storeMetrics.TotalColumnsFound,
		ColumnsApplied:      storeMetrics.TotalColumnsApplied,
		ColumnsPruned:       storeMetrics.TotalColumnsPruned,
		Elapsed:             elapsed,
		AddsPerSecond:       addsPerSecond,
		ApplyP50:            p50,
		ApplyP95:            p95,
		ApplyP99:            p99,
		ApplyMean:           applyLatency.Mean(),
		CPUPercent:          usage.CPUPercent,
		MemoryRSSMB:         usage.MemoryRSS / 1024 / 1024,
		HeapAllocMB:         usage.HeapAllocMB,
		SystemMemoryPercent: usage.SystemMemoryPercent,
		GCCount:             usage.GCCount,
	}

	outputFile := filepath.Join(*outputDir, fmt.Sprintf("store_bench_%s.json", timestamp))
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(outputFile, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	fmt.Printf("Columns found:    %d\n", result.ColumnsFound)
	fmt.Printf("Columns applied:  %d (master accepted %d)\n", result.ColumnsApplied, master.accepted)
	fmt.Printf("Columns pruned:   %d\n", result.ColumnsPruned)
	fmt.Printf("Adds/second:      %.0f\n", result.AddsPerSecond)
	fmt.Printf("Apply p50/p95/p99: %v / %v / %v\n", p50, p95, p99)
	fmt.Printf("CPU: %.1f%%, RSS: %d MB, heap: %d MB\n",
		result.CPUPercent, result.MemoryRSSMB, result.HeapAllocMB)
	fmt.Printf("\nBenchmark results saved to: %s\n", outputFile)

	return nil
}

// randomColumn builds a sparse candidate in scratch space. Most reduced
// costs are negative so selection does real work; roughly one in ten is
// non-improving and must be left behind by ApplyCols.
func randomColumn(rng *rand.Rand, scratch []float64) *column.Dense {
	for i := range scratch {
		scratch[i] = 0
	}
	nnz := len(scratch) / 8
	if nnz < 1 {
		nnz = 1
	}
	for i := 0; i < nnz; i++ {
		scratch[rng.Intn(len(scratch))] = float64(rng.Intn(4) + 1)
	}

	redCost := -rng.Float64()
	if rng.Float64() < 0.1 {
		redCost = 0.1 * rng.Float64()
	}
	return column.NewDense(scratch, redCost, 1.0)
}
