// Command profile captures pprof profiles around a synthetic price
// store workload, so the store's scoring and selection paths show up
// under real load.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/branchprice/colgen/pkg/column"
	"github.com/branchprice/colgen/pkg/pricing"
)

func main() {
	// Command-line flags
	var (
		duration     = flag.Duration("duration", 30*time.Second, "Profiling duration")
		outputDir    = flag.String("output", "./profiles", "Output directory for profiles")
		profileTypes = flag.String("types", "cpu,memory", "Profile types (cpu,memory,block,mutex,goroutine,all)")
		cpuFile      = flag.String("cpuprofile", "", "Write CPU profile to file")
		memFile      = flag.String("memprofile", "", "Write memory profile to file")
		candidates   = flag.Int("candidates", 500, "Candidate columns per round")
		dim          = flag.Int("dim", 128, "Coefficient vector dimension")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -types cpu -duration 30s\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -cpuprofile cpu.prof -memprofile mem.prof\n", os.Args[0])
	}

	flag.Parse()

	types := parseProfileTypes(*profileTypes)

	fmt.Printf("Profiling the price store for %v...\n", *duration)
	fmt.Printf("Profile types: %s\n", *profileTypes)
	fmt.Printf("Output directory: %s\n", *outputDir)

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// Start CPU profiling if requested
	if *cpuFile != "" || contains(types, "cpu") {
		cpuProfileFile := *cpuFile
		if cpuProfileFile == "" {
			cpuProfileFile = fmt.Sprintf("%s/cpu.prof", *outputDir)
		}

		f, err := os.Create(cpuProfileFile)
		if err != nil {
			log.Fatalf("Failed to create CPU profile: %v", err)
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Failed to start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()

		fmt.Printf("CPU profiling enabled, writing to: %s\n", cpuProfileFile)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	if err := runStoreWorkload(ctx, *candidates, *dim); err != nil {
		log.Fatalf("Workload failed: %v", err)
	}

	// Write memory profile if requested
	if *memFile != "" || contains(types, "memory") {
		memProfileFile := *memFile
		if memProfileFile == "" {
			memProfileFile = fmt.Sprintf("%s/mem.prof", *outputDir)
		}

		f, err := os.Create(memProfileFile)
		if err != nil {
			log.Fatalf("Failed to create memory profile: %v", err)
		}
		defer f.Close()

		runtime.GC() // Get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatalf("Failed to write memory profile: %v", err)
		}

		fmt.Printf("Memory profile written to: %s\n", memProfileFile)
	}

	// Write other profiles
	for _, profileType := range types {
		switch profileType {
		case "block":
			writeProfile("block", fmt.Sprintf("%s/block.prof", *outputDir))
		case "mutex":
			writeProfile("mutex", fmt.Sprintf("%s/mutex.prof", *outputDir))
		case "goroutine":
			writeProfile("goroutine", fmt.Sprintf("%s/goroutine.prof", *outputDir))
		}
	}

	fmt.Printf("Profiling completed successfully\n")
}

// discardMaster accepts every column; the workload measures the store,
// not a master problem.
type discardMaster struct{}

func (discardMaster) AddColumn(_ context.Context, col column.Column, _ bool) (bool, error) {
	col.Release()
	return true, nil
}

// runStoreWorkload drives admit/apply rounds against the price store
// until the context expires. The diversity pass is enabled so the
// orthogonality maintenance cost is visible in profiles.
func runStoreWorkload(ctx context.Context, candidates, dim int) error {
	cfg := pricing.DefaultConfig()
	cfg.MaxCols = 30
	cfg.MaxColsRoot = 30
	cfg.OrthogonalityWeight = 0.3
	cfg.MinOrthogonality = 0.1

	store, err := pricing.NewStore("profile", cfg, discardMaster{}, zap.NewNop())
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(1))
	scratch := make([]float64, dim)
	rounds := 0

	for {
		select {
		case <-ctx.Done():
			fmt.Printf("Workload completed: %d rounds, %d columns applied\n",
				rounds, store.GetMetrics().TotalColumnsApplied)
			return store.Close()
		default:
		}

		for i := 0; i < candidates; i++ {
			store.AddCol(randomColumn(rng, scratch), false)
		}
		if _, err := store.ApplyCols(context.Background(), false); err != nil {
			return err
		}
		rounds++
	}
}

// randomColumn builds a sparse candidate in scratch space with a mostly
// negative reduced cost.
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

// writeProfile writes a specific profile type to file
func writeProfile(profileName, filename string) {
	profile := pprof.Lookup(profileName)
	if profile == nil {
		fmt.Printf("Profile %s not found\n", profileName)
		return
	}

	f, err := os.Create(filename)
	if err != nil {
		log.Printf("Failed to create %s profile: %v", profileName, err)
		return
	}
	defer f.Close()

	if err := profile.WriteTo(f, 0); err != nil {
		log.Printf("Failed to write %s profile: %v", profileName, err)
		return
	}

	fmt.Printf("%s profile written to: %s\n", profileName, filename)
}

// parseProfileTypes parses the profile types string
func parseProfileTypes(typesStr string) []string {
	if typesStr == "all" {
		return []string{"cpu", "memory", "block", "mutex", "goroutine"}
	}

	parts := strings.Split(typesStr, ",")
	types := make([]string, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "cpu", "memory", "mem", "block", "mutex", "goroutine":
			if part == "mem" {
				part = "memory"
			}
			types = append(types, part)
		}
	}

	return types
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
