// Package colgen provides the column-management core of a
// branch-and-price solver: a price store that admits candidate columns
// from pricing oracles, scores them against the running master problem,
// and hands a small diverse batch to the master each round.
//
// Column generation solvers spend their lives in a loop: solve the
// restricted master LP, price out new columns against its duals, add
// the best of them, repeat. The price store owns the middle step. It
// buffers everything the pricers propose inside one round, ranks the
// proposals by reduced cost and diversity, and applies only as many as
// the master can digest.
//
// # Architecture
//
// The store works in rounds that mirror the master's solve loop:
//
// 1. Collect: pricing oracles push candidates through AddCol. Forced
// columns (Farkas rays, branching repairs) bypass scoring; discretionary
// columns wait in the buffer.
//
// 2. Score: each discretionary candidate gets an efficacy from its
// reduced cost, a parallelism measure against the objective, and an
// orthogonality measure against the columns applied so far.
//
// 3. Apply: ApplyCols hands forced columns to the master unconditionally,
// then greedily picks the best-scored discretionary candidates until the
// round cap is hit or no candidate improves the master. The buffer is
// cleared for the next round whether or not the apply succeeds.
//
// # Quick Start
//
// Wire a store between your pricer and your master problem:
//
//	import (
//	    "context"
//	    "github.com/branchprice/colgen/pkg/column"
//	    "github.com/branchprice/colgen/pkg/pricing"
//	    "go.uber.org/zap"
//	)
//
//	// Your master problem implements pricing.Master.
//	store, err := pricing.NewStore("pricer", pricing.DefaultConfig(), master, zap.L())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	for !converged {
//	    duals := master.Solve()
//	    for _, cand := range priceOut(duals) {
//	        store.AddCol(column.NewDense(cand.Coeffs, cand.RedCost, cand.Obj), false)
//	    }
//	    applied, err := store.ApplyCols(context.Background(), false)
//	    // ...
//	}
//
// # Key Packages
//
//	pkg/pricing       - Price store: admission, scoring, selection
//	pkg/column        - Column representation with pooled dense storage
//	pkg/config        - Solve configuration with env substitution
//	pkg/trace         - Compressed per-round solve traces
//	pkg/compression   - Trace codecs (gzip, zstd, lz4, snappy, s2)
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus metrics collection
//	pkg/observability - OpenTelemetry tracing
//	internal/solver   - Cutting stock demo solver (end-to-end reference)
//
// # Scoring
//
// Discretionary candidates are ranked by a weighted score:
//
//	score = effW*efficacy + objParW*objParallelism + orthW*orthogonality
//
// Efficacy is the negated reduced cost (optionally normalized by the
// column norm in steepest-edge mode), so more negative reduced costs
// score higher. Orthogonality is the running minimum distance to the
// columns applied this round; columns below the configured minimum are
// pruned, which keeps the applied batch from collapsing onto one
// direction of the polytope.
//
// # Configuration
//
// Every knob lives in pricing.Config with validated defaults:
//
//	cfg := pricing.DefaultConfig()
//	cfg.EfficacyMode = pricing.EfficacySteepestEdge
//	cfg.OrthogonalityWeight = 0.3
//	cfg.MinOrthogonality = 0.1
//	cfg.MaxCols = 50
//
// YAML solve configs with ${VAR} environment substitution are handled
// by pkg/config; see examples/cutting_stock.yaml.
//
// # Demo
//
// internal/solver solves the classic cutting stock problem by column
// generation: a restricted master LP over cutting patterns priced by an
// exact knapsack oracle, with Farkas recovery when the initial master is
// infeasible. Run it through the CLI:
//
//	colgen solve --config examples/cutting_stock.yaml
package colgen
