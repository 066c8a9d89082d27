// Package metrics provides performance tracking and observability for
// colgen using Prometheus metrics. It offers collectors for the pricing
// engine's key indicators: column volume, selection latency, pruning
// behavior, and master problem progress.
//
// # Overview
//
// The metrics package provides:
//   - Prometheus-compatible metrics collection
//   - Pre-defined metrics for the pricing loop
//   - Throughput and latency tracking utilities
//   - Thread-safe metric recording
//   - Automatic metric registration
//
// # Basic Usage
//
//	// Record admitted columns
//	metrics.ColumnsFound.WithLabelValues("redcost").Add(12)
//
//	// Track a selection pass
//	timer := metrics.NewTimer("apply_cols")
//	applied := store.ApplyCols(ctx, root)
//	metrics.PricingLatency.WithLabelValues("apply", "redcost").
//	    Observe(float64(timer.Stop().Nanoseconds()))
//
// # Metric Types
//
// Counter: Monotonically increasing values (e.g., total columns found)
// Gauge: Values that can go up or down (e.g., resident columns)
// Histogram: Distribution of values (e.g., latency percentiles)
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ColumnsFound tracks the total number of candidate columns admitted
	// to the price store.
	// Labels: phase (farkas/redcost)
	//
	// Example:
	//	metrics.ColumnsFound.WithLabelValues("redcost").Inc()
	ColumnsFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colgen_columns_found_total",
			Help: "Total number of candidate columns admitted to the price store",
		},
		[]string{"phase"},
	)

	// ColumnsApplied tracks columns materialized into the master problem.
	// Labels: phase (farkas/redcost), kind (forced/discretionary)
	ColumnsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colgen_columns_applied_total",
			Help: "Total number of columns added to the master problem",
		},
		[]string{"phase", "kind"},
	)

	// ColumnsPruned tracks columns removed without being applied.
	// Labels: reason (orthogonality/inefficacious/cleared)
	ColumnsPruned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colgen_columns_pruned_total",
			Help: "Total number of candidate columns discarded before application",
		},
		[]string{"reason"},
	)

	// PricingLatency tracks the distribution of price store operation
	// latencies in nanoseconds. The buckets are optimized for
	// sub-millisecond admission and per-round selection passes.
	// Labels: operation (add/apply), phase (farkas/redcost)
	//
	// Example:
	//	start := time.Now()
	//	store.ApplyCols(ctx, root)
	//	metrics.PricingLatency.WithLabelValues("apply", "redcost").
	//	    Observe(float64(time.Since(start).Nanoseconds()))
	PricingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "colgen_pricing_latency_nanoseconds",
			Help: "Price store operation latency in nanoseconds",
			Buckets: []float64{
				100,    // 100ns - single admission
				1000,   // 1μs - admission with norm caching
				10000,  // 10μs - small selection pass
				100000, // 100μs - scoring pass over a full buffer
				1e6,    // 1ms - selection with orthogonality updates
				1e7,    // 10ms - large Farkas rounds
				1e8,    // 100ms - degenerate rounds
				1e9,    // 1s - pathological instances
			},
		},
		[]string{"operation", "phase"},
	)

	// StoreColumns tracks the number of columns resident in the store.
	// Labels: segment (forced/discretionary)
	StoreColumns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "colgen_store_columns",
			Help: "Current number of columns resident in the price store",
		},
		[]string{"segment"},
	)

	// PricingRounds tracks completed pricing rounds.
	// Labels: phase (farkas/redcost)
	PricingRounds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colgen_pricing_rounds_total",
			Help: "Total number of completed pricing rounds",
		},
		[]string{"phase"},
	)

	// MasterObjective tracks the restricted master objective value as the
	// solve progresses.
	MasterObjective = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "colgen_master_objective",
			Help: "Current restricted master problem objective value",
		},
	)

	// ColumnThroughput tracks columns admitted per second.
	// Labels: store (store name)
	ColumnThroughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "colgen_column_throughput_per_second",
			Help: "Current column admission throughput in columns per second",
		},
		[]string{"store"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
//
// Example:
//
//	timer := metrics.NewTimer("pricing_round")
//	runRound()
//	duration := timer.Stop()
//	logger.Info("round finished", zap.Duration("duration", duration))
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop stops the timer and returns the elapsed duration since creation.
// The timer can be stopped multiple times, each returning the total
// elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	return duration
}

// ThroughputTracker tracks column throughput (columns per second) over
// time windows. It automatically reports to the ColumnThroughput gauge
// when queried. Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64     // Columns counted since last reset
	lastReset time.Time // Time of last reset
	store     string    // Store name label
}

// NewThroughputTracker creates a new throughput tracker for a store.
//
// Example:
//
//	tracker := metrics.NewThroughputTracker("root")
//	for _, cand := range candidates {
//	    store.AddCol(cand, false)
//	    tracker.Increment(1)
//	}
//	perSecond := tracker.GetAndReset()
func NewThroughputTracker(store string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		store:     store,
	}
}

// Increment adds n to the column count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (columns/second),
// updates the Prometheus gauge, resets the counter, and returns the
// calculated throughput. Safe for concurrent use.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	// Reset for next period
	t.count = 0
	t.lastReset = time.Now()

	// Update Prometheus metric
	ColumnThroughput.WithLabelValues(t.store).Set(throughput)

	return throughput
}

// LatencyTracker provides percentile tracking
type LatencyTracker struct {
	mu      sync.Mutex
	values  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a new latency tracker
func NewLatencyTracker(maxSize int) *LatencyTracker {
	return &LatencyTracker{
		values:  make([]time.Duration, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record records a latency value
func (l *LatencyTracker) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) >= l.maxSize {
		// Remove oldest
		l.values = l.values[1:]
	}
	l.values = append(l.values, d)
}

// GetPercentile returns the percentile value (0-100)
func (l *LatencyTracker) GetPercentile(p float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) == 0 {
		return 0
	}

	// Simple implementation - in production use a better algorithm
	index := int(float64(len(l.values)) * p / 100)
	if index >= len(l.values) {
		index = len(l.values) - 1
	}

	return l.values[index]
}
