// Package config provides the unified configuration system for colgen.
// It defines a single SolveConfig structure covering every tunable of a
// branch-and-price run, organized into logical sections.
package config

import (
	"fmt"
	"time"

	"github.com/branchprice/colgen/pkg/compression"
	"github.com/branchprice/colgen/pkg/logger"
	"github.com/branchprice/colgen/pkg/pricing"
	"github.com/branchprice/colgen/pkg/trace"
)

// SolveConfig is the top-level configuration for a solve. Sections map
// onto the components they drive: Pricing configures the price store,
// Search bounds the column generation loop, Observability wires logging
// and metrics, Trace controls round-record capture.
type SolveConfig struct {
	// Name identifies the solve in logs, metrics, and trace output
	Name string `yaml:"name" json:"name"`
	// Instance is the path of the problem instance to solve
	Instance string `yaml:"instance" json:"instance"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	// Pricing holds the price store's selection parameters
	Pricing pricing.Config `yaml:"pricing" json:"pricing"`

	// Search bounds the column generation loop
	Search SearchConfig `yaml:"search" json:"search"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`

	// Trace controls per-round trace capture
	Trace TraceConfig `yaml:"trace" json:"trace"`
}

// SearchConfig bounds the outer column generation loop.
type SearchConfig struct {
	// MaxRounds caps the number of pricing rounds
	MaxRounds int `yaml:"max_rounds" json:"max_rounds"`
	// TimeLimit bounds total solve wall time (0 = unlimited)
	TimeLimit time.Duration `yaml:"time_limit" json:"time_limit"`
	// ObjTolerance declares convergence when the master objective
	// improves by less than this between rounds
	ObjTolerance float64 `yaml:"obj_tolerance" json:"obj_tolerance"`
	// SeedSingletons seeds the initial restricted master with one
	// trivial column per constraint
	SeedSingletons bool `yaml:"seed_singletons" json:"seed_singletons"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates Prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// MetricsAddr serves /metrics when non-empty (e.g. ":9090")
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	// EnableTracing activates OpenTelemetry span export
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogEncoding selects console or json output
	LogEncoding string `yaml:"log_encoding" json:"log_encoding"`
	// Development enables human-friendly logging
	Development bool `yaml:"development" json:"development"`
}

// TraceConfig controls the per-round trace writer.
type TraceConfig struct {
	// Enabled turns trace capture on
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Path is the trace output file
	Path string `yaml:"path" json:"path"`
	// Compression selects the trace codec (none, gzip, snappy, lz4, zstd, s2, deflate)
	Compression string `yaml:"compression" json:"compression"`
	// Level sets compression ratio vs speed where the codec supports it
	Level int `yaml:"level" json:"level"`
}

// NewSolveConfig creates a SolveConfig with production defaults: pure
// Dantzig pricing, a 10k-round ceiling, info-level JSON logs, and trace
// capture off.
func NewSolveConfig(name string) *SolveConfig {
	return &SolveConfig{
		Name:    name,
		Version: "1.0.0",
		Pricing: *pricing.DefaultConfig(),
		Search: SearchConfig{
			MaxRounds:      10000,
			TimeLimit:      0,
			ObjTolerance:   1e-6,
			SeedSingletons: true,
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     true,
			EnableTracing:     false,
			TracingSampleRate: 0.1,
			LogLevel:          "info",
			LogEncoding:       "json",
			Development:       false,
		},
		Trace: TraceConfig{
			Enabled:     false,
			Compression: "zstd",
			Level:       int(compression.Default),
		},
	}
}

// Validate validates the configuration for correctness. It checks
// required fields, delegates pricing parameters to their own
// validation, and ensures values are within acceptable ranges.
func (sc *SolveConfig) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := sc.Pricing.Validate(); err != nil {
		return err
	}
	if sc.Search.MaxRounds <= 0 {
		return fmt.Errorf("search.max_rounds must be positive")
	}
	if sc.Search.ObjTolerance < 0 {
		return fmt.Errorf("search.obj_tolerance cannot be negative")
	}
	if sc.Search.TimeLimit < 0 {
		return fmt.Errorf("search.time_limit cannot be negative")
	}
	if sc.Observability.TracingSampleRate < 0 || sc.Observability.TracingSampleRate > 1 {
		return fmt.Errorf("observability.tracing_sample_rate must be in [0, 1]")
	}
	if sc.Trace.Enabled && sc.Trace.Path == "" {
		return fmt.Errorf("trace.path is required when tracing is enabled")
	}
	if _, err := compression.ParseAlgorithm(sc.Trace.Compression); err != nil {
		return fmt.Errorf("trace.compression: %w", err)
	}
	return nil
}

// LoggerConfig maps the observability section onto the logger package's
// configuration.
func (o *ObservabilityConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       o.LogLevel,
		Development: o.Development,
		Encoding:    o.LogEncoding,
	}
}

// ServesMetrics returns true if a metrics endpoint should be exposed
func (o *ObservabilityConfig) ServesMetrics() bool {
	return o.EnableMetrics && o.MetricsAddr != ""
}

// IsActive returns true if trace records should be written
func (tc *TraceConfig) IsActive() bool {
	return tc.Enabled && tc.Path != ""
}

// WriterConfig maps the trace section onto the trace package's
// configuration. Call only on a validated config.
func (tc *TraceConfig) WriterConfig() (*trace.Config, error) {
	algo, err := compression.ParseAlgorithm(tc.Compression)
	if err != nil {
		return nil, err
	}
	level := compression.Level(tc.Level)
	if tc.Level == 0 {
		level = compression.Default
	}
	return &trace.Config{
		Path:        tc.Path,
		Compression: algo,
		Level:       level,
	}, nil
}
