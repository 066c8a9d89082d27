// Package observability provides OpenTelemetry tracing for colgen.
// Logging lives in pkg/logger and Prometheus metrics in pkg/metrics;
// this package owns span creation and the tracer lifecycle, so a solve
// can be followed round by round in any OTLP-compatible viewer.
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var (
	// Global tracer instance
	tracer trace.Tracer

	// Global meter instance
	meter metric.Meter

	// Initialization lock
	initOnce sync.Once
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRate   float64
	ExporterType   string // "stdout"
	BatchTimeout   time.Duration
	MaxExportBatch int
	MaxQueueSize   int
}

// MetricsConfig contains OpenTelemetry meter configuration
type MetricsConfig struct {
	Namespace string
	Subsystem string
}

// Config contains all observability configuration
type Config struct {
	Tracing TracingConfig
	Metrics MetricsConfig
}

// Initialize sets up the observability framework
func Initialize(config Config) error {
	var err error

	initOnce.Do(func() {
		err = initTracing(config.Tracing)
		if err != nil {
			return
		}

		err = initMetrics(config.Metrics)
		if err != nil {
			return
		}

		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})

	return err
}

// GetTracer returns the global tracer
func GetTracer() trace.Tracer {
	return tracer
}

// GetMeter returns the global meter
func GetMeter() metric.Meter {
	return meter
}

// Span represents a tracing span with batched attribute writes
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// NewSpan creates a new span. Initialize must have been called; before
// that, spans are no-ops.
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	t := tracer
	if t == nil {
		t = otel.Tracer("colgen")
	}
	ctx, span := t.Start(ctx, operationName)

	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute to the span (batched for performance)
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetStatus sets the span status
func (s *Span) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

// Duration returns the time since the span started.
func (s *Span) Duration() time.Duration {
	return time.Since(s.startTime)
}

// End flushes batched attributes and ends the span
func (s *Span) End() {
	if len(s.attributes) > 0 {
		s.span.SetAttributes(s.attributes...)
	}
	s.span.End()
}

// SolveTracer scopes spans to one solve so every span carries the
// instance and solve identifiers.
type SolveTracer struct {
	instance string
	solveID  string
}

// NewSolveTracer creates a tracer for one solve.
func NewSolveTracer(instance, solveID string) *SolveTracer {
	return &SolveTracer{
		instance: instance,
		solveID:  solveID,
	}
}

// StartSpan starts a solve-scoped span.
func (st *SolveTracer) StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	ctx, span := NewSpan(ctx, fmt.Sprintf("solve.%s", operation))

	span.SetAttribute("solve.instance", st.instance)
	span.SetAttribute("solve.id", st.solveID)
	span.SetAttribute("solve.operation", operation)

	return ctx, span
}

// TraceRound wraps one pricing round in a span, recording the round
// number and error state.
func (st *SolveTracer) TraceRound(ctx context.Context, round int, fn func(context.Context) error) error {
	ctx, span := st.StartSpan(ctx, "pricing_round")
	defer span.End()

	span.SetAttribute("round", round)

	err := fn(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttribute("error", true)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}
