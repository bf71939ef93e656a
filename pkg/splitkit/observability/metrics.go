package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records splitkit metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordAssignment records a computed variant assignment.
	RecordAssignment(ctx context.Context, experimentID string, variantIndex int)

	// RecordTrack records a tracking event ingestion attempt.
	RecordTrack(ctx context.Context, kind string, accepted bool)

	// RecordAggregation records an aggregation pass with its duration
	// and the number of events scanned.
	RecordAggregation(ctx context.Context, duration time.Duration, eventCount int)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	assignments        metric.Int64Counter
	eventsIngested     metric.Int64Counter
	eventsRejected     metric.Int64Counter
	aggregationLatency metric.Float64Histogram
	aggregationEvents  metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("splitkit")

	assignments, err := meter.Int64Counter("splitkit.assignments",
		metric.WithDescription("Number of variant assignments computed"),
	)
	if err != nil {
		return nil, err
	}

	eventsIngested, err := meter.Int64Counter("splitkit.events.ingested",
		metric.WithDescription("Number of tracking events accepted"),
	)
	if err != nil {
		return nil, err
	}

	eventsRejected, err := meter.Int64Counter("splitkit.events.rejected",
		metric.WithDescription("Number of tracking events rejected by validation"),
	)
	if err != nil {
		return nil, err
	}

	aggregationLatency, err := meter.Float64Histogram("splitkit.aggregation.latency_ms",
		metric.WithDescription("Aggregation pass latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	aggregationEvents, err := meter.Int64Histogram("splitkit.aggregation.events",
		metric.WithDescription("Number of events scanned per aggregation pass"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		assignments:        assignments,
		eventsIngested:     eventsIngested,
		eventsRejected:     eventsRejected,
		aggregationLatency: aggregationLatency,
		aggregationEvents:  aggregationEvents,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("splitkit metrics init failed, using noop recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordAssignment implements MetricsRecorder.
func (m *otelMetrics) RecordAssignment(ctx context.Context, experimentID string, variantIndex int) {
	m.assignments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment_id", experimentID),
		attribute.Int("variant", variantIndex),
	))
}

// RecordTrack implements MetricsRecorder.
func (m *otelMetrics) RecordTrack(ctx context.Context, kind string, accepted bool) {
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	if accepted {
		m.eventsIngested.Add(ctx, 1, attrs)
	} else {
		m.eventsRejected.Add(ctx, 1, attrs)
	}
}

// RecordAggregation implements MetricsRecorder.
func (m *otelMetrics) RecordAggregation(ctx context.Context, duration time.Duration, eventCount int) {
	m.aggregationLatency.Record(ctx, float64(duration.Milliseconds()))
	m.aggregationEvents.Record(ctx, int64(eventCount))
}
