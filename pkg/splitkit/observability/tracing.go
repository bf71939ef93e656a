package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the splitkit tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("splitkit")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartResolveSpan starts a span for a request-time assignment
	// resolution. Returns the context with span and the span itself.
	StartResolveSpan(ctx context.Context, target string) (context.Context, trace.Span)

	// StartTrackSpan starts a span for a tracking event ingestion.
	StartTrackSpan(ctx context.Context, experimentID, kind string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartResolveSpan starts a span for a request-time resolution.
func (m *otelSpanManager) StartResolveSpan(ctx context.Context, target string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "splitkit.resolve",
		trace.WithAttributes(
			attribute.String("target", target),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartTrackSpan starts a span for a tracking event ingestion.
func (m *otelSpanManager) StartTrackSpan(ctx context.Context, experimentID, kind string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "splitkit.track",
		trace.WithAttributes(
			attribute.String("experiment_id", experimentID),
			attribute.String("kind", kind),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
