// Package observability provides production-grade observability features
// for splitkit: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds request context to a logger.
// Returns a new logger with target and experiment_id fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "/pricing", "pricing-redesign")
//	enriched.Info("resolving") // includes target, experiment_id
func EnrichLogger(logger *slog.Logger, target, experimentID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("target", target),
		slog.String("experiment_id", experimentID),
	)
}

// LogAssignment logs a computed variant assignment.
func LogAssignment(logger *slog.Logger, experimentID, target string, variantIndex int) {
	if logger == nil {
		return
	}
	logger.Debug("variant assigned",
		slog.String("experiment_id", experimentID),
		slog.String("target", target),
		slog.Int("variant", variantIndex),
	)
}

// LogFreshIdentity logs that a request arrived without an identity and
// was assigned a throwaway token for this call only.
func LogFreshIdentity(logger *slog.Logger, target string) {
	if logger == nil {
		return
	}
	logger.Debug("no identity on request, using fresh token",
		slog.String("target", target),
	)
}

// LogIdentityDegraded logs an identity store failure. Assignment
// continues with a throwaway token, so this is observability for lost
// stickiness, not an error path.
func LogIdentityDegraded(logger *slog.Logger, key string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("identity store degraded, assignment not sticky",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// LogTrackStored logs a successfully ingested tracking event.
func LogTrackStored(logger *slog.Logger, experimentID, kind string, variantIndex int) {
	if logger == nil {
		return
	}
	logger.Debug("event stored",
		slog.String("experiment_id", experimentID),
		slog.String("kind", kind),
		slog.Int("variant", variantIndex),
	)
}

// LogTrackRejected logs a tracking event that failed validation.
func LogTrackRejected(logger *slog.Logger, experimentID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event rejected",
		slog.String("experiment_id", experimentID),
		slog.String("error", err.Error()),
	)
}

// LogAggregation logs an aggregation pass over the event log.
func LogAggregation(logger *slog.Logger, eventCount, skipped int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("aggregation completed",
		slog.Int("events", eventCount),
		slog.Int("skipped", skipped),
		slog.Float64("duration_ms", durationMs),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
