package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/pulseplan/pulseplan"

// Tracer returns the engine tracer. With no SDK installed this is the
// global no-op provider, so instrumentation costs nothing by default.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartStage opens a span for one pipeline stage with the user attached.
func StartStage(ctx context.Context, stage, userID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, stage, trace.WithAttributes(
		attribute.String("pulseplan.stage", stage),
		attribute.String("pulseplan.user_id", userID),
	))
}
