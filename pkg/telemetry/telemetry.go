// Package telemetry wires OpenTelemetry tracing for the executor's
// per-call spans (SPEC_FULL.md §4.5 expansion): one span per Execute call,
// named after the tool, with the terminal decision and status recorded as
// attributes.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aegisrail/govkernel/pkg/executor"

// Tracer returns the kernel's named tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartToolSpan opens a span for one tool execution.
func StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, toolName, trace.WithAttributes(
		attribute.String("tool.name", toolName),
	))
}

// EndToolSpan records the terminal decision and status on span before it
// ends.
func EndToolSpan(span trace.Span, decision, status string) {
	span.SetAttributes(
		attribute.String("tool.decision", decision),
		attribute.String("tool.status", status),
	)
	span.End()
}
