package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var usecaseTracer = otel.Tracer("fixture-calendar-sync/internal/usecase")

// Span attribute keys shared across services so one user's sync can be
// followed from the pass down to the calendar calls.
const (
	attrUserID   = attribute.Key("sync.user_id")
	attrPassKind = attribute.Key("sync.pass_kind")
	attrForce    = attribute.Key("sync.force")
)

// startUsecaseSpan only creates child spans; see startPassSpan for roots.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, trace.SpanFromContext(ctx)
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// startPassSpan always starts a span, so passes fired by the in-process
// runner get a trace of their own.
func startPassSpan(ctx context.Context, kind string) (context.Context, trace.Span) {
	return usecaseTracer.Start(ctx, "usecase.SchedulerService.RunPass",
		trace.WithAttributes(attrPassKind.String(kind)))
}
