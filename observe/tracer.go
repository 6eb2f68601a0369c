package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation names a unit of work for telemetry purposes.
type Operation struct {
	Component string // e.g. "recipe", "generator", "decode"
	Name      string // e.g. "generate"
}

// SpanName returns the deterministic span name for this operation.
// Format: recipeops.<component>.<name>
func (o Operation) SpanName() string {
	return "recipeops." + o.ID()
}

// ID returns "<component>.<name>", or just the name when Component is empty.
func (o Operation) ID() string {
	if o.Component == "" {
		return o.Name
	}
	return o.Component + "." + o.Name
}

// Tracer wraps OpenTelemetry tracing with operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for op.
	StartSpan(ctx context.Context, op Operation, attrs ...attribute.KeyValue) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Operation, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+3)
	all = append(all,
		attribute.String("op.id", op.ID()),
		attribute.String("op.component", op.Component),
		attribute.Bool("op.error", false),
	)
	all = append(all, attrs...)

	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("op.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
