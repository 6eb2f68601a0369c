package observe

import (
	"context"
	"time"
)

// Middleware wraps operations with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: propagates context through tracing spans.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced with no-op implementations.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = Nop().Tracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger, now: time.Now}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) *Middleware {
	return NewMiddleware(obs.Tracer(), obs.Metrics(), obs.Logger())
}

// Run executes fn inside a span for op and records its outcome.
func (m *Middleware) Run(ctx context.Context, op Operation, fn func(context.Context) error) error {
	ctx, span := m.tracer.StartSpan(ctx, op)
	start := m.now()

	err := fn(ctx)

	duration := m.now().Sub(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordOperation(ctx, op, duration, err)

	fields := []Field{
		{Key: "op", Value: op.ID()},
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		m.logger.Error(ctx, "operation failed", fields...)
	} else {
		m.logger.Debug(ctx, "operation completed", fields...)
	}
	return err
}

// Observe is Run for functions that return a value.
func Observe[T any](ctx context.Context, m *Middleware, op Operation, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := m.Run(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
