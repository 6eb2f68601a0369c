package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records recipeops counters and latencies.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records one operation with duration and error status.
	RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error)

	// RecordCacheLookup counts a cache hit or miss.
	RecordCacheLookup(ctx context.Context, hit bool)

	// RecordCacheEviction counts an entry removed by the cache itself.
	RecordCacheEviction(ctx context.Context, reason string)

	// RecordDecode counts a decoder outcome (clean, repaired, truncated, failed).
	RecordDecode(ctx context.Context, outcome string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	lookups      metric.Int64Counter
	evictions    metric.Int64Counter
	decodes      metric.Int64Counter
}

// NewMetrics creates the recipeops instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"recipeops.op.total",
		metric.WithDescription("Total number of operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"recipeops.op.errors",
		metric.WithDescription("Total number of failed operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"recipeops.op.duration_ms",
		metric.WithDescription("Operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter(
		"recipeops.cache.lookups",
		metric.WithDescription("Recipe cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"recipeops.cache.evictions",
		metric.WithDescription("Entries removed by capacity or expiry"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	decodes, err := meter.Int64Counter(
		"recipeops.decode.outcomes",
		metric.WithDescription("Resilient decoder outcomes"),
		metric.WithUnit("{payload}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		lookups:      lookups,
		evictions:    evictions,
		decodes:      decodes,
	}, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("op.id", op.ID()),
		attribute.String("op.component", op.Component),
	)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metricsImpl) RecordCacheEviction(ctx context.Context, reason string) {
	m.evictions.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *metricsImpl) RecordDecode(ctx context.Context, outcome string) {
	m.decodes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordOperation(context.Context, Operation, time.Duration, error) {}
func (noopMetrics) RecordCacheLookup(context.Context, bool)                         {}
func (noopMetrics) RecordCacheEviction(context.Context, string)                     {}
func (noopMetrics) RecordDecode(context.Context, string)                            {}
