package observe

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/recipeops/observe/exporters"
)

// Observer provides access to telemetry primitives.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown flushes every provider and joins their errors.
type Observer interface {
	// Tracer returns the span helper bound to the configured tracer.
	Tracer() Tracer

	// Meter returns the configured meter.
	Meter() metric.Meter

	// Metrics returns the recipeops instruments.
	Metrics() Metrics

	// Logger returns the configured logger.
	Logger() Logger

	// Shutdown flushes and stops the telemetry providers.
	Shutdown(ctx context.Context) error
}

type observer struct {
	tracer  Tracer
	meter   metric.Meter
	metrics Metrics
	logger  Logger

	// shutdowns run in order on Shutdown.
	shutdowns []func(context.Context) error
}

// NewObserver builds the providers cfg enables and installs them as the
// otel globals. A failure part way through stops whatever was started.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	obs := &observer{
		tracer: NewTracer(tracenoop.NewTracerProvider().Tracer("noop")),
		meter:  noop.NewMeterProvider().Meter("noop"),
		logger: NopLogger(),
	}

	fail := func(err error) (Observer, error) {
		_ = obs.Shutdown(context.WithoutCancel(ctx))
		return nil, err
	}

	if cfg.Tracing.Enabled {
		tp, err := newTracerProvider(ctx, cfg.Tracing, res)
		if err != nil {
			return fail(fmt.Errorf("observe: tracing: %w", err))
		}
		otel.SetTracerProvider(tp)
		obs.tracer = NewTracer(tp.Tracer(cfg.ServiceName))
		obs.shutdowns = append(obs.shutdowns, tp.Shutdown)
	}

	if cfg.Metrics.Enabled {
		mp, err := newMeterProvider(ctx, cfg.Metrics, res)
		if err != nil {
			return fail(fmt.Errorf("observe: metrics: %w", err))
		}
		otel.SetMeterProvider(mp)
		obs.meter = mp.Meter(cfg.ServiceName)
		obs.shutdowns = append(obs.shutdowns, mp.Shutdown)
	}

	if obs.metrics, err = NewMetrics(obs.meter); err != nil {
		return fail(fmt.Errorf("observe: instruments: %w", err))
	}

	if cfg.Logging.Enabled {
		w := cfg.Logging.Writer
		if w == nil {
			w = os.Stderr
		}
		obs.logger = NewLoggerWithWriter(cfg.Logging.Level, w).With(
			Field{Key: "service", Value: cfg.ServiceName},
		)
	}

	return obs, nil
}

// sampler maps a sampling fraction onto a parent based sampler.
func sampler(pct float64) sdktrace.Sampler {
	switch {
	case pct >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case pct <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(pct))
	}
}

func newTracerProvider(ctx context.Context, cfg TracingConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := exporters.NewTracingExporter(ctx, cfg.Exporter, nil)
	if err != nil {
		return nil, err
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplePct)),
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, cfg MetricsConfig, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	reader, err := exporters.NewMetricsReader(ctx, cfg.Exporter, nil)
	if err != nil {
		return nil, err
	}
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

func (o *observer) Tracer() Tracer      { return o.tracer }
func (o *observer) Meter() metric.Meter { return o.meter }
func (o *observer) Metrics() Metrics    { return o.metrics }
func (o *observer) Logger() Logger      { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	var errs []error
	for _, shutdown := range o.shutdowns {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop returns an Observer where every primitive discards its input.
func Nop() Observer {
	return &observer{
		tracer:  NewTracer(tracenoop.NewTracerProvider().Tracer("noop")),
		meter:   noop.NewMeterProvider().Meter("noop"),
		metrics: NopMetrics(),
		logger:  NopLogger(),
	}
}
