package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestExporter_InvalidName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "invalid", nil)
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("err = %v, want ErrUnknownExporter", err)
	}
}

func TestExporter_StdoutTracing(t *testing.T) {
	var buf bytes.Buffer
	exp, err := NewTracingExporter(context.Background(), "stdout", &buf)
	if err != nil {
		t.Fatalf("failed to create stdout tracing exporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
	_ = exp.Shutdown(context.Background())
}

func TestExporter_StdoutMetrics(t *testing.T) {
	var buf bytes.Buffer
	reader, err := NewMetricsReader(context.Background(), "stdout", &buf)
	if err != nil {
		t.Fatalf("failed to create stdout metrics reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

func TestExporter_OtlpMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	_, err := NewTracingExporter(context.Background(), "otlp", nil)
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("err = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestExporter_OtlpWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	exp, err := NewTracingExporter(context.Background(), "otlp", nil)
	if err != nil {
		t.Fatalf("failed to create OTLP exporter with endpoint: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

func TestExporter_JaegerMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_JAEGER_ENDPOINT", "")

	_, err := NewTracingExporter(context.Background(), "jaeger", nil)
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("err = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestExporter_OtlpMetricsMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	_, err := NewMetricsReader(context.Background(), "otlp", nil)
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("err = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestExporter_PrometheusReturnsReader(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "prometheus", nil)
	if err != nil {
		t.Fatalf("failed to create Prometheus reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

func TestExporter_NoneReturnsNil(t *testing.T) {
	for _, name := range []string{"none", ""} {
		exp, err := NewTracingExporter(context.Background(), name, nil)
		if err != nil || exp != nil {
			t.Errorf("NewTracingExporter(%q) = %v, %v; want nil, nil", name, exp, err)
		}
		reader, err := NewMetricsReader(context.Background(), name, nil)
		if err != nil || reader != nil {
			t.Errorf("NewMetricsReader(%q) = %v, %v; want nil, nil", name, reader, err)
		}
	}
}

func TestExporter_MetricsInvalidName(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "badvalue", nil)
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("err = %v, want ErrUnknownExporter", err)
	}
}
