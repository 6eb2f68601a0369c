package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{
		ServiceName: "recipeops",
		Version:     "1.0.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, ErrMissingServiceName},
		{"unknown tracing exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }, ErrInvalidTracingExporter},
		{"sample pct too high", func(c *Config) { c.Tracing.SamplePct = 1.5 }, ErrInvalidSamplePct},
		{"sample pct negative", func(c *Config) { c.Tracing.SamplePct = -0.1 }, ErrInvalidSamplePct},
		{"unknown metrics exporter", func(c *Config) { c.Metrics.Exporter = "statsd" }, ErrInvalidMetricsExporter},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }, ErrInvalidLogLevel},
		{"disabled tracing skips checks", func(c *Config) {
			c.Tracing = TracingConfig{Enabled: false, Exporter: "bogus", SamplePct: 9}
		}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNewObserver_EnabledWithoutExporters(t *testing.T) {
	var logs bytes.Buffer
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "recipeops",
		Version:     "test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "info", Writer: &logs},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })

	if obs.Tracer() == nil || obs.Meter() == nil || obs.Metrics() == nil || obs.Logger() == nil {
		t.Fatal("observer returned a nil primitive")
	}

	obs.Logger().Info(context.Background(), "ready")
	if !strings.Contains(logs.String(), `"service":"recipeops"`) {
		t.Errorf("expected service field in log output, got %s", logs.String())
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("NewObserver() = %v, want ErrMissingServiceName", err)
	}
}

func TestNop_ShutdownIsIdempotent(t *testing.T) {
	obs := Nop()
	for range 2 {
		if err := obs.Shutdown(context.Background()); err != nil {
			t.Fatalf("Shutdown() = %v", err)
		}
	}
}

func TestConfigValidate_ReportsEveryField(t *testing.T) {
	cfg := Config{
		Tracing: TracingConfig{Enabled: true, Exporter: "zipkin", SamplePct: 2},
		Logging: LoggingConfig{Enabled: true, Level: "loud"},
	}
	err := cfg.Validate()
	for _, want := range []error{ErrMissingServiceName, ErrInvalidTracingExporter, ErrInvalidSamplePct, ErrInvalidLogLevel} {
		if !errors.Is(err, want) {
			t.Errorf("Validate() = %v, missing %v", err, want)
		}
	}
}

func TestSampler(t *testing.T) {
	for _, tc := range []struct {
		pct  float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	} {
		if got := sampler(tc.pct).Description(); !strings.Contains(got, tc.want) {
			t.Errorf("sampler(%v) = %q, want it to mention %q", tc.pct, got, tc.want)
		}
	}
}
