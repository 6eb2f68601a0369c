package config

import (
	"fmt"
	"strconv"
	"strings"
)

// envBinding applies one environment variable to the settings.
type envBinding struct {
	name  string
	apply func(s *Settings, v string) error
}

func str(dst func(*Settings) *string) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		*dst(s) = v
		return nil
	}
}

func integer(dst func(*Settings) *int) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(s) = n
		return nil
	}
}

func float(dst func(*Settings) *float64) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*dst(s) = f
		return nil
	}
}

func boolean(dst func(*Settings) *bool) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(s) = b
		return nil
	}
}

func list(dst func(*Settings) *[]string) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst(s) = out
		return nil
	}
}

var envBindings = []envBinding{
	{"APP_NAME", str(func(s *Settings) *string { return &s.AppName })},
	{"DEBUG", boolean(func(s *Settings) *bool { return &s.Debug })},
	{"HOST", str(func(s *Settings) *string { return &s.Server.Host })},
	{"PORT", integer(func(s *Settings) *int { return &s.Server.Port })},
	{"STATIC_DIR", str(func(s *Settings) *string { return &s.Server.StaticDir })},
	{"GEMINI_API_KEY", str(func(s *Settings) *string { return &s.Gemini.APIKey })},
	{"GEMINI_MODEL", str(func(s *Settings) *string { return &s.Gemini.Model })},
	{"GEMINI_BASE_URL", str(func(s *Settings) *string { return &s.Gemini.BaseURL })},
	{"GEMINI_TEMPERATURE", float(func(s *Settings) *float64 { return &s.Gemini.Temperature })},
	{"GEMINI_TOP_P", float(func(s *Settings) *float64 { return &s.Gemini.TopP })},
	{"GEMINI_TOP_K", integer(func(s *Settings) *int { return &s.Gemini.TopK })},
	{"GEMINI_MAX_OUTPUT_TOKENS", integer(func(s *Settings) *int { return &s.Gemini.MaxOutputTokens })},
	{"CACHE_MAX_SIZE", integer(func(s *Settings) *int { return &s.Cache.MaxSize })},
	{"CACHE_TTL_SECONDS", integer(func(s *Settings) *int { return &s.Cache.TTLSeconds })},
	{"CORS_ORIGINS", list(func(s *Settings) *[]string { return &s.CORS.Origins })},
	{"CORS_ALLOW_CREDENTIALS", boolean(func(s *Settings) *bool { return &s.CORS.AllowCredentials })},
	{"RATE_LIMIT_RECIPE", str(func(s *Settings) *string { return &s.RateLimit.Recipe })},
	{"RATE_LIMIT_HEALTH", str(func(s *Settings) *string { return &s.RateLimit.Health })},
	{"RATE_LIMIT_CACHE", str(func(s *Settings) *string { return &s.RateLimit.Cache })},
	{"ENABLE_SECURITY_HEADERS", boolean(func(s *Settings) *bool { return &s.EnableSecurityHeaders })},
	{"LOG_LEVEL", str(func(s *Settings) *string { return &s.Observe.LogLevel })},
	{"OTEL_TRACES_EXPORTER", str(func(s *Settings) *string { return &s.Observe.TracesExporter })},
	{"OTEL_METRICS_EXPORTER", str(func(s *Settings) *string { return &s.Observe.MetricsExporter })},
}

// EnvNames lists the environment variables Load reads.
func EnvNames() []string {
	names := make([]string, len(envBindings))
	for i, b := range envBindings {
		names[i] = b.name
	}
	return names
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(b.name)
		if !ok {
			continue
		}
		if err := b.apply(s, v); err != nil {
			return fmt.Errorf("config: env %s=%q: %w", b.name, v, err)
		}
	}
	return nil
}
