package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/recipeops/cache"
	"github.com/jonwraymond/recipeops/generator"
	"github.com/jonwraymond/recipeops/observe"
	"github.com/jonwraymond/recipeops/recipe"
	"github.com/jonwraymond/recipeops/resilience"
	"github.com/jonwraymond/recipeops/secret"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid settings")

// Settings is the full service configuration.
type Settings struct {
	AppName    string `yaml:"app_name"`
	AppVersion string `yaml:"app_version"`
	Debug      bool   `yaml:"debug"`

	Server    ServerSettings    `yaml:"server"`
	Gemini    GeminiSettings    `yaml:"gemini"`
	Cache     CacheSettings     `yaml:"cache"`
	CORS      CORSSettings      `yaml:"cors"`
	RateLimit RateLimitSettings `yaml:"rate_limit"`
	Observe   ObserveSettings   `yaml:"observe"`

	EnableSecurityHeaders bool `yaml:"enable_security_headers"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	StaticDir              string `yaml:"static_dir"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// GeminiSettings configures the upstream generator.
type GeminiSettings struct {
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url"`
	Temperature     float64 `yaml:"temperature"`
	TopP            float64 `yaml:"top_p"`
	TopK            int     `yaml:"top_k"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	MaxAttempts     int     `yaml:"max_attempts"`
	MaxConcurrent   int     `yaml:"max_concurrent"`
}

// CacheSettings configures the recipe cache.
type CacheSettings struct {
	MaxSize    int `yaml:"max_size"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// CORSSettings configures cross origin access.
type CORSSettings struct {
	Origins          []string `yaml:"origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	Methods          []string `yaml:"methods"`
	Headers          []string `yaml:"headers"`
}

// RateLimitSettings holds per client budgets such as "10/minute".
type RateLimitSettings struct {
	Recipe string `yaml:"recipe"`
	Health string `yaml:"health"`
	Cache  string `yaml:"cache"`
}

// ObserveSettings configures logging and telemetry export.
type ObserveSettings struct {
	LogLevel        string  `yaml:"log_level"`
	TracesExporter  string  `yaml:"traces_exporter"`
	MetricsExporter string  `yaml:"metrics_exporter"`
	SamplePct       float64 `yaml:"sample_pct"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		AppName:    "Recipe Ingredient Calculator API",
		AppVersion: "1.0.0",
		Server: ServerSettings{
			Host:                   "0.0.0.0",
			Port:                   8000,
			ShutdownTimeoutSeconds: 30,
		},
		Gemini: GeminiSettings{
			Model:           "gemini-2.5-flash",
			Temperature:     0.4,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 8192,
			TimeoutSeconds:  120,
			MaxAttempts:     3,
			MaxConcurrent:   4,
		},
		Cache: CacheSettings{
			MaxSize:    1000,
			TTLSeconds: 3600,
		},
		CORS: CORSSettings{
			Origins:          []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			AllowCredentials: true,
			Methods:          []string{"GET", "POST", "DELETE", "OPTIONS"},
			Headers:          []string{"*"},
		},
		RateLimit: RateLimitSettings{
			Recipe: "10/minute",
			Health: "60/minute",
			Cache:  "30/minute",
		},
		Observe: ObserveSettings{
			LogLevel:        "info",
			TracesExporter:  "none",
			MetricsExporter: "prometheus",
			SamplePct:       1.0,
		},
		EnableSecurityHeaders: true,
	}
}

// Load builds settings from defaults, the YAML file at path (skipped when
// path is empty) and the process environment.
func Load(path string) (Settings, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := s.applyEnv(lookup); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ResolveSecrets expands the API key through r.
func (s *Settings) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	if s.Gemini.APIKey == "" {
		return nil
	}
	key, err := r.Resolve(ctx, s.Gemini.APIKey)
	if err != nil {
		return fmt.Errorf("config: gemini api key: %w", err)
	}
	s.Gemini.APIKey = key
	return nil
}

// Validate reports every invalid field.
func (s Settings) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if s.Server.Port < 1 || s.Server.Port > 65535 {
		bad("server.port %d out of range", s.Server.Port)
	}
	if s.Cache.MaxSize <= 0 {
		bad("cache.max_size must be positive")
	}
	if s.Cache.TTLSeconds < 0 {
		bad("cache.ttl_seconds must not be negative")
	}
	if s.Gemini.Model == "" {
		bad("gemini.model is required")
	}
	if s.Gemini.Temperature < 0 || s.Gemini.Temperature > 2 {
		bad("gemini.temperature %.2f out of range [0, 2]", s.Gemini.Temperature)
	}
	if s.Gemini.TopP < 0 || s.Gemini.TopP > 1 {
		bad("gemini.top_p %.2f out of range [0, 1]", s.Gemini.TopP)
	}
	for name, rate := range map[string]string{
		"recipe": s.RateLimit.Recipe,
		"health": s.RateLimit.Health,
		"cache":  s.RateLimit.Cache,
	} {
		if _, err := resilience.ParseRate(rate); err != nil {
			bad("rate_limit.%s: %v", name, err)
		}
	}
	if !slices.Contains(observe.ValidLogLevels, s.Observe.LogLevel) {
		bad("observe.log_level %q", s.Observe.LogLevel)
	}
	if !slices.Contains(observe.ValidTracingExporters, s.Observe.TracesExporter) {
		bad("observe.traces_exporter %q", s.Observe.TracesExporter)
	}
	if !slices.Contains(observe.ValidMetricsExporters, s.Observe.MetricsExporter) {
		bad("observe.metrics_exporter %q", s.Observe.MetricsExporter)
	}
	return errors.Join(errs...)
}

// Redacted returns a copy safe to print.
func (s Settings) Redacted() Settings {
	if s.Gemini.APIKey != "" && !secret.IsRef(s.Gemini.APIKey) && !strings.Contains(s.Gemini.APIKey, "${") {
		s.Gemini.APIKey = "[REDACTED]"
	}
	return s
}

// YAML renders s, with the API key redacted.
func (s Settings) YAML() ([]byte, error) {
	return yaml.Marshal(s.Redacted())
}

// Addr is the listen address.
func (s Settings) Addr() string {
	return net.JoinHostPort(s.Server.Host, strconv.Itoa(s.Server.Port))
}

// ShutdownTimeout bounds graceful shutdown.
func (s Settings) ShutdownTimeout() time.Duration {
	return time.Duration(s.Server.ShutdownTimeoutSeconds) * time.Second
}

// CachePolicy is the recipe cache policy. A zero TTL keeps entries until
// they are evicted.
func (s Settings) CachePolicy() cache.Policy {
	return cache.Policy{
		MaxSize:    s.Cache.MaxSize,
		DefaultTTL: time.Duration(s.Cache.TTLSeconds) * time.Second,
	}
}

// RecipeTTL is the TTL stored with each generated recipe. Zero seconds
// means recipes never expire.
func (s Settings) RecipeTTL() time.Duration {
	if s.Cache.TTLSeconds == 0 {
		return cache.NoExpiration
	}
	return time.Duration(s.Cache.TTLSeconds) * time.Second
}

// HasAPIKey reports whether a Gemini API key is set.
func (s Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.Gemini.APIKey) != ""
}

// GeminiConfig is the generator client configuration.
func (s Settings) GeminiConfig() generator.GeminiConfig {
	return generator.GeminiConfig{
		APIKey:          s.Gemini.APIKey,
		Model:           s.Gemini.Model,
		BaseURL:         s.Gemini.BaseURL,
		Temperature:     s.Gemini.Temperature,
		TopP:            s.Gemini.TopP,
		TopK:            s.Gemini.TopK,
		MaxOutputTokens: s.Gemini.MaxOutputTokens,
		Timeout:         time.Duration(s.Gemini.TimeoutSeconds) * time.Second,
	}
}

// ExecutorConfig bounds upstream generation calls.
func (s Settings) ExecutorConfig() recipe.ExecutorConfig {
	cfg := recipe.DefaultExecutorConfig()
	cfg.MaxAttempts = s.Gemini.MaxAttempts
	cfg.MaxConcurrent = s.Gemini.MaxConcurrent
	cfg.AttemptTimeout = time.Duration(s.Gemini.TimeoutSeconds) * time.Second
	return cfg
}

// ObserveConfig is the telemetry configuration.
func (s Settings) ObserveConfig() observe.Config {
	traces := s.Observe.TracesExporter
	metrics := s.Observe.MetricsExporter
	return observe.Config{
		ServiceName: "recipeops",
		Version:     s.AppVersion,
		Tracing: observe.TracingConfig{
			Enabled:   traces != "" && traces != "none",
			Exporter:  traces,
			SamplePct: s.Observe.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  metrics != "" && metrics != "none",
			Exporter: metrics,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   s.logLevel(),
		},
	}
}

func (s Settings) logLevel() string {
	if s.Debug {
		return "debug"
	}
	return s.Observe.LogLevel
}
