package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/recipeops/cache"
	"github.com/jonwraymond/recipeops/secret"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if s.Addr() != "0.0.0.0:8000" {
		t.Errorf("Addr() = %q", s.Addr())
	}
	if s.Gemini.Model != "gemini-2.5-flash" || s.Gemini.MaxOutputTokens != 8192 {
		t.Errorf("gemini defaults = %+v", s.Gemini)
	}
	if s.RateLimit.Recipe != "10/minute" {
		t.Errorf("recipe rate = %q", s.RateLimit.Recipe)
	}
	if s.HasAPIKey() {
		t.Error("HasAPIKey() = true without a key")
	}
	p := s.CachePolicy()
	if p.MaxSize != 1000 || p.DefaultTTL != time.Hour {
		t.Errorf("CachePolicy() = %+v", p)
	}
	if got := s.RecipeTTL(); got != time.Hour {
		t.Errorf("RecipeTTL() = %v, want 1h", got)
	}
}

func TestLoad_Layering(t *testing.T) {
	path := writeFile(t, "recipeops.yaml", `
server:
  port: 9000
gemini:
  model: gemini-file
  temperature: 0
cache:
  max_size: 50
rate_limit:
  recipe: 5/minute
`)
	env := map[string]string{
		"GEMINI_MODEL":      "gemini-env",
		"CORS_ORIGINS":      "https://a.example, https://b.example,",
		"DEBUG":             "true",
		"CACHE_TTL_SECONDS": "0",
	}

	s, err := load(path, envMap(env))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if s.Server.Port != 9000 {
		t.Errorf("port = %d, want file value", s.Server.Port)
	}
	if s.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want default", s.Server.Host)
	}
	if s.Gemini.Model != "gemini-env" {
		t.Errorf("model = %q, env should win", s.Gemini.Model)
	}
	if s.Gemini.Temperature != 0 {
		t.Errorf("temperature = %v, explicit zero should survive", s.Gemini.Temperature)
	}
	if s.Gemini.TopK != 40 {
		t.Errorf("top_k = %d, want default", s.Gemini.TopK)
	}
	if s.Cache.MaxSize != 50 || s.RateLimit.Recipe != "5/minute" {
		t.Errorf("file values lost: %+v %+v", s.Cache, s.RateLimit)
	}
	if got := strings.Join(s.CORS.Origins, " "); got != "https://a.example https://b.example" {
		t.Errorf("origins = %q", got)
	}
	if s.CachePolicy().DefaultTTL != 0 {
		t.Errorf("ttl 0 should disable expiry, got %v", s.CachePolicy().DefaultTTL)
	}
	if s.RecipeTTL() != cache.NoExpiration {
		t.Errorf("RecipeTTL() = %v, want NoExpiration", s.RecipeTTL())
	}
	if s.ObserveConfig().Logging.Level != "debug" {
		t.Errorf("debug should force debug logging")
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v, want ErrNotExist", err)
		}
	})
	t.Run("bad yaml", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "server: [")
		if _, err := load(path, envMap(nil)); err == nil {
			t.Error("expected parse error")
		}
	})
	t.Run("bad env int", func(t *testing.T) {
		_, err := load("", envMap(map[string]string{"PORT": "eighty"}))
		if err == nil || !strings.Contains(err.Error(), "PORT") {
			t.Errorf("err = %v, want PORT error", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"port", func(s *Settings) { s.Server.Port = 0 }, "server.port"},
		{"max size", func(s *Settings) { s.Cache.MaxSize = 0 }, "cache.max_size"},
		{"ttl", func(s *Settings) { s.Cache.TTLSeconds = -1 }, "cache.ttl_seconds"},
		{"model", func(s *Settings) { s.Gemini.Model = "" }, "gemini.model"},
		{"temperature", func(s *Settings) { s.Gemini.Temperature = 3 }, "gemini.temperature"},
		{"rate", func(s *Settings) { s.RateLimit.Health = "lots" }, "rate_limit.health"},
		{"log level", func(s *Settings) { s.Observe.LogLevel = "loud" }, "observe.log_level"},
		{"exporter", func(s *Settings) { s.Observe.TracesExporter = "zipkin" }, "observe.traces_exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			err := s.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestResolveSecrets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gemini"), []byte("file-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := secret.NewResolver(secret.WithProvider(&secret.FileProvider{Dir: dir}))

	s := Default()
	s.Gemini.APIKey = "secretref:file:gemini"
	if err := s.ResolveSecrets(context.Background(), r); err != nil {
		t.Fatalf("ResolveSecrets() error = %v", err)
	}
	if s.Gemini.APIKey != "file-key" || !s.HasAPIKey() {
		t.Errorf("APIKey = %q", s.Gemini.APIKey)
	}

	s.Gemini.APIKey = "secretref:file:missing"
	if err := s.ResolveSecrets(context.Background(), r); err == nil {
		t.Error("expected error for a missing secret file")
	}
}

func TestYAML_Redacts(t *testing.T) {
	s := Default()
	s.Gemini.APIKey = "super-secret"
	out, err := s.YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	if strings.Contains(string(out), "super-secret") {
		t.Errorf("YAML() leaked the key:\n%s", out)
	}
	if s.Gemini.APIKey != "super-secret" {
		t.Error("YAML() mutated the receiver")
	}

	s.Gemini.APIKey = "secretref:env:GEMINI_API_KEY"
	if got := s.Redacted().Gemini.APIKey; got != s.Gemini.APIKey {
		t.Errorf("references should print as-is, got %q", got)
	}
}

func TestEnvNames(t *testing.T) {
	names := EnvNames()
	for _, want := range []string{"GEMINI_API_KEY", "CACHE_MAX_SIZE", "RATE_LIMIT_RECIPE", "OTEL_TRACES_EXPORTER"} {
		if !slices.Contains(names, want) {
			t.Errorf("EnvNames() missing %s", want)
		}
	}
}
