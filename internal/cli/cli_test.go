package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonwraymond/recipeops/cache"
	"github.com/jonwraymond/recipeops/config"
	"github.com/jonwraymond/recipeops/observe"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(strings.NewReader(stdin), &out, &errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSplitComma(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"vegan", []string{"vegan"}},
		{" vegan , gluten-free ,", []string{"vegan", "gluten-free"}},
		{",,,", nil},
	}
	for _, tt := range tests {
		got := splitComma(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("splitComma(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if out != "recipeops version "+version+"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"version", "extra"},
		{"fingerprint"},
		{"serve", "--no-such-flag"},
	} {
		_, err := execute(t, "", args...)
		if err == nil || !isUsageError(err) {
			t.Errorf("%v: err = %v, want usage error", args, err)
		}
	}
}

func TestFingerprint(t *testing.T) {
	out, err := execute(t, "", "fingerprint", "Pad", "Thai", "-s", "2", "-d", "Vegan,Gluten-Free")
	if err != nil {
		t.Fatalf("fingerprint error = %v", err)
	}
	want := cache.Fingerprint(" pad thai ", 2, []string{"Gluten-Free", "Vegan"})
	if strings.TrimSpace(out) != want {
		t.Errorf("fingerprint = %q, want %q", out, want)
	}
}

func TestDecode_Stdin(t *testing.T) {
	out, err := execute(t, "```json\n{\"a\":1,\"b\":[1,2,\n```", "decode")
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	var got struct {
		Outcome string         `json:"outcome"`
		Repairs []string       `json:"repairs"`
		Value   map[string]any `json:"value"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Outcome == "clean" || len(got.Repairs) == 0 {
		t.Errorf("expected repairs, got %+v", got)
	}
	if got.Value["a"] != float64(1) {
		t.Errorf("value = %v", got.Value)
	}
}

func TestDecode_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte(`{"dish_name":"Toast"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "", "decode", path); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if _, err := execute(t, "", "decode", "--recipe", path); err == nil {
		t.Error("decode --recipe accepted an incomplete recipe")
	}
	if _, err := execute(t, "", "decode", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := execute(t, "no json here", "decode"); err == nil {
		t.Error("expected decode error")
	}
}

func TestConfigShow_Redacts(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "very-secret")
	path := filepath.Join(t.TempDir(), "recipeops.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out, "very-secret") {
		t.Errorf("config show leaked the key:\n%s", out)
	}
	if !strings.Contains(out, "port: 9100") {
		t.Errorf("config show ignored the file:\n%s", out)
	}
}

func TestConfigValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  max_size: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "", "config", "validate", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "cache.max_size") {
		t.Errorf("err = %v, want cache.max_size failure", err)
	}
}

func TestBuildApp_WithoutAPIKey(t *testing.T) {
	settings := config.Default()
	settings.Observe.MetricsExporter = "none"

	a, err := buildApp(context.Background(), settings, observe.Nop())
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	if a.recipes.Configured() {
		t.Error("service should not be configured without an API key")
	}

	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/checks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/health/checks status = %d: %s", rec.Code, rec.Body.String())
	}
	for _, name := range []string{"cache", "gemini", "gemini_circuit", "runtime"} {
		if !strings.Contains(rec.Body.String(), `"`+name+`"`) {
			t.Errorf("/health/checks missing %s: %s", name, rec.Body.String())
		}
	}

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"dish_name":"Toast","servings":1}`)
	a.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/recipe", body))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/api/recipe status = %d, want 503", rec.Code)
	}
}

func TestBuildApp_WithAPIKey(t *testing.T) {
	settings := config.Default()
	settings.Observe.MetricsExporter = "none"
	settings.Gemini.APIKey = "test-key"

	a, err := buildApp(context.Background(), settings, observe.Nop())
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	if !a.recipes.Configured() {
		t.Error("service should be configured with an API key")
	}
}
