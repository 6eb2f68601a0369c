package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/recipeops/observe"
)

const (
	// DefaultGeminiURL is the public Generative Language API base.
	DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models"

	// maxResponseBytes bounds how much of an upstream reply is read.
	maxResponseBytes = 4 << 20

	finishMaxTokens = "MAX_TOKENS"
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string // default DefaultGeminiURL
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
	Timeout         time.Duration // HTTP client timeout, default 120s
}

// Gemini is a Generator backed by the Gemini generateContent endpoint. It
// requests JSON output mode.
type Gemini struct {
	cfg    GeminiConfig
	client *http.Client
	logger observe.Logger
	now    func() time.Time
}

// GeminiOption configures a Gemini client.
type GeminiOption func(*Gemini)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) {
		if c != nil {
			g.client = c
		}
	}
}

// WithLogger sets the logger used for upstream diagnostics.
func WithLogger(l observe.Logger) GeminiOption {
	return func(g *Gemini) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGemini creates a Gemini client. It fails with ErrMissingAPIKey when
// cfg.APIKey is empty.
func NewGemini(cfg GeminiConfig, opts ...GeminiOption) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("generator: model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	g := &Gemini{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: observe.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.cfg.Model }

// Generate sends one generateContent request. It does not retry; wrap it
// with a resilience.Executor for that.
func (g *Gemini) Generate(ctx context.Context, prompt string) (Response, error) {
	url := fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.Model)

	body := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: prompt}},
			},
		},
		GenerationConfig: &geminiGenConfig{
			Temperature:      &g.cfg.Temperature,
			TopP:             g.cfg.TopP,
			TopK:             g.cfg.TopK,
			MaxOutputTokens:  g.cfg.MaxOutputTokens,
			ResponseMimeType: "application/json",
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.cfg.APIKey)

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%w: sending request: %w", ErrTransport, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return Response{}, &StatusError{
			Code:       httpResp.StatusCode,
			Body:       truncateBody(respBody),
			RetryAfter: parseRetryAfter(httpResp.Header.Get("Retry-After"), g.now()),
		}
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Response{}, fmt.Errorf("%w: parsing response: %w", ErrTransport, err)
	}
	if len(result.Candidates) == 0 {
		return Response{}, ErrEmptyResponse
	}

	cand := result.Candidates[0]
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return Response{}, ErrEmptyResponse
	}

	resp := Response{
		Text:       text.String(),
		TokensUsed: result.UsageMetadata.TotalTokenCount,
		Truncated:  cand.FinishReason == finishMaxTokens,
	}
	if resp.Truncated {
		g.logger.Warn(ctx, "generation hit output token limit",
			observe.Field{Key: "model", Value: g.cfg.Model},
			observe.Field{Key: "tokens", Value: resp.TokensUsed},
		)
	}
	return resp, nil
}

func truncateBody(b []byte) string {
	const limit = 512
	if len(b) > limit {
		b = b[:limit]
	}
	return strings.TrimSpace(string(b))
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             float64  `json:"topP,omitempty"`
	TopK             int      `json:"topK,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage       `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	TotalTokenCount int `json:"totalTokenCount"`
}

var _ Generator = (*Gemini)(nil)
