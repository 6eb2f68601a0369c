package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/recipeops/config"
	"github.com/jonwraymond/recipeops/health"
	"github.com/jonwraymond/recipeops/observe"
	"github.com/jonwraymond/recipeops/recipe"
	"github.com/jonwraymond/recipeops/resilience"
)

// Server is the HTTP front of a recipe.Service.
type Server struct {
	settings  config.Settings
	recipes   *recipe.Service
	health    *health.Aggregator
	logger    observe.Logger
	metrics   observe.Metrics
	metricsH  http.Handler
	now       func() time.Time
	indexPath string
	handler   http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithObserver logs and meters requests through obs.
func WithObserver(obs observe.Observer) Option {
	return func(s *Server) {
		if obs != nil {
			s.logger = obs.Logger().With(observe.Field{Key: "component", Value: "http"})
			s.metrics = obs.Metrics()
		}
	}
}

// WithHealth mounts the probe endpoints of agg.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) { s.health = agg }
}

// WithMetricsHandler replaces the /metrics handler. Nil disables it.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsH = h }
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the routes for recipes. It fails when a rate limit in
// settings does not parse.
func New(settings config.Settings, recipes *recipe.Service, opts ...Option) (*Server, error) {
	if recipes == nil {
		return nil, errors.New("server: recipe service is nil")
	}
	s := &Server{
		settings: settings,
		recipes:  recipes,
		logger:   observe.NopLogger(),
		metrics:  observe.NopMetrics(),
		now:      time.Now,
	}
	if settings.Observe.MetricsExporter == "prometheus" {
		s.metricsH = promhttp.Handler()
	}
	for _, opt := range opts {
		opt(s)
	}

	limits, err := newLimiters(settings.RateLimit)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/recipe", Chain(http.HandlerFunc(s.handleRecipe), RateLimit(limits.recipe)))
	mux.Handle("GET /api/cache/stats", Chain(http.HandlerFunc(s.handleCacheStats), RateLimit(limits.cache)))
	mux.Handle("DELETE /api/cache/clear", Chain(http.HandlerFunc(s.handleCacheClear), RateLimit(limits.cache)))
	mux.Handle("GET /health", Chain(http.HandlerFunc(s.handleHealth), RateLimit(limits.health)))
	if s.health != nil {
		health.RegisterHandlers(mux, s.health)
	}
	if s.metricsH != nil {
		mux.Handle("GET /metrics", s.metricsH)
	}
	s.mountStatic(mux)

	mws := []Middleware{RequestID(), Recover(s.logger), AccessLog(s.logger, s.metrics)}
	if settings.EnableSecurityHeaders {
		mws = append(mws, SecurityHeaders())
	}
	mws = append(mws, CORS(settings.CORS))
	s.handler = Chain(mux, mws...)
	return s, nil
}

type limiters struct {
	recipe, health, cache *resilience.KeyedRateLimiter
}

func newLimiters(cfg config.RateLimitSettings) (limiters, error) {
	parse := func(group, v string) (*resilience.KeyedRateLimiter, error) {
		rate, err := resilience.ParseRate(v)
		if err != nil {
			return nil, fmt.Errorf("server: %s rate limit: %w", group, err)
		}
		return resilience.NewKeyedRateLimiter(rate), nil
	}
	var l limiters
	var err error
	if l.recipe, err = parse("recipe", cfg.Recipe); err != nil {
		return limiters{}, err
	}
	if l.health, err = parse("health", cfg.Health); err != nil {
		return limiters{}, err
	}
	if l.cache, err = parse("cache", cfg.Cache); err != nil {
		return limiters{}, err
	}
	return l, nil
}

func (s *Server) mountStatic(mux *http.ServeMux) {
	dir := s.settings.Server.StaticDir
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		s.logger.Warn(context.Background(), "static directory not found", observe.Field{Key: "dir", Value: dir})
		return
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err == nil {
		s.indexPath = index
		mux.HandleFunc("GET /{$}", s.handleIndex)
	}
}

// Handler returns the root handler with every middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// writeTimeout leaves room for every generation attempt.
func (s *Server) writeTimeout() time.Duration {
	attempts := max(s.settings.Gemini.MaxAttempts, 1)
	per := time.Duration(s.settings.Gemini.TimeoutSeconds) * time.Second
	return time.Duration(attempts)*per + 30*time.Second
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.writeTimeout(),
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.logStartup(ctx, ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.settings.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.settings.Addr())
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.settings.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) logStartup(ctx context.Context, addr string) {
	gemini := "not configured"
	if s.recipes.Configured() {
		gemini = "configured"
	}
	s.logger.Info(ctx, "starting "+s.settings.AppName,
		observe.Field{Key: "version", Value: s.settings.AppVersion},
		observe.Field{Key: "addr", Value: addr},
		observe.Field{Key: "gemini_api", Value: gemini},
		observe.Field{Key: "cors_origins", Value: s.settings.CORS.Origins},
		observe.Field{Key: "cache_max_size", Value: s.settings.Cache.MaxSize},
		observe.Field{Key: "rate_limit_recipe", Value: s.settings.RateLimit.Recipe},
	)
}
