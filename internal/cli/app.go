package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/recipeops/cache"
	"github.com/jonwraymond/recipeops/config"
	"github.com/jonwraymond/recipeops/generator"
	"github.com/jonwraymond/recipeops/health"
	"github.com/jonwraymond/recipeops/observe"
	"github.com/jonwraymond/recipeops/recipe"
	"github.com/jonwraymond/recipeops/secret"
	"github.com/jonwraymond/recipeops/server"
)

// loadSettings reads, resolves and validates the configuration.
func loadSettings(ctx context.Context, path string) (config.Settings, error) {
	settings, err := config.Load(path)
	if err != nil {
		return config.Settings{}, err
	}
	if err := settings.ResolveSecrets(ctx, secret.NewResolver()); err != nil {
		return config.Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// app is the assembled service.
type app struct {
	server   *server.Server
	recipes  *recipe.Service
	observer observe.Observer
}

// buildApp wires settings into a ready to serve app. Without an API key the
// service still starts; recipe generation reports it is not configured.
func buildApp(ctx context.Context, settings config.Settings, obs observe.Observer) (*app, error) {
	logger := obs.Logger()
	metrics := obs.Metrics()

	mc, err := cache.NewMemoryCache[recipe.Recipe](settings.CachePolicy(),
		cache.WithLogger(logger),
		cache.WithEvictHook(func(_ string, reason cache.EvictReason) {
			metrics.RecordCacheEviction(context.Background(), reason.String())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	cs, err := cache.NewService[recipe.Recipe](mc, cache.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	exec := recipe.NewExecutor(settings.ExecutorConfig(), logger)
	opts := []recipe.Option{
		recipe.WithObserver(obs),
		recipe.WithExecutor(exec),
		recipe.WithTTL(settings.RecipeTTL()),
	}

	gen, err := generator.NewGemini(settings.GeminiConfig(), generator.WithLogger(logger))
	switch {
	case err == nil:
		opts = append(opts, recipe.WithGenerator(gen))
	case errors.Is(err, generator.ErrMissingAPIKey):
		logger.Warn(ctx, "GEMINI_API_KEY is not set, recipe generation is disabled")
	default:
		return nil, fmt.Errorf("generator: %w", err)
	}

	recipes, err := recipe.NewService(cs, opts...)
	if err != nil {
		return nil, err
	}

	agg := health.NewAggregator(health.AggregatorConfig{},
		health.NewCacheChecker(cs),
		health.NewGeneratorChecker("gemini", recipes),
		health.NewCircuitChecker("gemini_circuit", exec.CircuitBreaker()),
		health.NewRuntimeChecker(health.RuntimeCheckerConfig{}),
	)

	srv, err := server.New(settings, recipes, server.WithObserver(obs), server.WithHealth(agg))
	if err != nil {
		return nil, err
	}
	return &app{server: srv, recipes: recipes, observer: obs}, nil
}
