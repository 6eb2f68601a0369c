package recipe

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/recipeops/cache"
	"github.com/jonwraymond/recipeops/decode"
	"github.com/jonwraymond/recipeops/generator"
	"github.com/jonwraymond/recipeops/observe"
	"github.com/jonwraymond/recipeops/resilience"
)

var (
	opGenerate = observe.Operation{Component: "recipe", Name: "generate"}
	opDecode   = observe.Operation{Component: "recipe", Name: "decode"}
)

// Service generates recipes with caching.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: Generate honors cancellation while waiting; a shared upstream
// call keeps running for the other waiters.
// - Errors: see the package sentinels, decode.ErrMalformedPayload and the
// generator and resilience errors that surface from the upstream call.
type Service struct {
	cache    *cache.Service[Recipe]
	gen      generator.Generator
	decoder  *decode.Decoder
	exec     *resilience.Executor
	mw       *observe.Middleware
	logger   observe.Logger
	metrics  observe.Metrics
	ttl      time.Duration
	inflight singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator sets the upstream. Without one, Generate returns
// ErrNotConfigured for every cache miss.
func WithGenerator(g generator.Generator) Option {
	return func(s *Service) { s.gen = g }
}

// WithExecutor wraps upstream calls. A nil executor calls the generator directly.
func WithExecutor(e *resilience.Executor) Option {
	return func(s *Service) { s.exec = e }
}

// WithDecoder replaces the default decoder.
func WithDecoder(d *decode.Decoder) Option {
	return func(s *Service) {
		if d != nil {
			s.decoder = d
		}
	}
}

// WithObserver traces, meters and logs through obs.
func WithObserver(obs observe.Observer) Option {
	return func(s *Service) {
		if obs != nil {
			s.mw = observe.MiddlewareFromObserver(obs)
			s.metrics = obs.Metrics()
			s.logger = obs.Logger().With(observe.Field{Key: "component", Value: "recipe"})
		}
	}
}

// WithTTL sets the cache TTL for generated recipes. Zero applies the cache default.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// NewService creates a Service storing recipes in c.
func NewService(c *cache.Service[Recipe], opts ...Option) (*Service, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	s := &Service{
		cache:   c,
		mw:      observe.NewMiddleware(nil, nil, nil),
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.decoder == nil {
		s.decoder = decode.New(decode.WithLogger(s.logger), decode.WithMetrics(s.metrics))
	}
	return s, nil
}

// Configured reports whether a generator is available.
func (s *Service) Configured() bool {
	return s.gen != nil
}

// Generator returns the configured generator, or nil.
func (s *Service) Generator() generator.Generator {
	return s.gen
}

// Cache returns the recipe cache.
func (s *Service) Cache() *cache.Service[Recipe] {
	return s.cache
}

// Generate returns the recipe for req, from cache when possible.
func (s *Service) Generate(ctx context.Context, req Request) (Recipe, error) {
	return observe.Observe(ctx, s.mw, opGenerate, func(ctx context.Context) (Recipe, error) {
		return s.generate(ctx, req)
	})
}

func (s *Service) generate(ctx context.Context, req Request) (Recipe, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Recipe{}, err
	}
	if s.gen == nil {
		return Recipe{}, ErrNotConfigured
	}

	if r, ok := s.cache.Get(ctx, req.DishName, req.Servings, req.DietaryRestrictions); ok {
		s.logger.Info(ctx, "recipe cache hit", observe.Field{Key: "dish_name", Value: req.DishName})
		return r, nil
	}

	key := cache.Fingerprint(req.DishName, req.Servings, req.DietaryRestrictions)
	ch := s.inflight.DoChan(key, func() (any, error) {
		return s.produce(context.WithoutCancel(ctx), req)
	})

	select {
	case <-ctx.Done():
		return Recipe{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Recipe{}, res.Err
		}
		if res.Shared {
			s.logger.Debug(ctx, "shared in-flight generation", observe.Field{Key: "dish_name", Value: req.DishName})
		}
		return res.Val.(Recipe), nil
	}
}

// produce runs one upstream generation and caches the result.
func (s *Service) produce(ctx context.Context, req Request) (Recipe, error) {
	prompt := BuildPrompt(req)
	upstream := observe.Operation{Component: "generator", Name: s.gen.Name()}

	resp, err := resilience.Do(ctx, s.exec, func(ctx context.Context) (generator.Response, error) {
		return observe.Observe(ctx, s.mw, upstream, func(ctx context.Context) (generator.Response, error) {
			return s.gen.Generate(ctx, prompt)
		})
	})
	if err != nil {
		return Recipe{}, fmt.Errorf("recipe: generate %q: %w", req.DishName, err)
	}
	if resp.Truncated {
		s.logger.Warn(ctx, "generator output hit the token limit",
			observe.Field{Key: "dish_name", Value: req.DishName},
			observe.Field{Key: "tokens_used", Value: resp.TokensUsed},
		)
	}

	r, err := observe.Observe(ctx, s.mw, opDecode, func(ctx context.Context) (Recipe, error) {
		res, err := s.decoder.Decode(ctx, resp.Text)
		if err != nil {
			return Recipe{}, err
		}
		return FromResult(res)
	})
	if err != nil {
		return Recipe{}, err
	}

	if err := s.cache.Set(ctx, req.DishName, req.Servings, r, req.DietaryRestrictions, s.ttl); err != nil {
		s.logger.Warn(ctx, "failed to cache recipe", observe.Field{Key: "error", Value: err})
	}
	s.logger.Info(ctx, "generated recipe",
		observe.Field{Key: "dish_name", Value: req.DishName},
		observe.Field{Key: "servings", Value: req.Servings},
	)
	return r, nil
}
