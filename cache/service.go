package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/recipeops/observe"
)

// StatsSampleSize is the number of keys reported by Service.Stats.
const StatsSampleSize = 10

// Stats is a diagnostic snapshot of cache occupancy.
type Stats struct {
	Count      int      `json:"count"`
	SampleKeys []string `json:"sample_keys"`
	// MaxSize is the capacity bound, or 0 if the cache does not report one.
	MaxSize int `json:"max_size"`
}

// policyReporter is implemented by caches that expose their Policy.
type policyReporter interface {
	Policy() Policy
}

// Service composes a Keyer and a Cache into a recipe level API.
//
// Contract:
// - Concurrency: safe for concurrent use if the underlying Cache is.
// - Errors: Get never errors; Set only fails with the Cache's contract errors.
type Service[V any] struct {
	cache   Cache[V]
	keyer   Keyer
	metrics observe.Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	keyer   Keyer
	metrics observe.Metrics
}

// WithKeyer overrides the default RecipeKeyer.
func WithKeyer(k Keyer) ServiceOption {
	return func(o *serviceOptions) {
		if k != nil {
			o.keyer = k
		}
	}
}

// WithMetrics records hits and misses to m.
func WithMetrics(m observe.Metrics) ServiceOption {
	return func(o *serviceOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// NewService creates a Service over c.
func NewService[V any](c Cache[V], opts ...ServiceOption) (*Service[V], error) {
	if c == nil {
		return nil, ErrNilCache
	}
	o := serviceOptions{
		keyer:   NewRecipeKeyer(),
		metrics: observe.NopMetrics(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service[V]{cache: c, keyer: o.keyer, metrics: o.metrics}, nil
}

// Get returns the cached value for the request fields.
func (s *Service[V]) Get(ctx context.Context, name string, servings int, restrictions []string) (V, bool) {
	v, ok := s.cache.Get(ctx, s.keyer.Key(name, servings, restrictions))
	s.metrics.RecordCacheLookup(ctx, ok)
	return v, ok
}

// Set caches value for the request fields. TTL=0 applies the cache default.
func (s *Service[V]) Set(ctx context.Context, name string, servings int, value V, restrictions []string, ttl time.Duration) error {
	return s.cache.Set(ctx, s.keyer.Key(name, servings, restrictions), value, ttl)
}

// Stats returns the live entry count and a bounded sample of keys.
func (s *Service[V]) Stats(ctx context.Context) Stats {
	stats := Stats{
		Count:      s.cache.Size(ctx),
		SampleKeys: s.cache.Keys(ctx, StatsSampleSize),
	}
	if p, ok := s.cache.(policyReporter); ok {
		stats.MaxSize = p.Policy().MaxSize
	}
	return stats
}

// Clear removes every cached value.
func (s *Service[V]) Clear(ctx context.Context) {
	s.cache.Clear(ctx)
}

// Size returns the number of live entries.
func (s *Service[V]) Size(ctx context.Context) int {
	return s.cache.Size(ctx)
}
