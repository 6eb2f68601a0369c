package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/recipeops/cache"
	"github.com/jonwraymond/recipeops/resilience"
)

// CacheFullRatio marks the cache degraded once occupancy reaches it.
const CacheFullRatio = 0.95

// StatsSource is implemented by cache.Service.
type StatsSource interface {
	Stats(ctx context.Context) cache.Stats
}

type cacheChecker struct {
	src StatsSource
}

// NewCacheChecker reports cache occupancy. A nearly full cache is degraded
// since every new recipe then evicts another.
func NewCacheChecker(src StatsSource) Checker {
	return cacheChecker{src: src}
}

func (c cacheChecker) Name() string { return "cache" }

func (c cacheChecker) Check(ctx context.Context) Result {
	st := c.src.Stats(ctx)
	details := map[string]any{"size": st.Count, "max_size": st.MaxSize}
	if st.MaxSize > 0 && float64(st.Count) >= CacheFullRatio*float64(st.MaxSize) {
		return Degraded(fmt.Sprintf("cache at %d of %d entries", st.Count, st.MaxSize)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d entries cached", st.Count)).WithDetails(details)
}

// Configurable is implemented by recipe.Service.
type Configurable interface {
	Configured() bool
}

type generatorChecker struct {
	name string
	src  Configurable
}

// NewGeneratorChecker reports whether the upstream generator is configured.
// A missing API key degrades the service: cached recipes are still served.
func NewGeneratorChecker(name string, src Configurable) Checker {
	return generatorChecker{name: name, src: src}
}

func (g generatorChecker) Name() string { return g.name }

func (g generatorChecker) Check(context.Context) Result {
	if !g.src.Configured() {
		return Degraded("api key not configured").WithDetails(map[string]any{"configured": false})
	}
	return Healthy("configured").WithDetails(map[string]any{"configured": true})
}

type circuitChecker struct {
	name string
	cb   *resilience.CircuitBreaker
}

// NewCircuitChecker reports an open breaker as unhealthy and a probing one
// as degraded.
func NewCircuitChecker(name string, cb *resilience.CircuitBreaker) Checker {
	return circuitChecker{name: name, cb: cb}
}

func (c circuitChecker) Name() string { return c.name }

func (c circuitChecker) Check(context.Context) Result {
	m := c.cb.Metrics()
	details := map[string]any{"state": m.State.String(), "failures": m.Failures}
	if !m.LastFailure.IsZero() {
		details["last_failure"] = m.LastFailure.UTC().Format(time.RFC3339)
	}
	switch m.State {
	case resilience.StateOpen:
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit probing").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}
