package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds one CheckAll round.
const DefaultCheckTimeout = 5 * time.Second

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds a CheckAll round. Default: 5s
	Timeout time.Duration

	// MaxParallel caps concurrently running checks. Default: unlimited
	MaxParallel int

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

// Aggregator runs registered checkers and combines their results.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates an aggregator over checkers.
func NewAggregator(config AggregatorConfig, checkers ...Checker) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = DefaultCheckTimeout
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	a := &Aggregator{config: config}
	for _, c := range checkers {
		a.Register(c)
	}
	return a
}

// Register adds c, replacing any checker with the same name.
func (a *Aggregator) Register(c Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.indexLocked(c.Name()); i >= 0 {
		a.checkers[i] = c
		return
	}
	a.checkers = append(a.checkers, c)
}

// Names returns checker names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

// Check runs the checker called name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	i := a.indexLocked(name)
	var c Checker
	if i >= 0 {
		c = a.checkers[i]
	}
	a.mu.RUnlock()

	if c == nil {
		return Result{}, ErrCheckerNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return a.run(ctx, c), nil
}

// Report is the combined outcome of one CheckAll round.
type Report struct {
	Status  Status
	Results map[string]Result
}

// CheckAll runs every checker concurrently. A checker that outlives the
// round's timeout is reported unhealthy with ErrCheckTimeout.
func (a *Aggregator) CheckAll(ctx context.Context) Report {
	a.mu.RLock()
	checkers := slices.Clone(a.checkers)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make([]Result, len(checkers))
	var g errgroup.Group
	if a.config.MaxParallel > 0 {
		g.SetLimit(a.config.MaxParallel)
	}
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = a.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: StatusHealthy, Results: make(map[string]Result, len(checkers))}
	for i, c := range checkers {
		report.Results[c.Name()] = results[i]
		report.Status = report.Status.Worst(results[i].Status)
	}
	return report
}

func (a *Aggregator) run(ctx context.Context, c Checker) Result {
	start := a.config.Now()
	done := make(chan Result, 1)
	go func() {
		done <- c.Check(ctx)
	}()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimeout)
	}
	r.Duration = a.config.Now().Sub(start)
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}

func (a *Aggregator) indexLocked(name string) int {
	return slices.IndexFunc(a.checkers, func(c Checker) bool { return c.Name() == name })
}
