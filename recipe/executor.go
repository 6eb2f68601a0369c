package recipe

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/recipeops/generator"
	"github.com/jonwraymond/recipeops/observe"
	"github.com/jonwraymond/recipeops/resilience"
)

// ExecutorConfig bounds upstream generation calls.
type ExecutorConfig struct {
	// MaxConcurrent caps in-flight generations. Default: 4
	MaxConcurrent int
	// MaxWait is how long a generation may queue for a slot. Default: 30s
	MaxWait time.Duration
	// MaxAttempts includes the first call. Default: 3
	MaxAttempts int
	// AttemptTimeout bounds each attempt. Default: 120s
	AttemptTimeout time.Duration
	// FailureThreshold opens the circuit after this many failed calls. Default: 5
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open. Default: 30s
	ResetTimeout time.Duration
}

// DefaultExecutorConfig returns the production limits.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:    4,
		MaxWait:          30 * time.Second,
		MaxAttempts:      3,
		AttemptTimeout:   120 * time.Second,
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// NewExecutor builds the executor used around generator calls: a bulkhead,
// a circuit breaker, retries for rate limits and server errors honouring
// Retry-After, and a per attempt timeout.
func NewExecutor(cfg ExecutorConfig, logger observe.Logger) *resilience.Executor {
	if logger == nil {
		logger = observe.NopLogger()
	}
	def := DefaultExecutorConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}

	ctx := context.Background()
	return resilience.NewExecutor(
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.MaxWait,
		})),
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.FailureThreshold,
			ResetTimeout: cfg.ResetTimeout,
			IsFailure:    countsAgainstUpstream,
			OnStateChange: func(from, to resilience.State) {
				logger.Warn(ctx, "generator circuit changed state",
					observe.Field{Key: "from", Value: from.String()},
					observe.Field{Key: "to", Value: to.String()},
				)
			},
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
			RetryIf:      generator.Retryable,
			RetryAfter:   generator.RetryAfter,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				logger.Warn(ctx, "retrying generation",
					observe.Field{Key: "attempt", Value: attempt},
					observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
					observe.Field{Key: "error", Value: err},
				)
			},
		})),
		resilience.WithTimeout(cfg.AttemptTimeout),
	)
}

// countsAgainstUpstream ignores caller cancellation and requests the
// upstream rejected as invalid.
func countsAgainstUpstream(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *generator.StatusError
	if errors.As(err, &se) && se.Code < 500 && se.Code != 429 {
		return errors.Is(err, generator.ErrAuth)
	}
	return true
}
