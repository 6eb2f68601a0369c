// Package resilience guards calls to flaky upstreams.
//
// It provides a circuit breaker, retry with backoff that honours server
// Retry-After hints, a token bucket rate limiter (plain and keyed per
// client), a semaphore bulkhead and a per attempt timeout. An Executor
// composes any subset of them:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 4})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(2*time.Minute),
//	)
//	text, err := resilience.Do(ctx, exec, func(ctx context.Context) (string, error) {
//	    return callUpstream(ctx)
//	})
//
// Rates for HTTP clients are written as "10/minute" and parsed by ParseRate.
package resilience
