// Package health reports whether the recipe service can do its job.
//
// Checkers cover the cache, the upstream generator configuration, the
// generator circuit breaker and heap usage. An Aggregator runs them
// concurrently under one timeout and folds them into a single Status:
// any unhealthy check makes the service unhealthy, any degraded check
// makes it degraded.
//
// RegisterHandlers mounts /healthz (liveness), /readyz (readiness) and
// /health/checks (per check JSON).
package health
