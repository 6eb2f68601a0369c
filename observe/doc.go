// Package observe provides the telemetry primitives used across recipeops.
//
// An Observer bundles an OpenTelemetry tracer and meter with the recipeops
// instruments (Metrics) and a JSON line Logger. Middleware wraps a unit of
// work in a span and records its duration and outcome. Components accept
// these pieces as options and fall back to no-op implementations, so the
// cache and decoder stay usable without any telemetry wired.
package observe
