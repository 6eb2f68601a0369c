// Package server exposes the recipe service over HTTP.
//
// Routes:
//
//	POST   /api/recipe        generate or fetch a cached recipe
//	GET    /api/cache/stats   cache occupancy
//	DELETE /api/cache/clear   drop every cached recipe
//	GET    /health            service summary
//	GET    /healthz, /readyz  probes (see package health)
//	GET    /metrics           Prometheus scrape endpoint
//
// Each route group has its own per client rate limit. Errors are written as
// {"message", "error_code", "details"}.
package server
