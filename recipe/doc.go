// Package recipe turns a dish request into a scaled, validated recipe.
//
// Service.Generate validates the request, answers from the cache when it
// can, and otherwise builds a prompt, calls the upstream generator through
// a resilience executor, recovers JSON with the decode package and checks
// the recipe shape before caching it. Concurrent identical misses share one
// upstream call.
package recipe
