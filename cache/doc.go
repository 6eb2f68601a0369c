// Package cache provides the in-memory recipe cache.
//
// It provides a generic Cache interface with a MemoryCache implementation
// (TTL expiry, strict LRU eviction under a size bound), deterministic request
// fingerprints, and a Service that keys values by recipe request fields.
//
// State is memory resident only and is lost on restart.
package cache
