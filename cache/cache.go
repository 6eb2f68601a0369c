package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// NoExpiration passed as a TTL stores an entry that never expires.
const NoExpiration time.Duration = -1

// Sentinel errors for cache operations.
var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrInvalidTTL = errors.New("cache: ttl is invalid")
	ErrInvalidMax = errors.New("cache: max size must be positive")
)

// Cache is the capability contract for storing decoded values by key.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use and linearizable.
// - Context: methods accept a context for networked variants; the in-memory
// implementation never blocks and ignores it.
// - Errors: Get never errors; it returns (zero, false) on miss or expiry.
// Set only fails on contract violations such as an invalid TTL.
type Cache[V any] interface {
	// Get retrieves a live value and marks it most recently used.
	Get(ctx context.Context, key string) (V, bool)

	// Set stores a value. TTL=0 applies the default TTL, NoExpiration keeps it forever.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes a value and reports whether it existed.
	Delete(ctx context.Context, key string) bool

	// Clear removes every entry.
	Clear(ctx context.Context)

	// Size returns the number of live entries, purging expired ones.
	Size(ctx context.Context) int

	// Keys returns up to limit keys in a stable order, for diagnostics only.
	Keys(ctx context.Context, limit int) []string
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
