package cache

import "time"

// Policy configures capacity and expiry for a MemoryCache.
type Policy struct {
	// MaxSize bounds the number of entries. Inserting a new key at capacity
	// evicts the least recently used entry first.
	MaxSize int

	// DefaultTTL is the TTL applied when Set is called with ttl=0.
	// If zero, such entries never expire.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Longer TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default caching policy.
// MaxSize: 1000, DefaultTTL: 1 hour, MaxTTL: none
func DefaultPolicy() Policy {
	return Policy{
		MaxSize:    1000,
		DefaultTTL: time.Hour,
	}
}

// Validate reports contract violations in the policy.
func (p Policy) Validate() error {
	if p.MaxSize <= 0 {
		return ErrInvalidMax
	}
	if p.DefaultTTL < 0 || p.MaxTTL < 0 {
		return ErrInvalidTTL
	}
	return nil
}

// EffectiveTTL resolves the TTL to store an entry with. A zero result means
// the entry never expires. MaxTTL, when set, also bounds entries that would
// otherwise never expire.
func (p Policy) EffectiveTTL(override time.Duration) (time.Duration, error) {
	var ttl time.Duration
	switch {
	case override == NoExpiration:
		ttl = 0
	case override < 0:
		return 0, ErrInvalidTTL
	case override == 0:
		ttl = p.DefaultTTL
	default:
		ttl = override
	}

	if p.MaxTTL > 0 && (ttl == 0 || ttl > p.MaxTTL) {
		ttl = p.MaxTTL
	}

	return ttl, nil
}
