package resilience

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Rate is a request budget over a window, such as "10/minute".
type Rate struct {
	Limit  int
	Window time.Duration
}

// ParseRate parses "<n>/<unit>" where unit is second, minute, hour or day
// (singular or plural) or a Go duration such as "30s".
func ParseRate(s string) (Rate, error) {
	count, unit, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n <= 0 {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}

	var window time.Duration
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), "s") {
	case "second", "sec":
		window = time.Second
	case "minute", "min":
		window = time.Minute
	case "hour":
		window = time.Hour
	case "day":
		window = 24 * time.Hour
	default:
		d, err := time.ParseDuration(strings.TrimSpace(unit))
		if err != nil || d <= 0 {
			return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
		}
		window = d
	}
	return Rate{Limit: n, Window: window}, nil
}

// PerSecond returns the refill rate in tokens per second.
func (r Rate) PerSecond() float64 {
	return float64(r.Limit) / r.Window.Seconds()
}

func (r Rate) String() string {
	return fmt.Sprintf("%d/%s", r.Limit, r.Window)
}

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of operations allowed per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// WaitOnLimit waits for a token instead of returning error.
	// Default: false
	WaitOnLimit bool

	// MaxWait is the maximum time to wait for a token.
	// Default: 1 second
	MaxWait time.Duration

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

func (c *RateLimiterConfig) applyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 100
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	if c.MaxWait <= 0 {
		c.MaxWait = time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// RateLimiterConfigFor returns a config whose bucket holds r.Limit tokens
// and refills them evenly over r.Window.
func RateLimiterConfigFor(r Rate) RateLimiterConfig {
	return RateLimiterConfig{Rate: r.PerSecond(), Burst: r.Limit}
}

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	config RateLimiterConfig

	mu          sync.Mutex
	tokens      float64
	lastRefresh time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	config.applyDefaults()
	return &RateLimiter{
		config:      config,
		tokens:      float64(config.Burst),
		lastRefresh: config.Now(),
	}
}

// Allow checks if a request is allowed under the rate limit.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN checks if n requests are allowed.
func (rl *RateLimiter) AllowN(n int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokens >= float64(n) {
		rl.tokens -= float64(n)
		return true
	}
	return false
}

// RetryAfter returns how long until one token is available.
func (rl *RateLimiter) RetryAfter() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - rl.tokens) / rl.config.Rate * float64(time.Second))
}

// Wait blocks until a token is available or context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rl.Allow() {
		return nil
	}

	wait := min(rl.RetryAfter(), rl.config.MaxWait)
	if err := sleepContext(ctx, wait); err != nil {
		return err
	}
	if rl.Allow() {
		return nil
	}
	return ErrRateLimitExceeded
}

// Execute runs the operation if allowed by rate limit.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.Allow() {
		return ErrRateLimitExceeded
	}

	return op(ctx)
}

func (rl *RateLimiter) refillLocked() {
	now := rl.config.Now()
	elapsed := now.Sub(rl.lastRefresh)
	if elapsed <= 0 {
		return
	}
	rl.lastRefresh = now
	rl.tokens = min(rl.tokens+elapsed.Seconds()*rl.config.Rate, float64(rl.config.Burst))
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

// full reports a bucket that has refilled completely.
func (rl *RateLimiter) full() bool {
	return rl.Tokens() >= float64(rl.config.Burst)
}

// Reset resets the rate limiter to full capacity.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = float64(rl.config.Burst)
	rl.lastRefresh = rl.config.Now()
}

// KeyedRateLimiter keeps one token bucket per key, such as a client address.
type KeyedRateLimiter struct {
	config  RateLimiterConfig
	maxKeys int

	mu      sync.Mutex
	buckets map[string]*keyedBucket
}

type keyedBucket struct {
	limiter  *RateLimiter
	lastUsed time.Time
}

// DefaultMaxKeys caps the number of buckets a KeyedRateLimiter holds. At the
// cap, refilled buckets are dropped first, then the least recently used.
const DefaultMaxKeys = 10000

// NewKeyedRateLimiter creates a limiter applying rate to every key.
func NewKeyedRateLimiter(rate Rate, opts ...func(*RateLimiterConfig)) *KeyedRateLimiter {
	config := RateLimiterConfigFor(rate)
	for _, opt := range opts {
		opt(&config)
	}
	config.applyDefaults()
	return &KeyedRateLimiter{
		config:  config,
		maxKeys: DefaultMaxKeys,
		buckets: make(map[string]*keyedBucket),
	}
}

// Allow takes a token from key's bucket. When it refuses, the returned
// duration is how long until a token is available.
func (k *KeyedRateLimiter) Allow(key string) (bool, time.Duration) {
	b := k.bucket(key)
	if b.Allow() {
		return true, 0
	}
	return false, b.RetryAfter()
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

func (k *KeyedRateLimiter) bucket(key string) *RateLimiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.config.Now()
	if b, ok := k.buckets[key]; ok {
		b.lastUsed = now
		return b.limiter
	}
	if len(k.buckets) >= k.maxKeys {
		k.pruneLocked()
	}
	b := &keyedBucket{limiter: NewRateLimiter(k.config), lastUsed: now}
	k.buckets[key] = b
	return b.limiter
}

// pruneLocked drops buckets that have refilled, which behave the same as a
// fresh bucket. If that frees nothing it evicts the least recently used
// buckets down to a low water mark, so the next inserts skip the scan.
func (k *KeyedRateLimiter) pruneLocked() {
	for key, b := range k.buckets {
		if b.limiter.full() {
			delete(k.buckets, key)
		}
	}
	target := k.maxKeys - k.maxKeys/10 - 1
	if len(k.buckets) <= target {
		return
	}

	keys := make([]string, 0, len(k.buckets))
	for key := range k.buckets {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return k.buckets[a].lastUsed.Compare(k.buckets[b].lastUsed)
	})
	for _, key := range keys[:len(keys)-max(target, 0)] {
		delete(k.buckets, key)
	}
}
