package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/recipeops/observe"
)

// EvictReason tells an eviction hook why an entry left the cache.
type EvictReason int

const (
	// EvictCapacity means the entry was the least recently used one when a
	// new key was inserted at capacity.
	EvictCapacity EvictReason = iota
	// EvictExpired means the entry was found past its expiry and purged.
	EvictExpired
)

// String returns the string representation of the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// EvictFunc observes entries removed by the cache itself. It is never called
// for Delete or Clear, and never while the cache lock is held.
type EvictFunc func(key string, reason EvictReason)

// MemoryOption configures a MemoryCache.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	now     func() time.Time
	onEvict EvictFunc
	logger  observe.Logger
}

// WithClock sets the time source used for expiry. Default: time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithEvictHook registers a callback for capacity and expiry evictions.
func WithEvictHook(fn EvictFunc) MemoryOption {
	return func(o *memoryOptions) {
		o.onEvict = fn
	}
}

// WithLogger sets the logger used for debug output on evictions.
func WithLogger(l observe.Logger) MemoryOption {
	return func(o *memoryOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// nilHandle marks the absence of a neighbour in the recency list.
const nilHandle int32 = -1

// node is an arena slot. Handles are indexes into MemoryCache.nodes and stay
// valid until the slot is released to the free list.
type node[V any] struct {
	key       string
	value     V
	createdAt time.Time
	expiresAt time.Time // zero = never expires
	prev      int32
	next      int32
}

// MemoryCache is an in-memory Cache with TTL expiry and LRU eviction.
//
// Entries live in an arena of nodes linked into a recency list, least
// recently used at the head and most recently used at the tail. The index
// maps keys to node handles so promotion and eviction are O(1). Expired
// entries are purged lazily by Get and Size; there is no background sweep.
type MemoryCache[V any] struct {
	policy  Policy
	now     func() time.Time
	onEvict EvictFunc
	logger  observe.Logger

	mu    sync.Mutex
	index map[string]int32
	nodes []node[V]
	free  []int32
	head  int32
	tail  int32
}

// NewMemoryCache creates a new in-memory cache with the given policy.
func NewMemoryCache[V any](policy Policy, opts ...MemoryOption) (*MemoryCache[V], error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	o := memoryOptions{
		now:    time.Now,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &MemoryCache[V]{
		policy:  policy,
		now:     o.now,
		onEvict: o.onEvict,
		logger:  o.logger,
		index:   make(map[string]int32),
		head:    nilHandle,
		tail:    nilHandle,
	}, nil
}

// Policy returns the policy the cache was created with.
func (c *MemoryCache[V]) Policy() Policy {
	return c.policy
}

// Get retrieves a value from the cache. Returns (zero, false) on miss or expiry.
func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V

	c.mu.Lock()
	h, ok := c.index[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}

	if c.expiredLocked(h, c.now()) {
		c.releaseLocked(h)
		c.mu.Unlock()
		c.evicted(key, EvictExpired)
		return zero, false
	}

	c.unlinkLocked(h)
	c.pushTailLocked(h)
	value := c.nodes[h].value
	c.mu.Unlock()

	return value, true
}

// Set stores a value and marks it most recently used. Overwriting a key
// resets its value, expiry and recency position.
func (c *MemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	effective, err := c.policy.EffectiveTTL(ttl)
	if err != nil {
		return err
	}

	now := c.now()
	var expiresAt time.Time
	if effective > 0 {
		expiresAt = now.Add(effective)
	}

	c.mu.Lock()
	if h, ok := c.index[key]; ok {
		n := &c.nodes[h]
		n.value = value
		n.createdAt = now
		n.expiresAt = expiresAt
		c.unlinkLocked(h)
		c.pushTailLocked(h)
		c.mu.Unlock()
		return nil
	}

	var victims []string
	for len(c.index) >= c.policy.MaxSize && c.head != nilHandle {
		victim := c.head
		victims = append(victims, c.nodes[victim].key)
		c.releaseLocked(victim)
	}

	h := c.allocLocked()
	c.nodes[h] = node[V]{
		key:       key,
		value:     value,
		createdAt: now,
		expiresAt: expiresAt,
		prev:      nilHandle,
		next:      nilHandle,
	}
	c.index[key] = h
	c.pushTailLocked(h)
	c.mu.Unlock()

	for _, k := range victims {
		c.evicted(k, EvictCapacity)
	}
	return nil
}

// Delete removes a value from the cache and reports whether it existed.
func (c *MemoryCache[V]) Delete(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.index[key]
	if !ok {
		return false
	}
	c.releaseLocked(h)
	return true
}

// Clear removes all entries and recency state.
func (c *MemoryCache[V]) Clear(_ context.Context) {
	c.mu.Lock()
	c.index = make(map[string]int32)
	c.nodes = nil
	c.free = nil
	c.head = nilHandle
	c.tail = nilHandle
	c.mu.Unlock()

	c.logger.Info(context.Background(), "cache cleared")
}

// Size returns the number of live entries. Expired entries encountered
// during the count are purged.
func (c *MemoryCache[V]) Size(_ context.Context) int {
	c.mu.Lock()
	now := c.now()
	var expired []string
	for h := c.head; h != nilHandle; {
		next := c.nodes[h].next
		if c.expiredLocked(h, now) {
			expired = append(expired, c.nodes[h].key)
			c.releaseLocked(h)
		}
		h = next
	}
	size := len(c.index)
	c.mu.Unlock()

	for _, k := range expired {
		c.evicted(k, EvictExpired)
	}
	return size
}

// Keys returns up to limit live keys ordered from least to most recently
// used. It does not touch recency and does not purge.
func (c *MemoryCache[V]) Keys(_ context.Context, limit int) []string {
	if limit <= 0 {
		return []string{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, min(limit, len(c.index)))
	for h := c.head; h != nilHandle && len(keys) < limit; h = c.nodes[h].next {
		if c.expiredLocked(h, now) {
			continue
		}
		keys = append(keys, c.nodes[h].key)
	}
	return keys
}

func (c *MemoryCache[V]) expiredLocked(h int32, now time.Time) bool {
	exp := c.nodes[h].expiresAt
	return !exp.IsZero() && now.After(exp)
}

func (c *MemoryCache[V]) allocLocked() int32 {
	if n := len(c.free); n > 0 {
		h := c.free[n-1]
		c.free = c.free[:n-1]
		return h
	}
	c.nodes = append(c.nodes, node[V]{prev: nilHandle, next: nilHandle})
	return int32(len(c.nodes) - 1)
}

// releaseLocked unlinks the node, drops its index entry and returns the slot
// to the free list.
func (c *MemoryCache[V]) releaseLocked(h int32) {
	c.unlinkLocked(h)
	delete(c.index, c.nodes[h].key)
	c.nodes[h] = node[V]{prev: nilHandle, next: nilHandle}
	c.free = append(c.free, h)
}

func (c *MemoryCache[V]) unlinkLocked(h int32) {
	n := &c.nodes[h]
	if n.prev != nilHandle {
		c.nodes[n.prev].next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nilHandle {
		c.nodes[n.next].prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev = nilHandle
	n.next = nilHandle
}

func (c *MemoryCache[V]) pushTailLocked(h int32) {
	n := &c.nodes[h]
	n.prev = c.tail
	n.next = nilHandle
	if c.tail != nilHandle {
		c.nodes[c.tail].next = h
	} else {
		c.head = h
	}
	c.tail = h
}

func (c *MemoryCache[V]) evicted(key string, reason EvictReason) {
	c.logger.Debug(context.Background(), "cache entry evicted",
		observe.Field{Key: "key", Value: key},
		observe.Field{Key: "reason", Value: reason.String()},
	)
	if c.onEvict != nil {
		c.onEvict(key, reason)
	}
}

// Ensure MemoryCache implements Cache
var _ Cache[any] = (*MemoryCache[any])(nil)
