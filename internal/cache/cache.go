package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Cache is a time-bounded memoization layer for idempotent upstream reads.
// Keys must encode the full identity of a query (operation kind plus all
// parameters) so two semantically different queries never collide.
//
// Expired entries are evicted lazily on lookup or overwritten on the next
// write for the same key. There is no in-flight computation dedup: under a
// concurrent miss the upstream work may run redundantly, which is acceptable
// because results are idempotent.
type Cache struct {
	log zerolog.Logger
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	value     any
	expiresAt time.Time
}

// New creates a cache with the given TTL. A TTL of zero (or below)
// disables caching entirely: every lookup computes.
func New(log zerolog.Logger, ttl time.Duration) *Cache {
	return NewWithClock(log, ttl, time.Now)
}

// NewWithClock is New with an injected clock, for deterministic tests.
func NewWithClock(log zerolog.Logger, ttl time.Duration, now func() time.Time) *Cache {
	return &Cache{
		log:     log.With().Str("module", "cache").Logger(),
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
	}
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// GetOrCompute returns the live cached value for key, or invokes compute,
// stores its result with expiry now+ttl, and returns it. Errors from
// compute are returned as-is and never cached.
func GetOrCompute[V any](c *Cache, key string, compute func() (V, error)) (V, error) {
	if c.ttl <= 0 {
		return compute()
	}

	if v, ok := c.get(key); ok {
		cached, ok := v.(V)
		if !ok {
			// Key collision across value types; treat as a miss.
			var zero V
			c.log.Warn().Str("key", key).Msgf("cached value has type %T, want %T", v, zero)
		} else {
			c.log.Debug().Str("key", key).Msg("cache hit")
			return cached, nil
		}
	}

	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	c.set(key, v)
	return v, nil
}

// Key joins an operation kind and its parameters into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
