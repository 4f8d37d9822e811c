// Package cache is a small keyed in-memory cache with explicit invalidation.
//
// Entries are dropped by the code paths that change the underlying data. The TTL is
// only a backstop for changes made outside this process.
package cache

import (
	"sync"
	"time"

	"github.com/YusovID/feedback-360-service/internal/clock"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
	ttl   time.Duration
	clock clock.Clock
}

// New returns a cache. A ttl of zero disables time-based expiry.
func New[K comparable, V any](c clock.Clock, ttl time.Duration) *Cache[K, V] {
	if c == nil {
		c = clock.Real{}
	}

	return &Cache[K, V]{
		items: make(map[K]entry[V]),
		ttl:   ttl,
		clock: c,
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || c.expired(e) {
		var zero V
		return zero, false
	}

	return e.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, storedAt: c.clock.Now()}
	c.mu.Unlock()
}

func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	c.items = make(map[K]entry[V])
	c.mu.Unlock()
}

// GetOrLoad returns the cached value or calls load and stores its result.
// Errors are not cached.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	c.Set(key, v)

	return v, nil
}

func (c *Cache[K, V]) expired(e entry[V]) bool {
	return c.ttl > 0 && c.clock.Now().Sub(e.storedAt) >= c.ttl
}
