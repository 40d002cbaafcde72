package assets

import (
	"sync"
	"sync/atomic"
)

type cacheEntry[V any] struct {
	value V
	err   error
}

// Cache memoizes decode results, failures included, for one import session.
// Entries are never evicted; Clear drops them all.
type Cache[K comparable, V any] struct {
	data map[K]cacheEntry[V]
	mu   sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a new cache.
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{data: make(map[K]cacheEntry[V])}
}

// GetOrLoad returns the memoized result for key, calling load on the first
// request. A failed load is remembered and its error returned on later calls.
// Concurrent first requests may both call load; the first stored result wins.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return e.value, e.err
	}
	c.misses.Add(1)

	value, err := load()

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.data[key]; ok {
		return prev.value, prev.err
	}
	c.data[key] = cacheEntry[V]{value: value, err: err}
	return value, err
}

// Len returns the number of stored results.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear clears the cache and its statistics.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]cacheEntry[V])
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() (hits, misses int) {
	return int(c.hits.Load()), int(c.misses.Load())
}
