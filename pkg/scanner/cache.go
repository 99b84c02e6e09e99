package scanner

import (
	"sync"
	"time"
)

// ttlCache caches API responses to reduce calls against the control plane
type ttlCache[T any] struct {
	data  map[string]cacheEntry[T]
	ttl   time.Duration
	now   func() time.Time
	mutex sync.Mutex
}

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func newTTLCache[T any](ttl time.Duration, now func() time.Time) *ttlCache[T] {
	return &ttlCache[T]{
		data: make(map[string]cacheEntry[T]),
		ttl:  ttl,
		now:  now,
	}
}

func (c *ttlCache[T]) Get(key string) (T, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.data[key]
	if !exists {
		var zero T
		return zero, false
	}

	if c.now().After(entry.expiresAt) {
		delete(c.data, key)
		var zero T
		return zero, false
	}

	return entry.value, true
}

func (c *ttlCache[T]) Set(key string, value T) {
	if c.ttl <= 0 {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheEntry[T]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *ttlCache[T]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]cacheEntry[T])
}
