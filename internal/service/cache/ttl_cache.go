package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds an in-process cache. Forecasts are keyed by
// (date, cash), so a busy dashboard produces few distinct keys per day.
const DefaultMaxEntries = 1024

type item struct {
	value   []byte
	expires time.Time
}

// TTLCache is the in-process BytesCache used when Redis is off. When full,
// expired entries are swept first, then the entry closest to expiry goes.
type TTLCache struct {
	mu    sync.Mutex
	items map[string]item
	max   int
	now   func() time.Time
}

func NewTTLCache() *TTLCache {
	return NewTTLCacheWithLimit(DefaultMaxEntries)
}

func NewTTLCacheWithLimit(max int) *TTLCache {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &TTLCache{items: make(map[string]item), max: max, now: time.Now}
}

func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if c.expired(it) {
		delete(c.items, key)
		return nil, false, nil
	}
	return it.value, true, nil
}

// SetBytes stores a copy of value. A non-positive ttl never expires.
func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	it := item{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.max {
		c.evict()
	}
	c.items[key] = it
	return nil
}

// Len counts entries, expired ones included until they are swept.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close drops every entry.
func (c *TTLCache) Close() error {
	c.mu.Lock()
	c.items = make(map[string]item)
	c.mu.Unlock()
	return nil
}

func (c *TTLCache) expired(it item) bool {
	return !it.expires.IsZero() && c.now().After(it.expires)
}

// evict runs with mu held.
func (c *TTLCache) evict() {
	for k, it := range c.items {
		if c.expired(it) {
			delete(c.items, k)
		}
	}
	if len(c.items) < c.max {
		return
	}
	var victim string
	var soonest time.Time
	for k, it := range c.items {
		if it.expires.IsZero() {
			continue
		}
		if victim == "" || it.expires.Before(soonest) {
			victim, soonest = k, it.expires
		}
	}
	if victim == "" {
		for k := range c.items {
			victim = k
			break
		}
	}
	delete(c.items, victim)
}
