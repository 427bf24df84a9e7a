package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a MemoryCache built without an explicit size.
const DefaultMaxEntries = 500

// MemoryCache is a bounded in-process Cache. Entries expire lazily on read
// once older than their TTL. When full, the entry inserted earliest is
// evicted; reads never change eviction order.
type MemoryCache struct {
	mu         sync.Mutex
	maxEntries int
	now        func() time.Time
	order      *list.List
	entries    map[string]*list.Element
	counters   map[string]*counter
}

type memoryEntry struct {
	key      string
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

type counter struct {
	n         int64
	expiresAt time.Time
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a MemoryCache holding at most maxEntries values.
func NewMemoryCache(maxEntries int, opts ...MemoryOption) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &MemoryCache{
		maxEntries: maxEntries,
		now:        time.Now,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
		counters:   make(map[string]*counter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Ping(_ context.Context) error { return nil }

func (c *MemoryCache) Close() error { return nil }

// Set stores a copy of value. Overwriting a key refreshes its value and
// storedAt but keeps its place in the eviction order.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]byte, len(value))
	copy(buf, value)

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value = buf
		e.storedAt = c.now()
		e.ttl = ttl
		return nil
	}
	if len(c.entries) >= c.maxEntries {
		if oldest := c.order.Front(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	c.entries[key] = c.order.PushBack(&memoryEntry{
		key:      key,
		value:    buf,
		storedAt: c.now(),
		ttl:      ttl,
	})
	return nil
}

// Get returns a copy of the stored value. An entry older than its TTL is
// deleted and reported as absent.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*memoryEntry)
	if e.ttl > 0 && c.now().Sub(e.storedAt) > e.ttl {
		c.removeElement(el)
		return nil, false, nil
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
	return nil
}

// IncrWithExpiry increments a fixed-window counter. Counters live outside the
// bounded entry store so rate limiting never evicts cached results. They are
// bounded by the same capacity: when full, expired counters are dropped first,
// then the one closest to expiry.
func (c *MemoryCache) IncrWithExpiry(_ context.Context, key string, expiry time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	ctr, ok := c.counters[key]
	if !ok || !now.Before(ctr.expiresAt) {
		delete(c.counters, key)
		if len(c.counters) >= c.maxEntries {
			c.pruneCounters(now)
		}
		ctr = &counter{expiresAt: now.Add(expiry)}
		c.counters[key] = ctr
	}
	ctr.n++
	return ctr.n, nil
}

// Len reports the number of stored entries, including expired ones not yet read.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*memoryEntry)
	delete(c.entries, e.key)
}

func (c *MemoryCache) pruneCounters(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, ctr := range c.counters {
		if !now.Before(ctr.expiresAt) {
			delete(c.counters, k)
			continue
		}
		if oldestKey == "" || ctr.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = k, ctr.expiresAt
		}
	}
	if len(c.counters) >= c.maxEntries && oldestKey != "" {
		delete(c.counters, oldestKey)
	}
}

// CounterLen reports the number of live rate-limit counters.
func (c *MemoryCache) CounterLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counters)
}

var _ Cache = (*MemoryCache)(nil)
