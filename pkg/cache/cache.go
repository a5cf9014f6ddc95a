// Package cache memoizes non-streaming provider responses in an LRU+TTL
// store keyed by a deterministic request fingerprint. Streaming responses
// are never cached: a stream is a one-time event sequence, not a replayable
// value.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
)

// Config configures a Cache.
type Config struct {
	// MaxEntries bounds the number of resident entries. Exceeding it evicts
	// the least-recently-accessed entry.
	MaxEntries int `json:"max_entries"`

	// TTL is the entry time-to-live, measured from insertion. Expiry is
	// lazy, on lookup.
	TTL time.Duration `json:"ttl"`
}

// DefaultConfig returns the standard cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 100,
		TTL:        time.Hour,
	}
}

// entry is a cached response with its bookkeeping timestamps. Entries are
// owned exclusively by the cache and never outlive the process.
type entry struct {
	response       *types.Response
	insertedAt     time.Time
	lastAccessedAt time.Time
}

// Cache is a thread-safe LRU+TTL response cache. All operations serialize
// through one mutex; the lock is held only for map mutation, never across
// network I/O. This is intentionally simple: LLM call latency dwarfs lock
// contention cost.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, *entry]
	ttl time.Duration
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache.
func New(cfg Config, opts ...Option) (*Cache, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}

	store, err := lru.New[string, *entry](cfg.MaxEntries)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		lru: store,
		ttl: cfg.TTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the cached response for req, or nil if absent or expired.
// A hit refreshes the entry's access time (LRU touch) and returns a copy
// deep enough that caller mutation cannot corrupt the cached value.
func (c *Cache) Get(req *types.Request) *types.Response {
	key, err := Fingerprint(req)
	if err != nil {
		// Caching is best effort; a hashing failure is a miss.
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		return nil
	}

	now := c.now()
	if now.Sub(e.insertedAt) >= c.ttl {
		c.lru.Remove(key)
		return nil
	}

	e.lastAccessedAt = now
	return e.response.Clone()
}

// Store inserts or overwrites the entry for req. When the store is full the
// least-recently-accessed entry is evicted first.
func (c *Cache) Store(resp *types.Response, req *types.Request) {
	key, err := Fingerprint(req)
	if err != nil {
		return
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, &entry{
		response:       resp.Clone(),
		insertedAt:     now,
		lastAccessedAt: now,
	})
}

// Clear removes all entries immediately.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of resident entries, including any not yet lazily
// expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
