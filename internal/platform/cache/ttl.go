package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/cricket-analytics/internal/platform/resilience"
)

const defaultMaxEntries = 1024

var ErrNoLoader = crerr.New("cache loader is required")

type Config struct {
	Enabled    bool
	TTL        time.Duration
	MaxEntries int
}

type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

type slot[V any] struct {
	value    V
	storedAt time.Time
}

// TTL is an in-process read-through cache. Concurrent loads of one key share a
// single loader call. When full, the oldest entry is evicted.
type TTL[V any] struct {
	mu     sync.RWMutex
	slots  map[string]slot[V]
	ttl    time.Duration
	limit  int
	flight resilience.SingleFlight[V]
	now    func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New returns nil when cfg is disabled; a nil *TTL loads straight through.
func New[V any](cfg Config) *TTL[V] {
	if !cfg.Enabled {
		return nil
	}
	limit := cfg.MaxEntries
	if limit < 1 {
		limit = defaultMaxEntries
	}
	return &TTL[V]{
		slots: make(map[string]slot[V]),
		ttl:   cfg.TTL,
		limit: limit,
		now:   time.Now,
	}
}

// Load returns the cached value for key, calling loader on a miss. Loader
// errors are returned and never cached.
func (c *TTL[V]) Load(ctx context.Context, key string, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if loader == nil {
		return zero, ErrNoLoader
	}
	if c == nil || key == "" {
		return loader(ctx)
	}

	if value, ok := c.Peek(key); ok {
		c.hits.Add(1)
		return value, nil
	}
	c.misses.Add(1)

	value, _, err := c.flight.Do(key, func() (V, error) {
		if cached, ok := c.Peek(key); ok {
			return cached, nil
		}
		loaded, err := loader(ctx)
		if err != nil {
			return zero, err
		}
		c.Put(key, loaded)
		return loaded, nil
	})
	return value, err
}

func (c *TTL[V]) Peek(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.RLock()
	s, ok := c.slots[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if c.expired(s) {
		c.mu.Lock()
		if cur, ok := c.slots[key]; ok && c.expired(cur) {
			delete(c.slots, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return s.value, true
}

func (c *TTL[V]) Put(key string, value V) {
	if c == nil || key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.slots[key]; !exists && len(c.slots) >= c.limit {
		c.evictOldestLocked()
	}
	c.slots[key] = slot[V]{value: value, storedAt: c.now()}
}

// Stats reports lookups since creation and the current entry count.
func (c *TTL[V]) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.RLock()
	entries := len(c.slots)
	c.mu.RUnlock()
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: entries}
}

func (c *TTL[V]) expired(s slot[V]) bool {
	return c.ttl > 0 && c.now().Sub(s.storedAt) >= c.ttl
}

func (c *TTL[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, s := range c.slots {
		if oldestKey == "" || s.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = key, s.storedAt
		}
	}
	delete(c.slots, oldestKey)
}
