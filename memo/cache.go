package memo

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/rustyeddy/servicer/internal/metrics"
)

// DefaultSize is the number of snapshots each cache keeps.
const DefaultSize = 256

// Stats counts cache activity.
type Stats struct {
	Hits     uint64
	Misses   uint64 // each miss is one computation
	Entries  int
	Capacity int
}

// Cache is a bounded, content-addressed memo table safe for concurrent use.
// Concurrent callers missing on the same key share a single computation.
// Values are handed out as-is and must be treated as read-only.
type Cache[V any] struct {
	name  string
	size  int
	lru   *lru.Cache[Key, V]
	group singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

func New[V any](name string, size int) (*Cache[V], error) {
	if size <= 0 {
		return nil, fmt.Errorf("memo: cache %q size must be positive, got %d", name, size)
	}
	l, err := lru.New[Key, V](size)
	if err != nil {
		return nil, fmt.Errorf("memo: cache %q: %w", name, err)
	}
	return &Cache[V]{name: name, size: size, lru: l}, nil
}

// MustNew is New for package-level caches with constant sizes.
func MustNew[V any](name string, size int) *Cache[V] {
	c, err := New[V](name, size)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the value stored under key, computing and storing it on a miss.
func (c *Cache[V]) Get(key Key, compute func() V) V {
	if v, ok := c.lru.Get(key); ok {
		c.hit()
		return v
	}

	computed := false
	v, _, _ := c.group.Do(key.String(), func() (any, error) {
		// another caller may have filled the key while we waited
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		computed = true
		v := compute()
		c.lru.Add(key, v)
		return v, nil
	})

	if computed {
		c.misses.Add(1)
		metrics.ObserveMemo(c.name, false, c.lru.Len())
	} else {
		c.hit()
	}
	return v.(V)
}

func (c *Cache[V]) hit() {
	c.hits.Add(1)
	metrics.ObserveMemo(c.name, true, c.lru.Len())
}

func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Entries:  c.lru.Len(),
		Capacity: c.size,
	}
}

// Purge drops every entry. Counters are kept.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}

func (c *Cache[V]) Name() string { return c.name }
