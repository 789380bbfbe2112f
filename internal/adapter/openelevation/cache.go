package openelevation

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// PointLookup returns the elevation of one point.
type PointLookup interface {
	Elevation(ctx context.Context, lat, lon float64) (float64, error)
}

// CachedLookup keeps the most recently requested point elevations. Points
// are keyed at 5 decimal places (about 1 m). Failed lookups are not cached.
type CachedLookup struct {
	inner PointLookup
	cache *pointCache
}

// NewCachedLookup wraps inner with a cache of at most maxEntries points.
func NewCachedLookup(inner PointLookup, maxEntries int) *CachedLookup {
	return &CachedLookup{inner: inner, cache: newPointCache(maxEntries)}
}

func (c *CachedLookup) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	key := fmt.Sprintf("%.5f,%.5f", lat, lon)
	if v, ok := c.cache.get(key); ok {
		return v, nil
	}
	v, err := c.inner.Elevation(ctx, lat, lon)
	if err != nil {
		return 0, err
	}
	c.cache.put(key, v)
	return v, nil
}

// pointCache is a thread-safe LRU. The list front is the most recently used.
type pointCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[string]*list.Element
}

type pointEntry struct {
	key       string
	elevation float64
}

func newPointCache(maxEntries int) *pointCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &pointCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *pointCache) get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*pointEntry).elevation, true
}

func (c *pointCache) put(key string, elevation float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*pointEntry).elevation = elevation
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&pointEntry{key: key, elevation: elevation})

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*pointEntry).key)
	}
}

func (c *pointCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
