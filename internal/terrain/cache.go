package terrain

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/paulmach/orb"
)

// Cache stores terrain statistics by centroid key. Entries are never replaced:
// Add keeps whichever value was stored first.
type Cache interface {
	Get(ctx context.Context, key string) (domain.TerrainStats, bool, error)
	Add(ctx context.Context, key string, stats domain.TerrainStats) error
}

// CacheKey rounds a centroid to 4 decimal places (about 11 m), latitude first.
func CacheKey(centroid orb.Point) string {
	return fmt.Sprintf("%.4f,%.4f", centroid.Lat(), centroid.Lon())
}

// MemoryCache is a process-lifetime Cache with no eviction.
type MemoryCache struct {
	entries sync.Map // string -> domain.TerrainStats
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(_ context.Context, key string) (domain.TerrainStats, bool, error) {
	v, ok := c.entries.Load(key)
	if !ok {
		return domain.TerrainStats{}, false, nil
	}
	return v.(domain.TerrainStats), true, nil
}

func (c *MemoryCache) Add(_ context.Context, key string, stats domain.TerrainStats) error {
	c.entries.LoadOrStore(key, stats)
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// TieredCache checks a fast local cache before a shared one, and copies
// shared hits into the local tier.
type TieredCache struct {
	local  Cache
	shared Cache
}

// NewTieredCache layers local in front of shared.
func NewTieredCache(local, shared Cache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

func (c *TieredCache) Get(ctx context.Context, key string) (domain.TerrainStats, bool, error) {
	if stats, ok, err := c.local.Get(ctx, key); err == nil && ok {
		return stats, true, nil
	}
	stats, ok, err := c.shared.Get(ctx, key)
	if err != nil || !ok {
		return domain.TerrainStats{}, false, err
	}
	_ = c.local.Add(ctx, key, stats)
	return stats, true, nil
}

func (c *TieredCache) Add(ctx context.Context, key string, stats domain.TerrainStats) error {
	_ = c.local.Add(ctx, key, stats)
	return c.shared.Add(ctx, key, stats)
}
