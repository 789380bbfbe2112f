package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "flood-risk:terrain:"

// TerrainCache is a shared terrain.Cache backed by Redis. Entries are written
// with SETNX and never expire.
type TerrainCache struct {
	client *goredis.Client
}

// Open connects to addr. It returns nil when addr is empty.
func Open(addr, password string, db int) *goredis.Client {
	if addr == "" {
		return nil
	}
	return goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
}

// NewTerrainCache wraps an existing client.
func NewTerrainCache(client *goredis.Client) *TerrainCache {
	return &TerrainCache{client: client}
}

func (c *TerrainCache) Get(ctx context.Context, key string) (domain.TerrainStats, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.TerrainStats{}, false, nil
	}
	if err != nil {
		return domain.TerrainStats{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var stats domain.TerrainStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.TerrainStats{}, false, fmt.Errorf("decode cached terrain %s: %w", key, err)
	}
	return stats, true, nil
}

func (c *TerrainCache) Add(ctx context.Context, key string, stats domain.TerrainStats) error {
	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode terrain %s: %w", key, err)
	}
	if err := c.client.SetNX(ctx, keyPrefix+key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return nil
}

// CheckReadiness pings the server.
func (c *TerrainCache) CheckReadiness(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
