package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lastmile-route-service/internal/platform/obs"
	"lastmile-route-service/internal/ports"
)

// RedisMatrixCache stores external matrix responses in Redis so repeated
// optimize and reroute calls over the same location list do not burn
// external API quota. Entries expire on a TTL; the cache is advisory and
// every failure is survivable by refetching.
type RedisMatrixCache struct {
	Client *redis.Client
}

func NewRedisMatrixCache(client *redis.Client) *RedisMatrixCache {
	return &RedisMatrixCache{Client: client}
}

type cachedMatrix struct {
	DistKm  [][]float64 `json:"dist_km"`
	TimeMin [][]float64 `json:"time_min"`
}

// Get fetches a cached matrix. A miss returns (nil, nil).
func (c *RedisMatrixCache) Get(ctx context.Context, key string) (_ *ports.Matrix, err error) {
	defer obs.Time(ctx, "matrix.cache.Get")(&err)

	if c.Client == nil {
		return nil, errors.New("matrix cache: client is nil")
	}

	raw, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get matrix cache: %w", err)
	}

	var cm cachedMatrix
	if err := json.Unmarshal(raw, &cm); err != nil {
		return nil, fmt.Errorf("get matrix cache: decode entry %q: %w", key, err)
	}

	// Cached entries always come from the external strategy.
	return &ports.Matrix{DistKm: cm.DistKm, TimeMin: cm.TimeMin}, nil
}

// Put stores a matrix under key with the given TTL.
func (c *RedisMatrixCache) Put(ctx context.Context, key string, m *ports.Matrix, ttl time.Duration) error {
	if c.Client == nil {
		return errors.New("matrix cache: client is nil")
	}
	if m == nil {
		return errors.New("put matrix cache: matrix is nil")
	}

	raw, err := json.Marshal(cachedMatrix{DistKm: m.DistKm, TimeMin: m.TimeMin})
	if err != nil {
		return fmt.Errorf("put matrix cache: encode entry: %w", err)
	}

	if err := c.Client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put matrix cache: %w", err)
	}

	return nil
}
