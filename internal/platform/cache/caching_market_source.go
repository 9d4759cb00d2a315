// Package cache provides caching implementations for market data sources.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/usecase"
)

// CachingMarketSource decorates a MarketDataSource with Redis caching.
// Entries never outlive the bar they were fetched in.
type CachingMarketSource struct {
	inner     usecase.MarketDataSource
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	now       func() time.Time
}

var _ usecase.MarketDataSource = (*CachingMarketSource)(nil)

// NewCachingMarketSource decorates a MarketDataSource with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "prices".
func NewCachingMarketSource(rdb *redis.Client, ttl time.Duration, inner usecase.MarketDataSource, namespace string) *CachingMarketSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "prices"
	}
	return &CachingMarketSource{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
	}
}

// FetchPrices returns a cached table when one exists for the same symbols, interval and window.
func (c *CachingMarketSource) FetchPrices(ctx context.Context, symbols []string, start, end time.Time, interval string) (entity.RawTable, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.FetchPrices(ctx, symbols, start, end, interval)
	}

	key := c.cacheKey(symbols, interval, end.Sub(start))

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var cached cachedTable
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached.toEntity(), nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the provider
	out, err := c.inner.FetchPrices(ctx, symbols, start, end, interval)
	if err != nil {
		return entity.RawTable{}, err
	}

	// 3) Store in cache (best effort)
	ttl := c.ttl
	if bar, err := entity.ParseInterval(interval); err == nil {
		ttl = clampTTL(c.ttl, c.now(), bar)
	}
	if b, err := json.Marshal(fromEntity(out)); err == nil {
		if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
			slog.Warn("cache set failed", "key", key, "error", err)
		}
	}

	return out, nil
}

// Invalidate drops every cached window for symbols, so the next fetch hits the provider.
func (c *CachingMarketSource) Invalidate(ctx context.Context, symbols []string) error {
	if c.rdb == nil {
		return nil
	}
	return c.deleteByPattern(ctx, c.cacheKeyPrefix(symbols)+"*")
}

// cacheKey generates a cache key for a specific query.
func (c *CachingMarketSource) cacheKey(symbols []string, interval string, window time.Duration) string {
	return fmt.Sprintf("%s%s:%d", c.cacheKeyPrefix(symbols), safe(interval), int64(window/time.Second))
}

// cacheKeyPrefix generates a prefix for invalidating related cache entries.
func (c *CachingMarketSource) cacheKeyPrefix(symbols []string) string {
	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = safe(s)
	}
	return fmt.Sprintf("%s:%s:", c.namespace, strings.Join(parts, ","))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingMarketSource) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}

// cachedTable is the JSON form of entity.RawTable. NaN is stored as null.
type cachedTable struct {
	Index   []time.Time    `json:"index"`
	Levels  int            `json:"levels"`
	Columns []cachedColumn `json:"columns"`
}

type cachedColumn struct {
	Labels []string   `json:"labels"`
	Values []*float64 `json:"values"`
}

func fromEntity(t entity.RawTable) cachedTable {
	out := cachedTable{Index: t.Index, Levels: t.Levels, Columns: make([]cachedColumn, len(t.Columns))}
	for i, col := range t.Columns {
		values := make([]*float64, len(col.Values))
		for j, v := range col.Values {
			if !math.IsNaN(v) {
				v := v
				values[j] = &v
			}
		}
		out.Columns[i] = cachedColumn{Labels: col.Labels, Values: values}
	}
	return out
}

func (c cachedTable) toEntity() entity.RawTable {
	out := entity.RawTable{Index: c.Index, Levels: c.Levels, Columns: make([]entity.RawColumn, len(c.Columns))}
	for i, col := range c.Columns {
		values := make([]float64, len(col.Values))
		for j, v := range col.Values {
			if v == nil {
				values[j] = math.NaN()
			} else {
				values[j] = *v
			}
		}
		out.Columns[i] = entity.RawColumn{Labels: col.Labels, Values: values}
	}
	return out
}
