package intensity

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultCacheTTL    = 15 * time.Minute
	_cacheKeyPrefix    = "greenpipeline:intensity:"
	_cacheStatsHits    = "greenpipeline:intensity:stats:hits"
	_cacheStatsMisses  = "greenpipeline:intensity:stats:misses"
	_cacheStatsTimeout = time.Second
)

// Cache memoizes another Provider in Redis so that parallel CI jobs share
// one upstream lookup per zone per TTL. Redis is best-effort: when it is
// unreachable lookups go straight to the wrapped provider.
type Cache struct {
	client redis.Cmdable
	next   Provider
	ttl    time.Duration
	log    *slog.Logger
}

// NewCache wraps next. ttl <= 0 means DefaultCacheTTL.
func NewCache(client redis.Cmdable, next Provider, ttl time.Duration, log *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{client: client, next: next, ttl: ttl, log: log}
}

// NewRedisClient builds a client with conservative timeouts for a CLI.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxRetries:   1,
		PoolSize:     2,
	})
}

func cacheKey(zone string) string { return _cacheKeyPrefix + Normalize(zone) }

// Intensity implements Provider.
func (c *Cache) Intensity(ctx context.Context, zone string) (float64, error) {
	key := cacheKey(zone)

	v, err := c.client.Get(ctx, key).Float64()
	reachable := true
	switch {
	case err == nil && v > 0:
		c.count(ctx, _cacheStatsHits)
		return v, nil
	case err == nil, errors.Is(err, redis.Nil):
		c.count(ctx, _cacheStatsMisses)
	default:
		reachable = false
		c.log.Debug("intensity cache unavailable", "zone", zone, "err", err)
	}

	v, err = c.next.Intensity(ctx, zone)
	if err != nil {
		return 0, err
	}
	if !reachable {
		return v, nil
	}
	if err := c.client.Set(ctx, key, strconv.FormatFloat(v, 'g', -1, 64), c.ttl).Err(); err != nil {
		c.log.Debug("intensity cache store failed", "zone", zone, "err", err)
	}
	return v, nil
}

// Stats returns the cumulative hit and miss counters.
func (c *Cache) Stats(ctx context.Context) (hits, misses int64, err error) {
	pipe := c.client.Pipeline()
	h := pipe.Get(ctx, _cacheStatsHits)
	m := pipe.Get(ctx, _cacheStatsMisses)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	hits, _ = h.Int64()
	misses, _ = m.Int64()
	return hits, misses, nil
}

func (c *Cache) count(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, _cacheStatsTimeout)
	defer cancel()
	_ = c.client.Incr(ctx, key).Err()
}
