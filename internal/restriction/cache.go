package restriction

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "talentgate/pkg/domain"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talentgate_restriction_cache_hits_total",
		Help: "Restriction view reads served from cache",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talentgate_restriction_cache_misses_total",
		Help: "Restriction view reads that required recomputation",
	})
)

const viewKeyPrefix = "restriction:company:"

// Cache stores computed restriction views keyed by company. A cached view
// is a read optimization only; invalidation and TTL bound its staleness.
type Cache interface {
	Get(ctx context.Context, companyID id.CompanyID) (*View, bool, error)
	Set(ctx context.Context, view *View) error
	Invalidate(ctx context.Context, companyID id.CompanyID) error
}

// RedisCache is a Redis-backed view cache shared across instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisCacheOption configures a RedisCache instance.
type RedisCacheOption func(*RedisCache)

// WithTTL overrides the default cache entry lifetime.
func WithTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewRedisCache constructs a Redis-backed restriction view cache.
func NewRedisCache(client *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached view for the company, if present.
func (c *RedisCache) Get(ctx context.Context, companyID id.CompanyID) (*View, bool, error) {
	raw, err := c.client.Get(ctx, viewKeyPrefix+companyID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheMisses.Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var view View
	if err := json.Unmarshal(raw, &view); err != nil {
		// treat a corrupt entry as a miss and let the caller overwrite it
		cacheMisses.Inc()
		return nil, false, nil
	}
	cacheHits.Inc()
	return &view, true, nil
}

// Set caches the view with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, view *View) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, viewKeyPrefix+view.CompanyID.String(), raw, c.ttl).Err()
}

// Invalidate drops the cached view for the company.
func (c *RedisCache) Invalidate(ctx context.Context, companyID id.CompanyID) error {
	return c.client.Del(ctx, viewKeyPrefix+companyID.String()).Err()
}
