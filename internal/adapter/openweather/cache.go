package openweather

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/city-risk-service/internal/domain"
	"github.com/couchcryptid/city-risk-service/internal/observability"
)

// Provider returns a live reading for a city.
type Provider interface {
	Current(ctx context.Context, city string) (domain.WeatherReading, error)
}

// cacheEntries bounds the number of cities held at once.
const cacheEntries = 64

// CachedProvider wraps a Provider with a per-city TTL cache. Concurrent misses
// for the same city share one upstream call.
type CachedProvider struct {
	inner   Provider
	cache   *expirable.LRU[string, domain.WeatherReading]
	flight  singleflight.Group
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner Provider, ttl time.Duration, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   expirable.NewLRU[string, domain.WeatherReading](cacheEntries, nil, ttl),
		metrics: metrics,
	}
}

func (c *CachedProvider) Current(ctx context.Context, city string) (domain.WeatherReading, error) {
	if reading, ok := c.cache.Get(city); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return reading, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	v, err, _ := c.flight.Do(city, func() (any, error) {
		reading, err := c.inner.Current(ctx, city)
		if err != nil {
			return domain.WeatherReading{}, err
		}
		// Only successful readings are cached so outages are retried.
		c.cache.Add(city, reading)
		return reading, nil
	})
	if err != nil {
		return domain.WeatherReading{}, err
	}
	return v.(domain.WeatherReading), nil
}
