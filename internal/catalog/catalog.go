package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brandotp/numberdesk/internal/gateway"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	countriesKey = "catalog:countries"
	servicesKey  = "catalog:services:%d"
)

// Source is the slice of the API client the catalog reads from.
type Source interface {
	GetCountries(ctx context.Context) ([]gateway.Country, error)
	GetServices(ctx context.Context, countryID int) ([]gateway.Service, error)
}

// Catalog serves country and service lists, caching them in Redis with a
// TTL. Without a Redis client it degrades to direct fetch-through; cache
// failures are never surfaced to callers.
type Catalog struct {
	source Source
	cache  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func New(source Source, cache *redis.Client, ttl time.Duration, logger *logrus.Logger) *Catalog {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Catalog{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Catalog) Countries(ctx context.Context) ([]gateway.Country, error) {
	var countries []gateway.Country
	if c.getCached(ctx, countriesKey, &countries) {
		return countries, nil
	}

	countries, err := c.source.GetCountries(ctx)
	if err != nil {
		return nil, err
	}

	c.setCached(ctx, countriesKey, countries)
	return countries, nil
}

func (c *Catalog) Services(ctx context.Context, countryID int) ([]gateway.Service, error) {
	key := fmt.Sprintf(servicesKey, countryID)

	var services []gateway.Service
	if c.getCached(ctx, key, &services) {
		return services, nil
	}

	services, err := c.source.GetServices(ctx, countryID)
	if err != nil {
		return nil, err
	}

	c.setCached(ctx, key, services)
	return services, nil
}

func (c *Catalog) getCached(ctx context.Context, key string, dest interface{}) bool {
	if c.cache == nil {
		return false
	}

	data, err := c.cache.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.logger.Warnf("Catalog cache read failed for %s: %v", key, err)
		return false
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		c.logger.Warnf("Catalog cache entry %s is corrupt: %v", key, err)
		return false
	}
	return true
}

func (c *Catalog) setCached(ctx context.Context, key string, value interface{}) {
	if c.cache == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warnf("Failed to marshal catalog entry %s: %v", key, err)
		return
	}

	if err := c.cache.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warnf("Catalog cache write failed for %s: %v", key, err)
	}
}
