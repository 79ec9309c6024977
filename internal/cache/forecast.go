package cache

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/models"
)

// DefaultEndpoint namespaces cache keys when the caller does not name a data
// source.
const DefaultEndpoint = "default"

// CachedForecast wraps a forecast with write and expiry timestamps (epoch
// millis). A consumer must never observe a payload past ExpiresAt.
type CachedForecast struct {
	Forecast  models.Forecast `json:"forecast"`
	CachedAt  int64           `json:"cachedAt"`
	ExpiresAt int64           `json:"expiresAt"`
}

// ForecastCache stores per-location forecasts in a Store, keyed by
// (endpoint, location) so that data sources sharing the same location space
// never cross-contaminate.
type ForecastCache struct {
	store  *Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewForecastCache wraps store. ttl sets the envelope expiry stamped on each
// entry (the store's own TTL governs eviction).
func NewForecastCache(store *Store, ttl time.Duration, logger *zap.Logger) *ForecastCache {
	return &ForecastCache{store: store, ttl: ttl, logger: logger}
}

// Key derives the cache key for a location and endpoint. The
// forecast:{endpoint}:{name} format is load-bearing: distinct endpoints for
// the same location must never collide and must be independently clearable.
func Key(loc *geo.Location, endpoint string) string {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return fmt.Sprintf("forecast:%s:%s", endpoint, loc.Name)
}

// Get returns the cached forecast for (location, endpoint), unwrapping the
// envelope. Absent or expired entries report false.
func (c *ForecastCache) Get(loc *geo.Location, endpoint string) (models.Forecast, bool) {
	cached, ok := c.Envelope(loc, endpoint)
	if !ok {
		return models.Forecast{}, false
	}
	return cached.Forecast, true
}

// Envelope returns the raw cache envelope for (location, endpoint). Used
// where the caller needs cachedAt/expiresAt metadata.
func (c *ForecastCache) Envelope(loc *geo.Location, endpoint string) (CachedForecast, bool) {
	v, ok := c.store.Get(Key(loc, endpoint))
	if !ok {
		return CachedForecast{}, false
	}
	cached, ok := v.(CachedForecast)
	if !ok {
		return CachedForecast{}, false
	}
	if time.Now().UnixMilli() > cached.ExpiresAt {
		return CachedForecast{}, false
	}
	return cached, true
}

// Set stores forecast for (location, endpoint) with cachedAt=now and
// expiresAt=now+TTL, returning the stored envelope so callers can report
// expiry without a second lookup.
func (c *ForecastCache) Set(loc *geo.Location, forecast models.Forecast, endpoint string) CachedForecast {
	now := time.Now().UnixMilli()
	cached := CachedForecast{
		Forecast:  forecast,
		CachedAt:  now,
		ExpiresAt: now + c.ttl.Milliseconds(),
	}
	if !c.store.Set(Key(loc, endpoint), cached) && c.logger != nil {
		c.logger.Warn("forecast cache full, entry dropped",
			zap.String("location", loc.Name),
			zap.String("endpoint", endpoint))
	}
	return cached
}

// ClearLocation removes the entry for (location, endpoint) and returns the
// number of keys removed.
func (c *ForecastCache) ClearLocation(loc *geo.Location, endpoint string) int {
	return c.store.Del(Key(loc, endpoint))
}

// ClearByEndpoint removes every entry whose endpoint segment matches,
// leaving other endpoints untouched. Returns the number of keys removed.
func (c *ForecastCache) ClearByEndpoint(endpoint string) int {
	prefix := "forecast:" + endpoint + ":"
	removed := 0
	for _, key := range c.store.Keys() {
		if strings.HasPrefix(key, prefix) {
			removed += c.store.Del(key)
		}
	}
	return removed
}

// ClearAll flushes the underlying store and returns zeroed stats with the
// removed key count.
func (c *ForecastCache) ClearAll() StoreStats {
	removed := c.store.Clear()
	return StoreStats{Keys: removed}
}

// Stats reports the underlying store's counters.
func (c *ForecastCache) Stats() StoreStats {
	return c.store.Stats()
}
