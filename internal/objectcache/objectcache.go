// Package objectcache is the durable cache tier. It stores whole aggregated
// responses (not per-location entries) in an external object store, wrapped in
// an envelope carrying explicit expiry. Failures on this path degrade to a
// cache miss so the aggregation path can always proceed to a live fetch.
package objectcache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// ObjectStore is the minimal contract the durable tier requires of its
// backing store. Get reports (nil, false, nil) when the object does not
// exist. The ttl passed to Set is a storage-lifetime hint; correctness comes
// from the envelope expiry checked at read time.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping() error
	Close() error
}

// envelope wraps a cached payload with write and expiry timestamps in epoch
// millis.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt int64           `json:"expiresAt"`
	CachedAt  int64           `json:"cachedAt"`
}

// Cache reads and writes envelopes under an environment-namespaced key so
// dev/staging/prod aggregates never collide.
type Cache struct {
	store       ObjectStore
	environment string
	logger      *zap.Logger
	now         func() time.Time
}

// New creates a Cache over store, namespaced by deployment environment.
func New(store ObjectStore, environment string, logger *zap.Logger) *Cache {
	if environment == "" {
		environment = "dev"
	}
	return &Cache{store: store, environment: environment, logger: logger, now: time.Now}
}

// KeyPath returns the namespaced object key for a logical cache key. Kept
// exported for debugging and tests.
func (c *Cache) KeyPath(key string) string {
	return "weather-cache/" + c.environment + "/" + key + ".json"
}

// Get loads the cached payload for key into out. Returns false on absence,
// expiry, corruption, or any store error; errors are logged, never returned.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	raw, found, err := c.store.Get(ctx, c.KeyPath(key))
	if err != nil {
		c.log().Error("object cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		c.log().Debug("object cache miss", zap.String("key", key))
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log().Error("object cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	if c.now().UnixMilli() > env.ExpiresAt {
		c.log().Info("object cache entry expired", zap.String("key", key))
		return false
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		c.log().Error("object cache payload corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	c.log().Debug("object cache hit", zap.String("key", key))
	return true
}

// Set stores data under key with the given TTL in hours. Write failures are
// logged and swallowed; caching here is a best-effort optimization.
func (c *Cache) Set(ctx context.Context, key string, data any, ttlHours int) {
	raw, err := json.Marshal(data)
	if err != nil {
		c.log().Error("object cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}

	ttl := time.Duration(ttlHours) * time.Hour
	now := c.now().UnixMilli()
	env := envelope{
		Data:      raw,
		CachedAt:  now,
		ExpiresAt: now + ttl.Milliseconds(),
	}
	body, err := json.Marshal(env)
	if err != nil {
		c.log().Error("object cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.store.Set(ctx, c.KeyPath(key), body, ttl); err != nil {
		c.log().Error("object cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.log().Info("object cache set", zap.String("key", key), zap.Int("ttl_hours", ttlHours))
}

func (c *Cache) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	return zap.NewNop()
}
