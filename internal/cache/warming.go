package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/models"
)

// ForecastFetcher fetches a forecast for one location. Declared here so the
// warmer does not depend on the provider package.
type ForecastFetcher interface {
	Fetch(ctx context.Context, loc *geo.Location) (*models.Forecast, error)
}

// Warmer prefetches forecasts for every configured location so the first
// aggregation after startup is served from cache.
type Warmer struct {
	cache    *ForecastCache
	fetcher  ForecastFetcher
	endpoint string
	logger   *zap.Logger
}

// NewWarmer creates a Warmer populating cache under the given endpoint.
func NewWarmer(cache *ForecastCache, fetcher ForecastFetcher, endpoint string, logger *zap.Logger) *Warmer {
	return &Warmer{cache: cache, fetcher: fetcher, endpoint: endpoint, logger: logger}
}

// Warm fetches every location missing from the cache, sequentially in
// configuration order to match the aggregation loop. Returns an aggregated
// error if any location failed.
func (w *Warmer) Warm(ctx context.Context, regions []*geo.Region) error {
	start := time.Now()
	var errs []error
	warmed := 0
	for _, region := range regions {
		for _, loc := range region.Locations {
			if _, ok := w.cache.Get(loc, w.endpoint); ok {
				continue
			}
			fcst, err := w.fetcher.Fetch(ctx, loc)
			if err != nil {
				errs = append(errs, fmt.Errorf("warm %s: %w", loc.Name, err))
				continue
			}
			if fcst == nil {
				continue
			}
			w.cache.Set(loc, *fcst, w.endpoint)
			warmed++
		}
	}
	if w.logger != nil {
		w.logger.Info("cache warming complete",
			zap.String("endpoint", w.endpoint),
			zap.Int("warmed", warmed),
			zap.Int("errors", len(errs)),
			zap.Duration("duration", time.Since(start)))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done.
func (w *Warmer) WarmPeriodic(ctx context.Context, regions []*geo.Region, interval time.Duration) error {
	if err := w.Warm(ctx, regions); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, regions); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
