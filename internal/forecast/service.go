package forecast

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/gadzooks/weather-api/internal/cache"
	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/models"
	"github.com/gadzooks/weather-api/internal/objectcache"
	"github.com/gadzooks/weather-api/internal/observability"
)

// Fetcher fetches a forecast for one location. Returning (nil, nil) means the
// provider has no data for the location; both nil results and errors leave
// the location out of the aggregate. Implementations enforce their own
// timeouts.
type Fetcher interface {
	Fetch(ctx context.Context, loc *geo.Location) (*models.Forecast, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, loc *geo.Location) (*models.Forecast, error)

func (f FetcherFunc) Fetch(ctx context.Context, loc *geo.Location) (*models.Forecast, error) {
	return f(ctx, loc)
}

// Service aggregates per-location forecasts across regions, consulting the
// in-process forecast cache per location and the durable object tier per
// whole aggregate.
type Service struct {
	cache          *cache.ForecastCache
	objects        *objectcache.Cache // nil disables the durable tier
	objectTTLHours int
	logger         *zap.Logger
	now            func() time.Time
}

// NewService creates a Service. objects may be nil when no durable tier is
// configured; objectTTLHours bounds how long written aggregates live there.
func NewService(fc *cache.ForecastCache, objects *objectcache.Cache, objectTTLHours int, logger *zap.Logger) *Service {
	if objectTTLHours <= 0 {
		objectTTLHours = 6
	}
	return &Service{
		cache:          fc,
		objects:        objects,
		objectTTLHours: objectTTLHours,
		logger:         logger,
		now:            time.Now,
	}
}

// AllForecasts returns the aggregate for every configured location. The
// durable tier is consulted first; a present, fresh aggregate is returned
// as-is. Otherwise the aggregate is rebuilt and written back. The second
// return reports whether the durable tier served the response.
func (s *Service) AllForecasts(ctx context.Context, regions []*geo.Region, fetcher Fetcher, endpoint string) (*Response, bool) {
	key := "forecasts-" + endpoint

	if s.objects != nil {
		cached := NewResponse()
		if s.objects.Get(ctx, key, cached) {
			if IsCurrent(cached, s.now()) {
				observability.CacheHitsTotal.WithLabelValues("object").Inc()
				observability.AggregationsTotal.WithLabelValues(endpoint, "object_cache").Inc()
				return cached, true
			}
			observability.StaleAggregatesTotal.WithLabelValues(endpoint).Inc()
			s.log().Info("cached aggregate stale, rebuilding",
				zap.String("endpoint", endpoint),
				zap.Strings("dates", firstN(cached.Dates, 1)))
		}
	}

	resp := s.ForAllRegions(ctx, regions, fetcher, endpoint)
	observability.AggregationsTotal.WithLabelValues(endpoint, "rebuild").Inc()
	if s.objects != nil {
		s.objects.Set(ctx, key, resp, s.objectTTLHours)
	}
	return resp, false
}

// ForAllRegions aggregates forecasts for every location of every region,
// cache-aside per location. Locations are visited sequentially in
// configuration order; a failed or empty fetch skips that location and the
// rest of the batch continues. An aggregate where every location failed is a
// valid, empty response.
func (s *Service) ForAllRegions(ctx context.Context, regions []*geo.Region, fetcher Fetcher, endpoint string) *Response {
	start := time.Now()
	resp := NewResponse()

	var hits, misses, total int
	for _, region := range regions {
		for _, loc := range region.Locations {
			total++

			fcst, ok := s.cache.Get(loc, endpoint)
			if ok {
				hits++
				observability.CacheHitsTotal.WithLabelValues("forecast").Inc()
				observability.AggregationLocationsTotal.WithLabelValues(endpoint, "hit").Inc()
			} else {
				misses++
				result, err := fetcher.Fetch(ctx, loc)
				if err != nil {
					observability.AggregationLocationsTotal.WithLabelValues(endpoint, "error").Inc()
					s.log().Error("forecast fetch failed, skipping location",
						zap.String("location", loc.Name),
						zap.String("endpoint", endpoint),
						zap.Error(err))
					continue
				}
				if result == nil {
					observability.AggregationLocationsTotal.WithLabelValues(endpoint, "empty").Inc()
					s.log().Warn("provider returned no forecast",
						zap.String("location", loc.Name),
						zap.String("endpoint", endpoint))
					continue
				}
				s.cache.Set(loc, *result, endpoint)
				observability.AggregationLocationsTotal.WithLabelValues(endpoint, "miss").Inc()
				fcst = *result
			}

			resp.Merge(region, loc, fcst)
		}
	}

	duration := time.Since(start)
	observability.AggregationDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	s.log().Info("aggregation complete",
		zap.String("endpoint", endpoint),
		zap.Int("locations", total),
		zap.Int("cache_hits", hits),
		zap.Int("cache_misses", misses),
		zap.Float64("hit_rate_pct", hitRate(hits, total)),
		zap.Duration("duration", duration))

	return resp
}

// hitRate returns hits/total as a percentage rounded to two decimals.
func hitRate(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*10000) / 100
}

func firstN(ss []string, n int) []string {
	if len(ss) <= n {
		return ss
	}
	return ss[:n]
}

func (s *Service) log() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return zap.NewNop()
}

// CacheStats exposes the in-process tier's counters for the admin endpoints.
func (s *Service) CacheStats() cache.StoreStats {
	return s.cache.Stats()
}

// ClearCache flushes the whole in-process tier; the durable tier is untouched.
func (s *Service) ClearCache() cache.StoreStats {
	return s.cache.ClearAll()
}

// ClearCacheEndpoint removes in-process entries for one endpoint only.
func (s *Service) ClearCacheEndpoint(endpoint string) int {
	return s.cache.ClearByEndpoint(endpoint)
}
