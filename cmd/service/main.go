package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gadzooks/weather-api/internal/cache"
	"github.com/gadzooks/weather-api/internal/circuitbreaker"
	"github.com/gadzooks/weather-api/internal/config"
	"github.com/gadzooks/weather-api/internal/forecast"
	"github.com/gadzooks/weather-api/internal/geo"
	httpapi "github.com/gadzooks/weather-api/internal/http"
	"github.com/gadzooks/weather-api/internal/objectcache"
	"github.com/gadzooks/weather-api/internal/observability"
	"github.com/gadzooks/weather-api/internal/provider"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	regions, err := geo.LoadRegions(cfg.RegionConfigDir)
	if err != nil {
		logger.Fatal("region config", zap.Error(err))
	}
	logger.Info("regions loaded",
		zap.Int("regions", len(regions)),
		zap.Int("locations", len(geo.LocationNames(regions))))

	store := cache.NewStoreWithSweep(cfg.CacheTTL, cfg.CacheMaxKeys, cfg.CacheSweepInterval)
	defer store.Close()
	forecastCache := cache.NewForecastCache(store, cfg.CacheTTL, logger)

	var objectStore objectcache.ObjectStore
	switch cfg.ObjectCacheBackend {
	case "memcached":
		objectStore = objectcache.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		logger.Info("object cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "redis":
		objectStore = objectcache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		logger.Info("object cache backend: redis", zap.String("addr", cfg.RedisAddr))
	default:
		logger.Info("object cache disabled")
	}

	var objects *objectcache.Cache
	var objectPing func() error
	if objectStore != nil {
		objects = objectcache.New(objectStore, cfg.Environment, logger)
		objectPing = objectStore.Ping
		if err := objectStore.Ping(); err != nil {
			logger.Warn("object cache unreachable at startup", zap.Error(err))
		}
	}

	service := forecast.NewService(forecastCache, objects, cfg.ObjectCacheTTLHours, logger)

	mockFetcher := provider.NewMock(cfg.MockDataDir)

	var realFetcher forecast.Fetcher
	if cfg.VCAPIKey != "" {
		breaker := circuitbreaker.New(circuitbreaker.Config{
			MaxFailures:  cfg.BreakerMaxFailures,
			MinSuccesses: cfg.BreakerMinSuccesses,
			Cooldown:     cfg.BreakerCooldown,
			OnTransition: func(from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition("visual_crossing", from.String(), to.String(), float64(to))
			},
		})
		observability.CircuitBreakerState.WithLabelValues("visual_crossing").Set(0)

		vc, err := provider.NewVisualCrossing(provider.VisualCrossingConfig{
			APIKey:         cfg.VCAPIKey,
			BaseURL:        cfg.VCAPIURL,
			Timeout:        cfg.VCAPITimeout,
			RetryAttempts:  cfg.RetryAttempts,
			RetryBaseDelay: cfg.RetryBaseDelay,
			RetryMaxDelay:  cfg.RetryMaxDelay,
			Breaker:        breaker,
			Logger:         logger,
		})
		if err != nil {
			logger.Fatal("visual crossing client", zap.Error(err))
		}
		realFetcher = vc
	} else {
		logger.Warn("VC_API_KEY not set; real endpoints disabled")
	}

	if cfg.WarmingEnabled {
		endpoint := "real"
		var warmFetcher cache.ForecastFetcher = realFetcher
		if realFetcher == nil {
			endpoint = "mock"
			warmFetcher = mockFetcher
		}
		warmer := cache.NewWarmer(forecastCache, warmFetcher, endpoint, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := warmer.Warm(warmCtx, regions); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
		go func() {
			if err := warmer.WarmPeriodic(context.Background(), regions, cfg.WarmingInterval); err != nil && err != context.Canceled {
				logger.Error("periodic cache warming stopped", zap.Error(err))
			}
		}()
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	handler := httpapi.NewHandler(service, regions, mockFetcher, realFetcher, objectPing, logger)
	router := httpapi.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", ":"+cfg.ServerPort),
			zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if objectStore != nil {
		if err := objectStore.Close(); err != nil {
			logger.Error("object cache close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
