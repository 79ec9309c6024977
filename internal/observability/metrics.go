package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream forecast provider call rate by endpoint. Watch for: error vs success ratio.
	ProviderCallsTotal *prometheus.CounterVec

	// Upstream provider latency. Watch for: p95 > 2s (upstream degradation).
	ProviderDuration *prometheus.HistogramVec

	// Retry attempts against the provider. High retries = unstable upstream.
	ProviderRetriesTotal prometheus.Counter

	// Cache hits by tier ("forecast" in-process, "object" durable).
	CacheHitsTotal *prometheus.CounterVec

	// Durable-tier aggregates rejected because their date range no longer starts today.
	StaleAggregatesTotal *prometheus.CounterVec

	// Full aggregation passes and their latency, by endpoint.
	AggregationsTotal         *prometheus.CounterVec
	AggregationDuration       *prometheus.HistogramVec
	AggregationLocationsTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state per component (0 closed, 1 open, 2 half-open).
	CircuitBreakerState       *prometheus.GaugeVec
	CircuitBreakerTransitions *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providerCallsTotal",
			Help: "Total number of forecast provider calls",
		},
		[]string{"endpoint", "status"},
	)
	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "providerDurationSeconds",
			Help:    "Forecast provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	ProviderRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "providerRetriesTotal",
			Help: "Total number of retry attempts for provider calls",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits by tier (forecast = in-process, object = durable)",
		},
		[]string{"tier"},
	)
	StaleAggregatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staleAggregatesTotal",
			Help: "Durable-tier aggregates discarded by the freshness check",
		},
		[]string{"endpoint"},
	)
	AggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregationsTotal",
			Help: "Full aggregation passes by endpoint and source (rebuild or object_cache)",
		},
		[]string{"endpoint", "source"},
	)
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregationDurationSeconds",
			Help:    "Wall-clock time of a full aggregation pass",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)
	AggregationLocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregationLocationsTotal",
			Help: "Per-location outcomes within aggregation passes",
		},
		[]string{"endpoint", "result"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"component"},
	)
	CircuitBreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		ProviderCallsTotal, ProviderDuration, ProviderRetriesTotal,
		CacheHitsTotal, StaleAggregatesTotal,
		AggregationsTotal, AggregationDuration, AggregationLocationsTotal,
		RateLimitDeniedTotal,
		CircuitBreakerState, CircuitBreakerTransitions,
	)
}

// RecordCircuitBreakerTransition updates breaker metrics on a state change.
func RecordCircuitBreakerTransition(component, from, to string, stateValue float64) {
	CircuitBreakerTransitions.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(stateValue)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
