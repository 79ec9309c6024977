package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gadzooks/weather-api/internal/observability"
)

// NewRouter wires the full route table with correlation, metrics and rate
// limit middleware. limiter may be nil to disable rate limiting; the request
// timeout applies to forecast routes only, so /health and /metrics always
// answer.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(limiter))

	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	geo := r.PathPrefix("/geo").Subrouter()
	geo.HandleFunc("", h.GetRegions).Methods(http.MethodGet)
	geo.HandleFunc("/{region}", h.GetRegion).Methods(http.MethodGet)

	fc := r.PathPrefix("/forecasts").Subrouter()
	if requestTimeout > 0 {
		fc.Use(TimeoutMiddleware(requestTimeout))
	}
	fc.HandleFunc("/mock", h.GetMockForecasts).Methods(http.MethodGet)
	fc.HandleFunc("/real", h.GetRealForecasts).Methods(http.MethodGet)
	fc.HandleFunc("/clear", h.PostClear).Methods(http.MethodPost)
	fc.HandleFunc("/hourly/mock", h.GetMockHourly).Methods(http.MethodGet)
	fc.HandleFunc("/hourly/real", h.GetRealHourly).Methods(http.MethodGet)
	fc.HandleFunc("/location/{location}/mock", h.GetMockLocation).Methods(http.MethodGet)
	fc.HandleFunc("/location/{location}/real", h.GetRealLocation).Methods(http.MethodGet)
	fc.HandleFunc("/cache/stats", h.GetCacheStats).Methods(http.MethodGet)

	return r
}
