// Package http exposes the forecast service over REST: aggregate forecasts
// per endpoint, hourly and single-location lookups, cache administration,
// region listing, health and metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gadzooks/weather-api/internal/forecast"
	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/observability"
	"github.com/gadzooks/weather-api/internal/validation"
)

// forecastCacheControl is sent on successful forecast responses so CDN and
// browser caches absorb repeat traffic between refreshes.
const forecastCacheControl = "public, max-age=3600, s-maxage=3600"

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	service     *forecast.Service
	regions     []*geo.Region
	mockFetcher forecast.Fetcher
	realFetcher forecast.Fetcher // nil when no API key is configured
	objectPing  func() error     // nil when the durable tier is disabled
	logger      *zap.Logger
	startTime   time.Time
}

// NewHandler returns a new Handler. realFetcher may be nil; the real
// endpoints then answer 503.
func NewHandler(
	service *forecast.Service,
	regions []*geo.Region,
	mockFetcher, realFetcher forecast.Fetcher,
	objectPing func() error,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		service:     service,
		regions:     regions,
		mockFetcher: mockFetcher,
		realFetcher: realFetcher,
		objectPing:  objectPing,
		logger:      logger,
		startTime:   time.Now(),
	}
}

// GetMockForecasts handles GET /forecasts/mock.
func (h *Handler) GetMockForecasts(w http.ResponseWriter, r *http.Request) {
	h.getForecasts(w, r, h.mockFetcher, "mock")
}

// GetRealForecasts handles GET /forecasts/real.
func (h *Handler) GetRealForecasts(w http.ResponseWriter, r *http.Request) {
	h.getForecasts(w, r, h.realFetcher, "real")
}

func (h *Handler) getForecasts(w http.ResponseWriter, r *http.Request, fetcher forecast.Fetcher, endpoint string) {
	if fetcher == nil {
		writeError(w, r, http.StatusServiceUnavailable, "PROVIDER_UNCONFIGURED", "no API key configured for the real provider")
		return
	}

	result, _ := h.service.AllForecasts(r.Context(), h.regions, fetcher, endpoint)

	w.Header().Set("Cache-Control", forecastCacheControl)
	w.Header().Set("Vary", "Accept-Encoding")
	writeJSON(w, http.StatusOK, map[string]any{"data": result})
}

// PostClear handles POST /forecasts/clear. An optional JSON body
// {"endpoint": "real"} scopes the clear to that endpoint's keys; without a
// body every cached forecast is dropped.
func (h *Handler) PostClear(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Endpoint string `json:"endpoint"`
	}
	if r.Body != nil {
		// A missing or empty body means clear everything.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	var keysCleared int
	var message string
	if body.Endpoint != "" {
		keysCleared = h.service.ClearCacheEndpoint(body.Endpoint)
		message = "Cache cleared successfully for endpoint: " + body.Endpoint
	} else {
		stats := h.service.ClearCache()
		keysCleared = stats.Keys
		message = "All caches cleared successfully"
	}

	endpoint := body.Endpoint
	if endpoint == "" {
		endpoint = "all"
	}
	requestLogger(r).Info("cache cleared",
		zap.String("endpoint", endpoint),
		zap.Int("keys_cleared", keysCleared))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"stats": map[string]any{
			"keysCleared": keysCleared,
			"endpoint":    endpoint,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// GetMockHourly handles GET /forecasts/hourly/mock.
func (h *Handler) GetMockHourly(w http.ResponseWriter, r *http.Request) {
	h.getHourly(w, r, h.mockFetcher, "hourly-mock")
}

// GetRealHourly handles GET /forecasts/hourly/real.
func (h *Handler) GetRealHourly(w http.ResponseWriter, r *http.Request) {
	h.getHourly(w, r, h.realFetcher, "hourly-real")
}

func (h *Handler) getHourly(w http.ResponseWriter, r *http.Request, fetcher forecast.Fetcher, endpoint string) {
	if fetcher == nil {
		writeError(w, r, http.StatusServiceUnavailable, "PROVIDER_UNCONFIGURED", "no API key configured for the real provider")
		return
	}

	locationName, err := validation.ValidateLocation(r.URL.Query().Get("location"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}

	loc, _, ok := geo.FindLocation(h.regions, locationName)
	if !ok {
		h.writeLocationNotFound(w, r, locationName)
		return
	}

	startDate := r.URL.Query().Get("startDate")
	endDate := r.URL.Query().Get("endDate")
	if err := validation.ValidateDateRange(startDate, endDate); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}

	result, err := h.service.HourlyForLocation(r.Context(), loc, fetcher, endpoint, forecast.HourlyOptions{
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", forecastCacheControl)
	w.Header().Set("Vary", "Accept-Encoding")
	writeJSON(w, http.StatusOK, map[string]any{"data": result})
}

// GetMockLocation handles GET /forecasts/location/{location}/mock.
func (h *Handler) GetMockLocation(w http.ResponseWriter, r *http.Request) {
	h.getLocation(w, r, h.mockFetcher, "mock")
}

// GetRealLocation handles GET /forecasts/location/{location}/real.
func (h *Handler) GetRealLocation(w http.ResponseWriter, r *http.Request) {
	h.getLocation(w, r, h.realFetcher, "real")
}

func (h *Handler) getLocation(w http.ResponseWriter, r *http.Request, fetcher forecast.Fetcher, endpoint string) {
	if fetcher == nil {
		writeError(w, r, http.StatusServiceUnavailable, "PROVIDER_UNCONFIGURED", "no API key configured for the real provider")
		return
	}

	locationName, err := validation.ValidateLocation(mux.Vars(r)["location"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}

	loc, region, ok := geo.FindLocation(h.regions, locationName)
	if !ok {
		h.writeLocationNotFound(w, r, locationName)
		return
	}

	result, err := h.service.ForLocation(r.Context(), loc, region, fetcher, endpoint)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", forecastCacheControl)
	w.Header().Set("Vary", "Accept-Encoding")
	writeJSON(w, http.StatusOK, map[string]any{"data": result})
}

// GetCacheStats handles GET /forecasts/cache/stats.
func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CacheStats())
}

// GetRegions handles GET /geo: the full region configuration.
func (h *Handler) GetRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.regions)
}

// GetRegion handles GET /geo/{region}.
func (h *Handler) GetRegion(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["region"]
	for _, region := range h.regions {
		if region.Name == name {
			writeJSON(w, http.StatusOK, region)
			return
		}
	}
	writeError(w, r, http.StatusNotFound, "REGION_NOT_FOUND", "region '"+name+"' does not exist in configuration")
}

// GetHealth handles GET /health. The service is healthy when the in-process
// cache answers and the durable tier (if enabled) is reachable; a missing
// real-provider key is reported but does not fail the check, since mock
// endpoints still work.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]any)
	status := "healthy"
	statusCode := http.StatusOK

	stats := h.service.CacheStats()
	checks["cache"] = map[string]any{
		"status":  "UP",
		"keys":    stats.Keys,
		"hits":    stats.Hits,
		"misses":  stats.Misses,
		"hitRate": stats.HitRate,
	}

	if h.objectPing != nil {
		if err := h.objectPing(); err != nil {
			checks["objectCache"] = map[string]any{"status": "DOWN", "error": err.Error()}
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["objectCache"] = map[string]any{"status": "UP"}
		}
	}

	if h.realFetcher == nil {
		checks["provider"] = map[string]any{"status": "DOWN", "error": "VC_API_KEY not configured"}
	} else {
		checks["provider"] = map[string]any{"status": "UP"}
	}

	writeJSON(w, statusCode, map[string]any{
		"status":    status,
		"service":   "weather-api",
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeLocationNotFound(w http.ResponseWriter, r *http.Request, name string) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":              "Location not found",
		"message":            "Location '" + name + "' does not exist in configuration",
		"availableLocations": geo.LocationNames(h.regions),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusServiceUnavailable
	code := "UPSTREAM_UNAVAILABLE"
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
		code = "UPSTREAM_TIMEOUT"
	}
	writeError(w, r, status, code, "Unable to fetch forecast data")
	requestLogger(r).Debug("upstream error", zap.Error(err))
}
