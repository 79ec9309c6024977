// Package provider implements forecast fetchers: the Visual Crossing
// timeline API for live data and a file-backed mock for development.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/gadzooks/weather-api/internal/circuitbreaker"
	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/models"
	"github.com/gadzooks/weather-api/internal/observability"
)

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
)

// DefaultBaseURL is the Visual Crossing timeline endpoint.
const DefaultBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

// timeline query shared by every request: observations, forecast, detailed
// alerts, and hourly breakdowns.
const includeParams = "obs,fcst,alerts,hours"

// VisualCrossing fetches forecasts from the Visual Crossing timeline API,
// with bounded retries and an optional circuit breaker.
type VisualCrossing struct {
	apiKey         string
	baseURL        string
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.Breaker
	logger         *zap.Logger
}

type VisualCrossingConfig struct {
	APIKey  string
	BaseURL string
	// Timeout bounds a single attempt, not the whole retry loop.
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	Breaker        *circuitbreaker.Breaker
	Logger         *zap.Logger
}

func NewVisualCrossing(cfg VisualCrossingConfig) (*VisualCrossing, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 100 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &VisualCrossing{
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		client:         &http.Client{Timeout: cfg.Timeout},
		retryAttempts:  cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryBaseDelay,
		retryMaxDelay:  cfg.RetryMaxDelay,
		breaker:        cfg.Breaker,
		logger:         cfg.Logger,
	}, nil
}

// Fetch retrieves the forecast for a location, retrying transient failures
// with exponential backoff and jitter.
func (vc *VisualCrossing) Fetch(ctx context.Context, loc *geo.Location) (*models.Forecast, error) {
	var result *models.Forecast

	call := func(ctx context.Context) error {
		var lastErr error
		for attempt := 0; attempt < vc.retryAttempts; attempt++ {
			if attempt > 0 {
				observability.ProviderRetriesTotal.Inc()
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(vc.backoff(attempt)):
				}
			}

			fcst, err := vc.callAPI(ctx, loc)
			if err == nil {
				result = fcst
				return nil
			}
			lastErr = err
			if !isRetryable(err) {
				return err
			}
			vc.logger.Warn("provider call failed, retrying",
				zap.String("location", loc.Name),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		}
		return fmt.Errorf("exhausted retries: %w", lastErr)
	}

	var err error
	if vc.breaker != nil {
		err = vc.breaker.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (vc *VisualCrossing) callAPI(ctx context.Context, loc *geo.Location) (*models.Forecast, error) {
	start := time.Now()

	req, err := vc.buildRequest(ctx, loc)
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues("real", "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := vc.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.ProviderCallsTotal.WithLabelValues("real", "error").Inc()
		observability.ProviderDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.ProviderCallsTotal.WithLabelValues("real", status).Inc()
	observability.ProviderDuration.WithLabelValues(status).Observe(duration)

	if err := responseError(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var fcst models.Forecast
	if err := json.Unmarshal(body, &fcst); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &fcst, nil
}

func (vc *VisualCrossing) buildRequest(ctx context.Context, loc *geo.Location) (*http.Request, error) {
	base, err := url.Parse(vc.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	base.Path += fmt.Sprintf("/%v,%v", loc.Latitude, loc.Longitude)

	params := url.Values{}
	params.Set("key", vc.apiKey)
	params.Set("include", includeParams)
	params.Set("alertLevel", "detail")
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (vc *VisualCrossing) backoff(attempt int) time.Duration {
	delay := float64(vc.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(vc.retryMaxDelay) {
		delay = float64(vc.retryMaxDelay)
	}
	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func responseError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, resp.StatusCode)
	case http.StatusNotFound:
		return ErrLocationNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
