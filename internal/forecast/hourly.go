package forecast

import (
	"context"
	"fmt"

	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/models"
)

// HourlyOptions narrows an hourly response to an inclusive ISO date range.
// Empty bounds are open.
type HourlyOptions struct {
	StartDate string
	EndDate   string
}

// HourlyResponse is the hourly forecast for a single location.
type HourlyResponse struct {
	Location       *geo.Location          `json:"location"`
	Days           []models.DailyForecast `json:"days"`
	Alerts         []models.Alert         `json:"alerts"`
	TotalHours     int                    `json:"totalHours"`
	RequestedDates []string               `json:"requestedDates,omitempty"`
}

// LocationResponse is the daily forecast for a single location, with cache
// metadata so clients can show data age.
type LocationResponse struct {
	Location *geo.Location          `json:"location"`
	Forecast []models.DailyForecast `json:"forecast"`
	Alerts   []models.Alert         `json:"alerts"`
	Region   *geo.Region            `json:"region"`
	Metadata LocationMetadata       `json:"metadata"`
}

type LocationMetadata struct {
	Cached    bool   `json:"cached"`
	Endpoint  string `json:"endpoint"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

// HourlyForLocation returns the hourly forecast for one location,
// cache-aside under the given endpoint. Unlike aggregation, a failed fetch
// here is an error: there is no partial result to fall back on.
func (s *Service) HourlyForLocation(ctx context.Context, loc *geo.Location, fetcher Fetcher, endpoint string, opts HourlyOptions) (*HourlyResponse, error) {
	fcst, err := s.locationForecast(ctx, loc, fetcher, endpoint)
	if err != nil {
		return nil, err
	}

	days := fcst.Days
	var requestedDates []string
	if opts.StartDate != "" || opts.EndDate != "" {
		days = filterByDateRange(days, opts.StartDate, opts.EndDate)
		requestedDates = make([]string, 0, len(days))
		for _, day := range days {
			requestedDates = append(requestedDates, day.Datetime)
		}
	}

	totalHours := 0
	for _, day := range days {
		totalHours += len(day.Hours)
	}

	return &HourlyResponse{
		Location:       loc,
		Days:           days,
		Alerts:         nonNilAlerts(fcst.Alerts),
		TotalHours:     totalHours,
		RequestedDates: requestedDates,
	}, nil
}

// ForLocation returns the daily forecast for one location with cache
// metadata.
func (s *Service) ForLocation(ctx context.Context, loc *geo.Location, region *geo.Region, fetcher Fetcher, endpoint string) (*LocationResponse, error) {
	meta := LocationMetadata{Endpoint: endpoint}

	// Single envelope lookup: it carries both the forecast and the expiry
	// metadata, and a second store read would skew hit/miss stats.
	var fcst models.Forecast
	if env, ok := s.cache.Envelope(loc, endpoint); ok {
		meta.Cached = true
		meta.ExpiresAt = env.ExpiresAt
		fcst = env.Forecast
	} else {
		result, err := fetcher.Fetch(ctx, loc)
		if err != nil {
			return nil, fmt.Errorf("fetch forecast for %s: %w", loc.Name, err)
		}
		if result == nil {
			return nil, fmt.Errorf("no forecast available for %s", loc.Name)
		}
		stored := s.cache.Set(loc, *result, endpoint)
		meta.ExpiresAt = stored.ExpiresAt
		fcst = *result
	}

	return &LocationResponse{
		Location: loc,
		Forecast: fcst.Days,
		Alerts:   nonNilAlerts(fcst.Alerts),
		Region:   region,
		Metadata: meta,
	}, nil
}

// locationForecast is the shared cache-aside lookup for single-location
// requests.
func (s *Service) locationForecast(ctx context.Context, loc *geo.Location, fetcher Fetcher, endpoint string) (models.Forecast, error) {
	if fcst, ok := s.cache.Get(loc, endpoint); ok {
		return fcst, nil
	}
	result, err := fetcher.Fetch(ctx, loc)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("fetch forecast for %s: %w", loc.Name, err)
	}
	if result == nil {
		return models.Forecast{}, fmt.Errorf("no forecast available for %s", loc.Name)
	}
	s.cache.Set(loc, *result, endpoint)
	return *result, nil
}

// filterByDateRange keeps days within [startDate, endDate]; ISO date strings
// compare lexicographically.
func filterByDateRange(days []models.DailyForecast, startDate, endDate string) []models.DailyForecast {
	filtered := make([]models.DailyForecast, 0, len(days))
	for _, day := range days {
		if startDate != "" && day.Datetime < startDate {
			continue
		}
		if endDate != "" && day.Datetime > endDate {
			continue
		}
		filtered = append(filtered, day)
	}
	return filtered
}

func nonNilAlerts(alerts []models.Alert) []models.Alert {
	if alerts == nil {
		return []models.Alert{}
	}
	return alerts
}
