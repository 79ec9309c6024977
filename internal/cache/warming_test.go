package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/models"
)

type fakeFetcher struct {
	calls []string
	fail  map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, loc *geo.Location) (*models.Forecast, error) {
	f.calls = append(f.calls, loc.Name)
	if f.fail[loc.Name] {
		return nil, errors.New("upstream down")
	}
	fcst := testForecast("forecast for " + loc.Name)
	return &fcst, nil
}

func warmerRegions() []*geo.Region {
	return []*geo.Region{
		{Name: "cities", Locations: []*geo.Location{seattle, tacoma}},
	}
}

func TestWarmer_PopulatesCache(t *testing.T) {
	c := NewForecastCache(newTestStore(time.Hour, 0), time.Hour, nil)
	fetcher := &fakeFetcher{}
	w := NewWarmer(c, fetcher, "real", nil)

	if err := w.Warm(context.Background(), warmerRegions()); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	for _, loc := range []*geo.Location{seattle, tacoma} {
		if _, ok := c.Get(loc, "real"); !ok {
			t.Errorf("cache miss for %s after warm", loc.Name)
		}
	}
}

func TestWarmer_SkipsCachedLocations(t *testing.T) {
	c := NewForecastCache(newTestStore(time.Hour, 0), time.Hour, nil)
	c.Set(seattle, testForecast("already cached"), "real")
	fetcher := &fakeFetcher{}
	w := NewWarmer(c, fetcher, "real", nil)

	if err := w.Warm(context.Background(), warmerRegions()); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	if len(fetcher.calls) != 1 || fetcher.calls[0] != "tacoma" {
		t.Errorf("fetcher calls = %v, want [tacoma]", fetcher.calls)
	}
}

func TestWarmer_PartialFailure(t *testing.T) {
	c := NewForecastCache(newTestStore(time.Hour, 0), time.Hour, nil)
	fetcher := &fakeFetcher{fail: map[string]bool{"seattle": true}}
	w := NewWarmer(c, fetcher, "real", nil)

	err := w.Warm(context.Background(), warmerRegions())
	if err == nil {
		t.Fatal("Warm() error = nil, want aggregated error")
	}

	// The failing location must not block the others.
	if _, ok := c.Get(tacoma, "real"); !ok {
		t.Error("tacoma not warmed despite seattle failure")
	}
	if _, ok := c.Get(seattle, "real"); ok {
		t.Error("failed location unexpectedly cached")
	}
}
