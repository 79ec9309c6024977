package cache

import (
	"testing"
	"time"

	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/models"
)

var (
	seattle = &geo.Location{Name: "seattle", Region: "cities", Latitude: 47.606209, Longitude: -122.332071}
	tacoma  = &geo.Location{Name: "tacoma", Region: "cities", Latitude: 47.252876, Longitude: -122.44429}
)

func testForecast(desc string) models.Forecast {
	return models.Forecast{
		Latitude:    47.606209,
		Longitude:   -122.332071,
		Description: desc,
		Days: []models.DailyForecast{
			{Datetime: "2026-08-28", TempMax: 75, TempMin: 55, Conditions: "Clear"},
		},
	}
}

func newForecastCache(t *testing.T) *ForecastCache {
	t.Helper()
	return NewForecastCache(newTestStore(time.Hour, 0), time.Hour, nil)
}

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		loc      *geo.Location
		endpoint string
		want     string
	}{
		{"default endpoint", seattle, "", "forecast:default:seattle"},
		{"real endpoint", seattle, "real", "forecast:real:seattle"},
		{"mock endpoint", seattle, "mock", "forecast:mock:seattle"},
		{"name with space", &geo.Location{Name: "gold bar"}, "", "forecast:default:gold bar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.loc, tt.endpoint); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestForecastCache_GetSet(t *testing.T) {
	c := newForecastCache(t)

	fcst := testForecast("Seattle weather")
	c.Set(seattle, fcst, "real")

	got, ok := c.Get(seattle, "real")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.Description != "Seattle weather" {
		t.Errorf("Get().Description = %q, want %q", got.Description, "Seattle weather")
	}
	if len(got.Days) != 1 || got.Days[0].Datetime != "2026-08-28" {
		t.Errorf("Get().Days = %+v, want one day 2026-08-28", got.Days)
	}

	if _, ok := c.Get(tacoma, "real"); ok {
		t.Error("Get() ok = true for never-set location, want false")
	}
}

// TestForecastCache_EndpointIsolation verifies that two endpoints for the
// same location hold independent values.
func TestForecastCache_EndpointIsolation(t *testing.T) {
	c := newForecastCache(t)

	c.Set(seattle, testForecast("from real"), "real")
	c.Set(seattle, testForecast("from mock"), "mock")

	real, ok := c.Get(seattle, "real")
	if !ok || real.Description != "from real" {
		t.Errorf("Get(real) = (%q, %v), want (from real, true)", real.Description, ok)
	}
	mock, ok := c.Get(seattle, "mock")
	if !ok || mock.Description != "from mock" {
		t.Errorf("Get(mock) = (%q, %v), want (from mock, true)", mock.Description, ok)
	}
}

func TestForecastCache_Envelope(t *testing.T) {
	c := newForecastCache(t)

	before := time.Now().UnixMilli()
	c.Set(seattle, testForecast("x"), "real")
	after := time.Now().UnixMilli()

	env, ok := c.Envelope(seattle, "real")
	if !ok {
		t.Fatal("Envelope() ok = false, want true")
	}
	if env.CachedAt < before || env.CachedAt > after {
		t.Errorf("CachedAt = %d outside [%d, %d]", env.CachedAt, before, after)
	}
	wantExpiry := env.CachedAt + time.Hour.Milliseconds()
	if env.ExpiresAt != wantExpiry {
		t.Errorf("ExpiresAt = %d, want cachedAt+1h = %d", env.ExpiresAt, wantExpiry)
	}
}

func TestForecastCache_ClearLocation(t *testing.T) {
	c := newForecastCache(t)
	c.Set(seattle, testForecast("x"), "real")

	if n := c.ClearLocation(seattle, "real"); n != 1 {
		t.Errorf("ClearLocation() = %d, want 1", n)
	}
	if _, ok := c.Get(seattle, "real"); ok {
		t.Error("Get() ok = true after ClearLocation, want false")
	}
	if n := c.ClearLocation(seattle, "real"); n != 0 {
		t.Errorf("ClearLocation() second call = %d, want 0", n)
	}
}

// TestForecastCache_ClearByEndpoint populates two endpoints for two locations
// and verifies endpoint-scoped clearing removes exactly one endpoint's keys.
func TestForecastCache_ClearByEndpoint(t *testing.T) {
	c := newForecastCache(t)

	c.Set(seattle, testForecast("sr"), "real")
	c.Set(tacoma, testForecast("tr"), "real")
	c.Set(seattle, testForecast("sm"), "mock")
	c.Set(tacoma, testForecast("tm"), "mock")

	if n := c.ClearByEndpoint("real"); n != 2 {
		t.Errorf("ClearByEndpoint(real) = %d, want 2", n)
	}

	if _, ok := c.Get(seattle, "real"); ok {
		t.Error("real entry for seattle survived ClearByEndpoint")
	}
	if _, ok := c.Get(tacoma, "real"); ok {
		t.Error("real entry for tacoma survived ClearByEndpoint")
	}
	if _, ok := c.Get(seattle, "mock"); !ok {
		t.Error("mock entry for seattle lost by ClearByEndpoint(real)")
	}
	if _, ok := c.Get(tacoma, "mock"); !ok {
		t.Error("mock entry for tacoma lost by ClearByEndpoint(real)")
	}
}

func TestForecastCache_ClearAll(t *testing.T) {
	c := newForecastCache(t)
	c.Set(seattle, testForecast("x"), "real")
	c.Set(tacoma, testForecast("y"), "mock")

	stats := c.ClearAll()
	if stats.Keys != 2 {
		t.Errorf("ClearAll().Keys = %d, want 2", stats.Keys)
	}
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("ClearAll() counters = %d/%d, want zeroed", stats.Hits, stats.Misses)
	}
	if _, ok := c.Get(seattle, "real"); ok {
		t.Error("entry survived ClearAll")
	}
}

// TestForecastCache_EnvelopeExpiry verifies an entry whose envelope expiry
// has passed is treated as absent even if the store has not evicted it.
func TestForecastCache_EnvelopeExpiry(t *testing.T) {
	store := newTestStore(time.Hour, 0)
	c := NewForecastCache(store, 10*time.Millisecond, nil)

	c.Set(seattle, testForecast("x"), "real")
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get(seattle, "real"); ok {
		t.Error("Get() ok = true past envelope expiry, want false")
	}
}
