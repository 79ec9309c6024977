package forecast

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/models"
)

func TestNewResponse_SerializesEmptyCollections(t *testing.T) {
	raw, err := json.Marshal(NewResponse())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "null") {
		t.Errorf("empty response serializes null collections: %s", raw)
	}
}

func TestMerge_IdempotentInserts(t *testing.T) {
	resp := NewResponse()
	region := &geo.Region{Name: "cities"}
	fcst := dayForecast("wx", "2026-08-28", models.Alert{ID: "A1", Event: "Wind Advisory"})

	resp.Merge(region, seattle, fcst)
	resp.Merge(region, seattle, fcst)

	if len(resp.Regions.AllIDs) != 1 {
		t.Errorf("regions.allIds = %v after duplicate merge, want one entry", resp.Regions.AllIDs)
	}
	if len(resp.Locations.AllIDs) != 1 {
		t.Errorf("locations.allIds = %v after duplicate merge, want one entry", resp.Locations.AllIDs)
	}
	if len(resp.AllAlertIDs) != 1 {
		t.Errorf("allAlertIds = %v after duplicate merge, want one entry", resp.AllAlertIDs)
	}
	if got := resp.Locations.ByID["seattle"].AlertIds; len(got) != 1 {
		t.Errorf("per-location alertIds = %v after duplicate merge, want one entry", got)
	}
}

func TestMerge_PreservesInsertionOrder(t *testing.T) {
	resp := NewResponse()
	cities := &geo.Region{Name: "cities"}
	mountains := &geo.Region{Name: "mountains"}

	resp.Merge(mountains, rainier, dayForecast("r", "2026-08-28"))
	resp.Merge(cities, seattle, dayForecast("s", "2026-08-28"))
	resp.Merge(cities, tacoma, dayForecast("t", "2026-08-28"))

	wantRegions := []string{"mountains", "cities"}
	for i, want := range wantRegions {
		if resp.Regions.AllIDs[i] != want {
			t.Errorf("regions.allIds = %v, want %v", resp.Regions.AllIDs, wantRegions)
			break
		}
	}
	wantLocs := []string{"rainier", "seattle", "tacoma"}
	for i, want := range wantLocs {
		if resp.Locations.AllIDs[i] != want {
			t.Errorf("locations.allIds = %v, want %v", resp.Locations.AllIDs, wantLocs)
			break
		}
	}
}

func TestMerge_DoesNotMutateInputLocation(t *testing.T) {
	resp := NewResponse()
	loc := &geo.Location{Name: "seattle", Region: "cities"}
	region := &geo.Region{Name: "cities"}

	resp.Merge(region, loc, dayForecast("wx", "2026-08-28", models.Alert{ID: "A1"}))

	if loc.AlertIds != nil {
		t.Errorf("input location mutated: alertIds = %v", loc.AlertIds)
	}
	if got := resp.Locations.ByID["seattle"].AlertIds; len(got) != 1 || got[0] != "A1" {
		t.Errorf("stored location alertIds = %v, want [A1]", got)
	}
}
