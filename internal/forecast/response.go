package forecast

import (
	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/models"
)

// Response is the normalized aggregate returned to callers: entities keyed by
// id with parallel insertion-ordered id lists, denormalized for lookup.
// Built fresh per aggregation run and treated as an immutable snapshot once
// returned (mutating it would corrupt coexisting cache-tier copies).
type Response struct {
	Dates       []string                `json:"dates"`
	Regions     RegionsByID             `json:"regions"`
	Locations   LocationsByID           `json:"locations"`
	Forecasts   ForecastsByID           `json:"forecasts"`
	AlertsByID  map[string]models.Alert `json:"alertsById"`
	AllAlertIDs []string                `json:"allAlertIds"`
}

type RegionsByID struct {
	ByID   map[string]*geo.Region `json:"byId"`
	AllIDs []string               `json:"allIds"`
}

type LocationsByID struct {
	ByID   map[string]*geo.Location `json:"byId"`
	AllIDs []string                 `json:"allIds"`
}

type ForecastsByID struct {
	ByID map[string][]models.DailyForecast `json:"byId"`
}

// NewResponse returns an empty aggregate with all maps and lists initialized
// so it serializes as {}/[] rather than null.
func NewResponse() *Response {
	return &Response{
		Dates:       []string{},
		Regions:     RegionsByID{ByID: map[string]*geo.Region{}, AllIDs: []string{}},
		Locations:   LocationsByID{ByID: map[string]*geo.Location{}, AllIDs: []string{}},
		Forecasts:   ForecastsByID{ByID: map[string][]models.DailyForecast{}},
		AlertsByID:  map[string]models.Alert{},
		AllAlertIDs: []string{},
	}
}

// Merge folds one location's forecast into the aggregate. All inserts are
// idempotent: re-merging an id never duplicates it in an allIds list, and the
// first-seen entry wins.
func (r *Response) Merge(region *geo.Region, loc *geo.Location, fcst models.Forecast) {
	r.insertRegion(region)
	stored := r.insertLocation(loc)
	r.Forecasts.ByID[loc.Name] = fcst.Days
	r.SetDatesFrom(fcst)
	r.insertAlerts(stored, fcst)
}

func (r *Response) insertRegion(region *geo.Region) {
	if _, ok := r.Regions.ByID[region.Name]; !ok {
		cp := *region
		r.Regions.ByID[region.Name] = &cp
	}
	r.Regions.AllIDs = appendUnique(r.Regions.AllIDs, region.Name)
}

// insertLocation stores a copy of loc (first occurrence wins) and returns the
// stored copy, which owns the aggregate's per-location alert ids.
func (r *Response) insertLocation(loc *geo.Location) *geo.Location {
	stored, ok := r.Locations.ByID[loc.Name]
	if !ok {
		cp := *loc
		cp.AlertIds = nil
		stored = &cp
		r.Locations.ByID[loc.Name] = stored
	}
	r.Locations.AllIDs = appendUnique(r.Locations.AllIDs, loc.Name)
	return stored
}

// SetDatesFrom populates the aggregate's date range from the first
// successfully merged forecast; later forecasts never overwrite it, even if
// their ranges differ. Isolated here so the policy (first-wins vs union or
// intersection of all ranges) can be revisited in one place.
func (r *Response) SetDatesFrom(fcst models.Forecast) {
	if len(r.Dates) > 0 {
		return
	}
	for _, day := range fcst.Days {
		r.Dates = append(r.Dates, day.Datetime)
	}
}

func (r *Response) insertAlerts(stored *geo.Location, fcst models.Forecast) {
	for _, alert := range fcst.Alerts {
		// Alert content is assumed identical across locations sharing an id,
		// so overwrite is safe.
		r.AlertsByID[alert.ID] = alert
		stored.AlertIds = appendUnique(stored.AlertIds, alert.ID)
		r.AllAlertIDs = appendUnique(r.AllAlertIDs, alert.ID)
	}
}

// appendUnique appends id unless already present, preserving first-seen order.
func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
