package models

// Forecast is the per-location payload returned by a forecast provider.
// Latitude/longitude echo the queried coordinates; Days is ordered starting
// at today.
type Forecast struct {
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	Description string          `json:"description"`
	Days        []DailyForecast `json:"days"`
	Alerts      []Alert         `json:"alerts,omitempty"`
}

// DailyForecast is a single day of a forecast. Datetime is ISO YYYY-MM-DD.
type DailyForecast struct {
	Datetime    string           `json:"datetime"`
	TempMax     float64          `json:"tempmax"`
	TempMin     float64          `json:"tempmin"`
	Precip      float64          `json:"precip"`
	PrecipProb  float64          `json:"precipprob"`
	PrecipCover float64          `json:"precipcover"`
	CloudCover  float64          `json:"cloudcover"`
	Sunrise     string           `json:"sunrise"`
	Sunset      string           `json:"sunset"`
	MoonPhase   float64          `json:"moonphase"`
	Conditions  string           `json:"conditions"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
	Source      string           `json:"source,omitempty"`
	Stations    []string         `json:"stations,omitempty"`
	PrecipType  []string         `json:"preciptype,omitempty"`
	Hours       []HourlyForecast `json:"hours,omitempty"`
}

// HourlyForecast is one hour within a DailyForecast. Datetime is HH:MM:SS.
type HourlyForecast struct {
	Datetime   string  `json:"datetime"`
	Temp       float64 `json:"temp"`
	FeelsLike  float64 `json:"feelslike"`
	Humidity   float64 `json:"humidity"`
	Precip     float64 `json:"precip"`
	PrecipProb float64 `json:"precipprob"`
	WindSpeed  float64 `json:"windspeed"`
	CloudCover float64 `json:"cloudcover"`
	Conditions string  `json:"conditions"`
	Icon       string  `json:"icon"`
}

// Alert is a weather advisory. ID is unique across the whole system; the same
// alert may be attached to the forecasts of several locations (e.g. a regional
// avalanche warning) and must be stored once.
type Alert struct {
	ID          string `json:"id"`
	Event       string `json:"event"`
	Headline    string `json:"headline,omitempty"`
	Description string `json:"description"`
	Onset       string `json:"onset"`
	Ends        string `json:"ends"`
	Link        string `json:"link"`
}
