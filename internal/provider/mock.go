package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gadzooks/weather-api/internal/geo"
	"github.com/gadzooks/weather-api/internal/models"
)

// Mock serves canned forecasts from JSON files on disk, one per location,
// named vc-<name>.json with whitespace stripped from the location name.
// Backs the mock endpoints so development and tests never hit the live API.
type Mock struct {
	dataDir string
}

func NewMock(dataDir string) *Mock {
	return &Mock{dataDir: dataDir}
}

func (m *Mock) Fetch(ctx context.Context, loc *geo.Location) (*models.Forecast, error) {
	raw, err := os.ReadFile(m.forecastPath(loc))
	if err != nil {
		return nil, fmt.Errorf("read mock forecast for %s: %w", loc.Name, err)
	}

	var fcst models.Forecast
	if err := json.Unmarshal(raw, &fcst); err != nil {
		return nil, fmt.Errorf("parse mock forecast for %s: %w", loc.Name, err)
	}
	return &fcst, nil
}

func (m *Mock) forecastPath(loc *geo.Location) string {
	name := strings.Join(strings.Fields(loc.Name), "")
	return filepath.Join(m.dataDir, "vc-"+name+".json")
}
