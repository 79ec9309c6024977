package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Location is a forecast point inside a region. Loaded once from
// locations.yml and immutable afterwards except for AlertIds, which the
// aggregation layer fills in on its own copies.
type Location struct {
	Name        string   `yaml:"-" json:"name"`
	Region      string   `yaml:"region" json:"region"`
	Description string   `yaml:"description" json:"description"`
	Latitude    float64  `yaml:"latitude" json:"latitude"`
	Longitude   float64  `yaml:"longitude" json:"longitude"`
	SubRegion   string   `yaml:"sub_region" json:"sub_region,omitempty"`
	AlertIds    []string `yaml:"-" json:"alertIds,omitempty"`
}

// Region groups locations. SearchKey is an opaque identifier used by the
// trip-report site and is carried through untouched.
type Region struct {
	Name        string      `yaml:"-" json:"name"`
	Description string      `yaml:"description" json:"description"`
	SearchKey   string      `yaml:"search_key" json:"search_key,omitempty"`
	Locations   []*Location `yaml:"-" json:"locations"`
}

const (
	regionFileName   = "regions.yml"
	locationFileName = "locations.yml"
)

// LoadRegions reads regions.yml and locations.yml from dir and returns the
// regions in file order, each with its locations in file order. Aggregation
// iterates this slice, so document order is preserved deliberately instead of
// decoding into a Go map.
func LoadRegions(dir string) ([]*Region, error) {
	regions, byName, err := loadRegionFile(filepath.Join(dir, regionFileName))
	if err != nil {
		return nil, err
	}
	if err := loadLocationFile(filepath.Join(dir, locationFileName), byName); err != nil {
		return nil, err
	}
	return regions, nil
}

func loadRegionFile(path string) ([]*Region, map[string]*Region, error) {
	pairs, err := orderedMapping(path)
	if err != nil {
		return nil, nil, err
	}

	regions := make([]*Region, 0, len(pairs))
	byName := make(map[string]*Region, len(pairs))
	for _, p := range pairs {
		region := &Region{Name: p.key}
		if err := p.value.Decode(region); err != nil {
			return nil, nil, fmt.Errorf("parse region %q: %w", p.key, err)
		}
		regions = append(regions, region)
		byName[p.key] = region
	}
	return regions, byName, nil
}

func loadLocationFile(path string, byName map[string]*Region) error {
	pairs, err := orderedMapping(path)
	if err != nil {
		return err
	}

	for _, p := range pairs {
		loc := &Location{Name: p.key}
		if err := p.value.Decode(loc); err != nil {
			return fmt.Errorf("parse location %q: %w", p.key, err)
		}
		region, ok := byName[loc.Region]
		if !ok {
			return fmt.Errorf("location %q references unknown region %q", p.key, loc.Region)
		}
		region.Locations = append(region.Locations, loc)
	}
	return nil
}

type mappingPair struct {
	key   string
	value *yaml.Node
}

// orderedMapping parses a YAML file whose document is a single mapping and
// returns its entries in document order.
func orderedMapping(path string) ([]mappingPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: expected a mapping at top level", filepath.Base(path))
	}

	pairs := make([]mappingPair, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		pairs = append(pairs, mappingPair{key: root.Content[i].Value, value: root.Content[i+1]})
	}
	return pairs, nil
}

// FindLocation returns the named location and its owning region.
func FindLocation(regions []*Region, name string) (*Location, *Region, bool) {
	for _, region := range regions {
		for _, loc := range region.Locations {
			if loc.Name == name {
				return loc, region, true
			}
		}
	}
	return nil, nil, false
}

// LocationNames returns every configured location name, sorted. Used for
// error responses listing valid locations.
func LocationNames(regions []*Region) []string {
	var names []string
	for _, region := range regions {
		for _, loc := range region.Locations {
			names = append(names, loc.Name)
		}
	}
	sort.Strings(names)
	return names
}
