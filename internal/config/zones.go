package config

import (
	"fmt"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/spf13/viper"
)

type zoneEntry struct {
	Lat         *float64 `mapstructure:"lat"`
	Lon         *float64 `mapstructure:"lon"`
	Radius      *float64 `mapstructure:"radius"`
	Level       string   `mapstructure:"level"`
	Description string   `mapstructure:"description"`
}

// missingKey names the first coordinate key absent from the entry. A zero
// value is valid for lat and lon, so absence is checked separately.
func (e zoneEntry) missingKey() string {
	switch {
	case e.Lat == nil:
		return "lat"
	case e.Lon == nil:
		return "lon"
	case e.Radius == nil:
		return "radius"
	}
	return ""
}

type zonesFile struct {
	Zones []zoneEntry `mapstructure:"zones"`
}

// LoadZones reads a hazard zone table from a YAML or JSON file. The format is
// taken from the file extension.
func LoadZones(path string) (domain.ZoneTable, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return domain.ZoneTable{}, fmt.Errorf("read zones file: %w", err)
	}

	var file zonesFile
	if err := v.Unmarshal(&file); err != nil {
		return domain.ZoneTable{}, fmt.Errorf("decode zones file: %w", err)
	}

	zones := make([]domain.HazardZone, 0, len(file.Zones))
	for i, e := range file.Zones {
		if missing := e.missingKey(); missing != "" {
			return domain.ZoneTable{}, fmt.Errorf("zone %d (%q): %w: missing %s", i, e.Description, domain.ErrInvalidZone, missing)
		}
		level, err := domain.ParseLevel(e.Level)
		if err != nil {
			return domain.ZoneTable{}, fmt.Errorf("zone %d (%q): %w: %w", i, e.Description, domain.ErrInvalidZone, err)
		}
		zones = append(zones, domain.HazardZone{
			CenterLat:   *e.Lat,
			CenterLon:   *e.Lon,
			Radius:      *e.Radius,
			Level:       level,
			Description: e.Description,
		})
	}
	return domain.NewZoneTable(zones...)
}
