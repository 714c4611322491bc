package domain

import (
	"fmt"
	"math"
	"slices"
)

// HazardZone is a configured region with an associated hazard level.
type HazardZone struct {
	CenterLat   float64
	CenterLon   float64
	Radius      float64
	Level       Level
	Description string
}

// ZoneTable is an ordered, validated set of hazard zones. It is built once at
// startup and is safe to share between goroutines because nothing mutates it.
type ZoneTable struct {
	zones []HazardZone
}

// NewZoneTable validates zones and returns them as a table in declared order.
// A non-positive or non-finite radius and out-of-range centers are rejected.
func NewZoneTable(zones ...HazardZone) (ZoneTable, error) {
	for i, z := range zones {
		if err := validateZone(z); err != nil {
			return ZoneTable{}, fmt.Errorf("zone %d (%q): %w", i, z.Description, err)
		}
	}
	return ZoneTable{zones: slices.Clone(zones)}, nil
}

// MustZoneTable is NewZoneTable for compiled-in tables; it panics on error.
func MustZoneTable(zones ...HazardZone) ZoneTable {
	t, err := NewZoneTable(zones...)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultZones returns the compiled-in zone table.
func DefaultZones() ZoneTable {
	return MustZoneTable(HazardZone{
		CenterLat:   28.7041,
		CenterLon:   77.1025,
		Radius:      0.5,
		Level:       LevelHigh,
		Description: "Severe Air Quality in Delhi",
	})
}

// Zones returns a copy of the zones in declared order.
func (t ZoneTable) Zones() []HazardZone {
	return slices.Clone(t.zones)
}

// Len returns the number of zones.
func (t ZoneTable) Len() int {
	return len(t.zones)
}

func validateZone(z HazardZone) error {
	if math.IsNaN(z.Radius) || math.IsInf(z.Radius, 0) || z.Radius <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %g", ErrInvalidZone, z.Radius)
	}
	if math.IsNaN(z.CenterLat) || z.CenterLat < -90 || z.CenterLat > 90 {
		return fmt.Errorf("%w: center lat %g out of range", ErrInvalidZone, z.CenterLat)
	}
	if math.IsNaN(z.CenterLon) || z.CenterLon < -180 || z.CenterLon > 180 {
		return fmt.Errorf("%w: center lon %g out of range", ErrInvalidZone, z.CenterLon)
	}
	return nil
}
