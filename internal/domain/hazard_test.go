package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	delhiLat = 28.7041
	delhiLon = 77.1025
)

func delhiZone() HazardZone {
	return HazardZone{
		CenterLat:   delhiLat,
		CenterLon:   delhiLon,
		Radius:      0.5,
		Level:       LevelHigh,
		Description: "Severe Air Quality in Delhi",
	}
}

func TestBoxModel_Containment(t *testing.T) {
	model := NewBoxModel(MustZoneTable(delhiZone()))

	tests := []struct {
		name     string
		lat, lon float64
		want     Level
	}{
		{"center", delhiLat, delhiLon, LevelHigh},
		{"inside near corner", delhiLat + 0.49, delhiLon - 0.49, LevelHigh},
		{"just outside lat", delhiLat + 0.51, delhiLon, LevelNone},
		{"just outside lon", delhiLat, delhiLon - 0.51, LevelNone},
		{"box corner outside circle still inside", delhiLat + 0.45, delhiLon + 0.45, LevelHigh},
		{"far away", 0, 0, LevelNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := model.Assess(tc.lat, tc.lon)
			assert.Equal(t, tc.want, got.Level)
			if tc.want == LevelNone {
				assert.Empty(t, got.Description)
			} else {
				assert.Equal(t, "Severe Air Quality in Delhi", got.Description)
			}
			assert.Nil(t, got.Indices)
		})
	}
}

func TestBoxModel_StrictBoundary(t *testing.T) {
	zone := HazardZone{CenterLat: 10, CenterLon: 20, Radius: 2, Level: LevelModerate, Description: "edge"}
	model := NewBoxModel(MustZoneTable(zone))

	assert.False(t, model.Assess(zone.CenterLat+zone.Radius, zone.CenterLon).Hazardous())
	assert.False(t, model.Assess(zone.CenterLat-zone.Radius, zone.CenterLon).Hazardous())
	assert.True(t, model.Assess(math.Nextafter(zone.CenterLat+zone.Radius, 0), zone.CenterLon).Hazardous())
}

func TestBoxModel_FirstMatchWins(t *testing.T) {
	wide := HazardZone{CenterLat: 0, CenterLon: 0, Radius: 10, Level: LevelModerate, Description: "wide"}
	tight := HazardZone{CenterLat: 1, CenterLon: 1, Radius: 0.5, Level: LevelHigh, Description: "tight"}

	// The point sits on the tight zone's center but the wide zone is declared first.
	got := NewBoxModel(MustZoneTable(wide, tight)).Assess(1, 1)
	assert.Equal(t, LevelModerate, got.Level)
	assert.Equal(t, "wide", got.Description)

	got = NewBoxModel(MustZoneTable(tight, wide)).Assess(1, 1)
	assert.Equal(t, LevelHigh, got.Level)
	assert.Equal(t, "tight", got.Description)
}

func TestBoxModel_NoZones(t *testing.T) {
	model := NewBoxModel(MustZoneTable())
	for _, p := range [][2]float64{{0, 0}, {delhiLat, delhiLon}, {-90, 180}} {
		assert.Equal(t, LevelNone, model.Assess(p[0], p[1]).Level)
	}
}

func TestBoxModel_Idempotent(t *testing.T) {
	model := NewBoxModel(DefaultZones())
	first := model.Assess(delhiLat+0.1, delhiLon)
	second := model.Assess(delhiLat+0.1, delhiLon)
	assert.Equal(t, first, second)
}

func TestGradedModel_Levels(t *testing.T) {
	model := NewGradedModel(MustZoneTable(delhiZone()), DefaultBaseline, DefaultBaseScore, nil)

	tests := []struct {
		name     string
		lat, lon float64
		severity float64
		level    Level
		desc     string
	}{
		{"center", delhiLat, delhiLon, 250, LevelHigh, "AQI is High"},
		{"halfway", delhiLat + 0.25, delhiLon, 150, LevelModerate, "AQI is Moderate"},
		{"outer rim", delhiLat + 0.45, delhiLon, 70, LevelNone, "AQI is Good"},
		{"outside", 0, 0, 50, LevelNone, "AQI is Good"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := model.Assess(tc.lat, tc.lon)
			assert.InDelta(t, tc.severity, model.Severity(tc.lat, tc.lon), 1e-6)
			assert.Equal(t, tc.level, got.Level)
			assert.Equal(t, tc.desc, got.Description)
			assert.InDelta(t, tc.severity, got.Indices["severity"], 0.01)
		})
	}
}

func TestGradedModel_AccumulatesOverlappingZones(t *testing.T) {
	a := HazardZone{CenterLat: 0, CenterLon: 0, Radius: 1, Level: LevelHigh, Description: "a"}
	b := HazardZone{CenterLat: 0, CenterLon: 0.5, Radius: 1, Level: LevelHigh, Description: "b"}
	model := NewGradedModel(MustZoneTable(a, b), DefaultBaseline, DefaultBaseScore, nil)

	// 50 + 200*1 + 200*0.5
	assert.InDelta(t, 350, model.Severity(0, 0), 1e-9)
	assert.Equal(t, LevelHigh, model.Assess(0, 0).Level)
}

func TestGradedModel_NoZonesIsFlatBaseline(t *testing.T) {
	model := NewGradedModel(MustZoneTable(), DefaultBaseline, DefaultBaseScore, nil)
	assert.InDelta(t, DefaultBaseline, model.Severity(delhiLat, delhiLon), 1e-9)
	assert.Equal(t, LevelNone, model.Assess(delhiLat, delhiLon).Level)
}

func TestGradedModel_DerivedIndicesDeterministicWithoutNoise(t *testing.T) {
	model := NewGradedModel(MustZoneTable(delhiZone()), DefaultBaseline, DefaultBaseScore, NoPerturbation)
	got := model.Assess(delhiLat, delhiLon)

	assert.Equal(t, 250.0, got.Indices["aqi"])
	assert.Equal(t, 525.0, got.Indices["co2"])
	assert.Equal(t, 70.0, got.Indices["no2"])
}

func TestGradedModel_NoiseNeverChangesLevel(t *testing.T) {
	model := NewGradedModel(MustZoneTable(delhiZone()), DefaultBaseline, DefaultBaseScore, UniformPerturbation)

	// Severities close to the 200 and 100 thresholds, where noise on the
	// score itself would flip the level.
	points := [][2]float64{
		{delhiLat, delhiLon},
		{delhiLat + 0.125, delhiLon},
		{delhiLat + 0.25, delhiLon},
		{delhiLat + 0.375, delhiLon},
	}
	for _, p := range points {
		want := model.Assess(p[0], p[1])
		for range 200 {
			got := model.Assess(p[0], p[1])
			require.Equal(t, want.Level, got.Level)
			require.Equal(t, want.Description, got.Description)

			sev := got.Indices["severity"]
			assert.GreaterOrEqual(t, got.Indices["aqi"], math.Round(sev-5))
			assert.LessOrEqual(t, got.Indices["aqi"], math.Round(sev+15))
			assert.InDelta(t, 400+sev*0.5, got.Indices["co2"], 10.01)
			assert.InDelta(t, 20+sev*0.2, got.Indices["no2"], 5.01)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("box")
	require.NoError(t, err)
	assert.Equal(t, PolicyBox, p)

	p, err = ParsePolicy("graded")
	require.NoError(t, err)
	assert.Equal(t, PolicyGraded, p)

	_, err = ParsePolicy("circle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circle")
}
