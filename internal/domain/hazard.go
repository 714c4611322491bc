package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// HazardModel maps a location to a hazard assessment. Implementations are
// pure with respect to their zone table and safe for concurrent use.
type HazardModel interface {
	Assess(lat, lon float64) Assessment
}

// Policy names a hazard scoring policy.
type Policy string

const (
	PolicyBox    Policy = "box"
	PolicyGraded Policy = "graded"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyBox, PolicyGraded:
		return p, nil
	default:
		return "", fmt.Errorf("unknown hazard policy %q (want %q or %q)", s, PolicyBox, PolicyGraded)
	}
}

// BoxModel implements binary containment: a point is inside a zone when both
// coordinate deltas are strictly smaller than the radius. The first zone in
// declared order that contains the point decides the assessment.
type BoxModel struct {
	zones ZoneTable
}

// NewBoxModel creates a containment model over zones.
func NewBoxModel(zones ZoneTable) *BoxModel {
	return &BoxModel{zones: zones}
}

func (m *BoxModel) Assess(lat, lon float64) Assessment {
	for _, z := range m.zones.zones {
		if math.Abs(lat-z.CenterLat) < z.Radius && math.Abs(lon-z.CenterLon) < z.Radius {
			return Assessment{Level: z.Level, Description: z.Description}
		}
	}
	return Assessment{}
}

// Graded scoring defaults, matching the AQI scale used by the original feed.
const (
	DefaultBaseline  = 50.0
	DefaultBaseScore = 200.0

	highSeverity     = 200.0
	moderateSeverity = 100.0
)

// Perturbation returns a value in [lo, hi). It adds sensor-like noise to the
// auxiliary indices of graded assessments.
type Perturbation func(lo, hi float64) float64

// UniformPerturbation draws from the process-wide math/rand/v2 source, which
// is safe for concurrent use.
func UniformPerturbation(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

// NoPerturbation always returns zero; useful for deterministic indices.
func NoPerturbation(_, _ float64) float64 { return 0 }

// GradedModel implements distance-graded scoring. Each zone whose center lies
// within radius contributes baseScore scaled linearly by proximity; the sum
// plus the baseline is the severity, which alone decides the level.
type GradedModel struct {
	zones     ZoneTable
	baseline  float64
	baseScore float64
	perturb   Perturbation
}

// NewGradedModel creates a graded model. A nil perturb disables noise.
func NewGradedModel(zones ZoneTable, baseline, baseScore float64, perturb Perturbation) *GradedModel {
	if perturb == nil {
		perturb = NoPerturbation
	}
	return &GradedModel{
		zones:     zones,
		baseline:  baseline,
		baseScore: baseScore,
		perturb:   perturb,
	}
}

func (m *GradedModel) Assess(lat, lon float64) Assessment {
	severity := m.Severity(lat, lon)
	level := severityLevel(severity)

	label := "Good"
	if level != LevelNone {
		label = string(level)
	}

	return Assessment{
		Level:       level,
		Description: "AQI is " + label,
		Indices: map[string]float64{
			"severity": round2(severity),
			"aqi":      math.Round(severity + m.perturb(-5, 15)),
			"co2":      round2(400 + severity*0.5 + m.perturb(-10, 10)),
			"no2":      round2(20 + severity*0.2 + m.perturb(-5, 5)),
		},
	}
}

// Severity returns the deterministic severity score for a location.
func (m *GradedModel) Severity(lat, lon float64) float64 {
	severity := m.baseline
	for _, z := range m.zones.zones {
		d := math.Hypot(lat-z.CenterLat, lon-z.CenterLon)
		if d < z.Radius {
			severity += m.baseScore * (z.Radius - d) / z.Radius
		}
	}
	return severity
}

// severityLevel applies the fixed AQI thresholds.
func severityLevel(severity float64) Level {
	switch {
	case severity > highSeverity:
		return LevelHigh
	case severity > moderateSeverity:
		return LevelModerate
	default:
		return LevelNone
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
