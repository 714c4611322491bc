package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrInvalidPing marks a ping whose coordinates cannot be assessed.
	ErrInvalidPing = errors.New("invalid ping")
	// ErrInvalidZone marks a hazard zone rejected at configuration time.
	ErrInvalidZone = errors.New("invalid hazard zone")
	// ErrMalformedBody marks an ingestion payload that is not a JSON object or array.
	ErrMalformedBody = errors.New("malformed body")
)

// Level is the discrete hazard level of an assessment. The zero value is None.
type Level string

const (
	LevelNone     Level = ""
	LevelModerate Level = "Moderate"
	LevelHigh     Level = "High"
)

// ParseLevel maps a configured level name to a Level. Matching is
// case-insensitive; "none", "good" and the empty string mean no hazard.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "good":
		return LevelNone, nil
	case "moderate":
		return LevelModerate, nil
	case "high":
		return LevelHigh, nil
	default:
		return LevelNone, fmt.Errorf("unknown hazard level %q", s)
	}
}

// String returns the level name, "None" for the zero value.
func (l Level) String() string {
	if l == LevelNone {
		return "None"
	}
	return string(l)
}

// Ping is one inbound location observation for a user.
type Ping struct {
	UserID string  `json:"user_id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Validate rejects non-finite or out-of-range coordinates.
func (p Ping) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidPing)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: lat %g out of range [-90, 90]", ErrInvalidPing, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: lon %g out of range [-180, 180]", ErrInvalidPing, p.Lon)
	}
	return nil
}

// Assessment is the output of a HazardModel for one location.
type Assessment struct {
	Level       Level
	Description string
	Indices     map[string]float64
}

// Hazardous reports whether the assessment warrants an alert.
func (a Assessment) Hazardous() bool {
	return a.Level != LevelNone
}

// EnrichedPing is a ping annotated with its hazard assessment. It only lives
// for one pass through the pipeline.
type EnrichedPing struct {
	Ping
	Assessment
	AssessedAt time.Time
}

// RawEvent is an unprocessed message from the ping topic. Commit, when set,
// acknowledges the message to the broker.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
