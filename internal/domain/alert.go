package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Alert is an enriched ping whose level warrants notifying the sink. It is
// owned by a single dispatch call and discarded once the send completes.
type Alert struct {
	AlertID     string
	UserID      string
	Lat         float64
	Lon         float64
	Level       Level
	Description string
	Indices     map[string]float64
	AssessedAt  time.Time
}

// NewAlert shapes an enriched ping for transmission. It returns false when the
// assessment carries no hazard.
func NewAlert(e EnrichedPing) (Alert, bool) {
	if !e.Hazardous() {
		return Alert{}, false
	}
	return Alert{
		AlertID:     generateAlertID(e),
		UserID:      e.UserID,
		Lat:         e.Lat,
		Lon:         e.Lon,
		Level:       e.Level,
		Description: e.Description,
		Indices:     e.Indices,
		AssessedAt:  e.AssessedAt,
	}, true
}

// generateAlertID derives a deterministic ID from the alert's key fields so a
// sink can drop replays of the same assessment.
func generateAlertID(e EnrichedPing) string {
	input := fmt.Sprintf("%s|%.6f|%.6f|%s|%d", e.UserID, e.Lat, e.Lon, e.Level, e.AssessedAt.UnixNano())
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:12])
}

// reserved alert fields; indices with these names are not flattened.
var alertFields = map[string]struct{}{
	"alert_id": {}, "user_id": {}, "lat": {}, "lon": {},
	"level": {}, "description": {}, "assessed_at": {},
}

// MarshalJSON writes the sink payload with indices flattened next to the
// fixed fields.
func (a Alert) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(alertFields)+len(a.Indices))
	for k, v := range a.Indices {
		if _, reserved := alertFields[k]; reserved {
			continue
		}
		out[k] = v
	}
	out["alert_id"] = a.AlertID
	out["user_id"] = a.UserID
	out["lat"] = a.Lat
	out["lon"] = a.Lon
	out["level"] = string(a.Level)
	out["description"] = a.Description
	if !a.AssessedAt.IsZero() {
		out["assessed_at"] = a.AssessedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON: every numeric field that is
// not a fixed alert field becomes an index.
func (a *Alert) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode alert: %w", err)
	}

	var (
		out   Alert
		level string
		at    string
	)
	targets := map[string]any{
		"alert_id":    &out.AlertID,
		"user_id":     &out.UserID,
		"lat":         &out.Lat,
		"lon":         &out.Lon,
		"level":       &level,
		"description": &out.Description,
		"assessed_at": &at,
	}
	for k, raw := range fields {
		if dst, ok := targets[k]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("decode alert field %q: %w", k, err)
			}
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if out.Indices == nil {
			out.Indices = make(map[string]float64)
		}
		out.Indices[k] = v
	}

	out.Level = Level(level)
	if at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return fmt.Errorf("decode alert field %q: %w", "assessed_at", err)
		}
		out.AssessedAt = t
	}
	*a = out
	return nil
}
