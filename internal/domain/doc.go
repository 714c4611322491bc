// Package domain models geolocation pings and the air-quality hazard
// assessment attached to them.
//
// # Pings
//
// A ping is one location observation for a user:
//
//	{"user_id": "u1", "lat": 28.7041, "lon": 77.1025}
//
// Ingestion accepts a single object or an array of objects. Items without a
// numeric "lat" and "lon" are skipped individually; a body that is not a JSON
// object or array is rejected as a whole. Coordinates must be finite and in
// WGS-84 range (lat in [-90, 90], lon in [-180, 180]).
//
// # Hazard zones
//
// A zone is a (center, radius, level, description) tuple. Radius is expressed
// in degrees and compared directly against coordinate deltas, so zones are not
// true circles on the ground. Zone tables are validated once at startup and
// never change afterwards; a non-positive radius is a configuration error.
//
// # Scoring policies
//
// Two policies exist and a deployment picks exactly one:
//
//	box     A point is inside a zone when |lat-center_lat| < radius and
//	        |lon-center_lon| < radius (an axis-aligned box, strict on the
//	        boundary). Zones are checked in declared order and the first
//	        match wins. No match means no hazard.
//
//	graded  Severity starts at a baseline (AQI 50). Every zone whose center
//	        is within Euclidean distance d < radius adds
//	        base_score * (radius-d)/radius. Severity > 200 is High, > 100 is
//	        Moderate, anything else is Good (no hazard). Auxiliary indices
//	        (aqi, co2, no2) are derived from severity with a small random
//	        perturbation; the perturbation never affects the level.
//
// # Alerts
//
// Only assessments with a level other than None become alerts. The alert JSON
// carries the ping, the level and description, the assessment time, and the
// numeric indices flattened to top-level fields:
//
//	{"alert_id": "...", "user_id": "u1", "lat": 28.7041, "lon": 77.1025,
//	 "level": "High", "description": "Severe Air Quality in Delhi",
//	 "assessed_at": "2025-01-01T00:00:00Z"}
package domain
