package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Rejection records why one item of an ingestion payload was skipped.
type Rejection struct {
	Index int
	Err   error
}

// DecodeResult holds the valid pings of a payload in submission order and the
// items that were skipped.
type DecodeResult struct {
	Pings    []Ping
	Rejected []Rejection
}

// DecodePings parses an ingestion payload: a single JSON object or an array
// of objects. Invalid items are skipped and reported in Rejected; only a body
// that is not a JSON object or array returns an error (wrapping ErrMalformedBody).
func DecodePings(data []byte) (DecodeResult, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return DecodeResult{}, fmt.Errorf("%w: body must not be empty", ErrMalformedBody)
	}
	if !json.Valid(data) {
		return DecodeResult{}, fmt.Errorf("%w: body contains badly-formed JSON", ErrMalformedBody)
	}

	var items []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return DecodeResult{}, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}
	case '{':
		items = []json.RawMessage{data}
	default:
		return DecodeResult{}, fmt.Errorf("%w: body must be a JSON object or array", ErrMalformedBody)
	}

	res := DecodeResult{Pings: make([]Ping, 0, len(items))}
	for i, item := range items {
		p, err := decodePing(item)
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Index: i, Err: err})
			continue
		}
		res.Pings = append(res.Pings, p)
	}
	return res, nil
}

// decodePing reads one item. lat and lon must be present JSON numbers;
// user_id may be a string or any other scalar, which is kept as its JSON text.
func decodePing(item json.RawMessage) (Ping, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return Ping{}, fmt.Errorf("%w: item is not a JSON object", ErrInvalidPing)
	}

	lat, err := numberField(fields, "lat")
	if err != nil {
		return Ping{}, err
	}
	lon, err := numberField(fields, "lon")
	if err != nil {
		return Ping{}, err
	}

	p := Ping{UserID: userIDField(fields["user_id"]), Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return Ping{}, err
	}
	return p, nil
}

var errMissingField = errors.New("missing field")

func numberField(fields map[string]json.RawMessage, name string) (float64, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return 0, fmt.Errorf("%w: %w %q", ErrInvalidPing, errMissingField, name)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: field %q must be a number", ErrInvalidPing, name)
	}
	return v, nil
}

func userIDField(raw json.RawMessage) string {
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(raw)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
