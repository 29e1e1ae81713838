package pagination

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cursor values are a field→value mapping serialized as JSON and then
// URL-safe base64 encoded, so a cursor can travel in a query parameter.
// The payload is opaque to clients; only this package reads it back.

// naiveTimeLayout accepts timestamps without zone information; by
// convention they are UTC.
const naiveTimeLayout = "2006-01-02T15:04:05.999999999"

// EncodeCursor serializes sort-key values into an opaque token.
// Timestamps are normalized to UTC RFC3339 before encoding so the
// instant survives the round-trip regardless of the source zone.
func EncodeCursor(values map[string]interface{}) (string, error) {
	normalized := make(map[string]interface{}, len(values))
	for k, v := range values {
		if t, ok := v.(time.Time); ok {
			normalized[k] = t.UTC().Format(time.RFC3339Nano)
			continue
		}
		normalized[k] = v
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses an opaque token back into sort-key values.
// Strings that parse as timestamps come back as UTC time.Time values
// (zoneless timestamps are assumed UTC); integer numbers come back as
// int64, other numbers as float64.
func DecodeCursor(cursor string) (map[string]interface{}, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var values map[string]interface{}
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}

	for k, v := range values {
		values[k] = reviveValue(v)
	}
	return values, nil
}

func reviveValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if t, ok := maybeParseTime(val); ok {
			return t
		}
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	}
	return v
}

// maybeParseTime mirrors the encode normalization: a string is treated
// as a timestamp only when it looks like one.
func maybeParseTime(s string) (time.Time, bool) {
	if !strings.Contains(s, "T") {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(naiveTimeLayout, s); err == nil {
		// No zone info: assumed UTC by convention.
		return t.UTC(), true
	}
	return time.Time{}, false
}
