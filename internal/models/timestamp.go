package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp layouts accepted from upstream sources, tried in order.
// Health Auto Export uses "2006-01-02 15:04:05 -0700"; aggregated sleep rows
// carry a date-only "2006-01-02".
const (
	HAETimeLayout     = "2006-01-02 15:04:05 -0700"
	HAEDateOnlyLayout = "2006-01-02"
)

var timestampLayouts = []string{
	HAETimeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	HAEDateOnlyLayout,
}

// ParseTimestamp parses a timestamp string in any of the accepted layouts.
// Layouts without a zone are interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return epochToTime(n), nil
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// TimestampFromValue parses a decoded JSON value: a string in any accepted
// layout, or a number of Unix seconds (milliseconds when large enough).
func TimestampFromValue(v any) (time.Time, error) {
	switch x := v.(type) {
	case string:
		return ParseTimestamp(x)
	case float64:
		return epochToTime(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("cannot parse timestamp %q: %w", x.String(), err)
		}
		return epochToTime(f), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// epochToTime treats values above 1e11 as milliseconds.
func epochToTime(n float64) time.Time {
	if math.Abs(n) > 1e11 {
		ms := int64(n)
		return time.UnixMilli(ms).UTC()
	}
	sec := int64(n)
	nsec := int64((n - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
