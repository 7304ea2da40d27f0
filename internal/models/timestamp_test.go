package models

import (
	"encoding/json"
	"testing"
	"time"
)

// TestParseTimestampHAE verifies the Health Auto Export datetime format keeps
// its UTC offset. The offset drives night-key resolution for sleep.
func TestParseTimestampHAE(t *testing.T) {
	got, err := ParseTimestamp("2024-02-06 14:30:00 -0800")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 2, 6, 14, 30, 0, 0, time.FixedZone("", -8*3600))
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got.Hour() != 14 {
		t.Errorf("local hour = %d, want 14", got.Hour())
	}
}

// TestParseTimestampLayouts verifies the other accepted layouts.
func TestParseTimestampLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01T08:00:00Z", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-01-01T08:00:00.500Z", time.Date(2024, 1, 1, 8, 0, 0, 500_000_000, time.UTC)},
		{"2024-01-01 08:00:00", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-02-06", time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC)},
		{"1704096000", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestParseTimestampInvalid verifies that garbage is rejected rather than
// silently mapped to the zero time.
func TestParseTimestampInvalid(t *testing.T) {
	for _, in := range []string{"", "not-a-date", "2024-13-45"} {
		if _, err := ParseTimestamp(in); err == nil {
			t.Errorf("ParseTimestamp(%q): expected error", in)
		}
	}
}

// TestTimestampFromValue verifies numeric epochs in seconds and milliseconds.
func TestTimestampFromValue(t *testing.T) {
	want := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	got, err := TimestampFromValue(float64(1704096000))
	if err != nil || !got.Equal(want) {
		t.Errorf("seconds: got %v, %v; want %v", got, err, want)
	}
	got, err = TimestampFromValue(json.Number("1704096000000"))
	if err != nil || !got.Equal(want) {
		t.Errorf("millis: got %v, %v; want %v", got, err, want)
	}
	if _, err := TimestampFromValue(true); err == nil {
		t.Error("expected error for bool")
	}
}
