package cache

import (
	"testing"
	"time"
)

// TestKeyRoundTrip verifies keys parse back to the date they were built from.
func TestKeyRoundTrip(t *testing.T) {
	date := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	key := Key("readiness", 42, date)
	if key != "readiness:42:2024-03-09" {
		t.Fatalf("Key() = %q, want readiness:42:2024-03-09", key)
	}
	got, ok := parseKey("readiness", 42, key)
	if !ok || !got.Equal(date) {
		t.Errorf("parseKey(%q) = %v, %v, want %v, true", key, got, ok, date)
	}
}

// TestParseKeyRejectsForeignKeys verifies other users and malformed dates are
// never matched. User 4 must not match keys of user 42.
func TestParseKeyRejectsForeignKeys(t *testing.T) {
	tests := []string{
		"readiness:42:2024-03-09",
		"other:4:2024-03-09",
		"readiness:4:latest",
		"readiness:4:2024-03-09:extra",
	}
	for _, key := range tests {
		if _, ok := parseKey("readiness", 4, key); ok {
			t.Errorf("parseKey(%q) matched user 4, want no match", key)
		}
	}
}
