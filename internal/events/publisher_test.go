package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/claude/healthsync/internal/ingest"
)

// TestEncodeMessage verifies the key, headers and JSON body of an event.
func TestEncodeMessage(t *testing.T) {
	at := time.Date(2024, 1, 2, 8, 0, 0, 0, time.FixedZone("CET", 3600))
	res := &ingest.Result{BiomarkersCount: 4, SleepSessionsCount: 1, Skipped: ingest.Skipped{Nights: 1}}
	ev := NewIngestCompleted(17, "native-sync", res, at)

	msg, err := encodeMessage(ev)
	if err != nil {
		t.Fatalf("encodeMessage: %v", err)
	}
	if string(msg.Key) != "17" {
		t.Errorf("Key = %q, want 17", msg.Key)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != EventIngestCompleted {
		t.Errorf("Headers = %v, want event_type %s first", msg.Headers, EventIngestCompleted)
	}

	var got IngestCompleted
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got.Biomarkers != 4 || got.Skipped.Nights != 1 || got.Source != "native-sync" {
		t.Errorf("body = %+v, want 4 biomarkers, 1 skipped night, native-sync", got)
	}
	if got.OccurredAt.Location() != time.UTC || !got.OccurredAt.Equal(at) {
		t.Errorf("OccurredAt = %v, want %v in UTC", got.OccurredAt, at)
	}
}

// TestNoop verifies the no-op publisher accepts events.
func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.Publish(context.Background(), IngestCompleted{}); err != nil {
		t.Errorf("Publish() = %v, want nil", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
