package aggregator

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/claude/healthsync/internal/ingest"
)

// Event types the aggregator delivers.
const (
	EventWorkouts      = "workouts"
	EventSleep         = "sleep"
	EventHeartRate     = "heartrate"
	EventWeight        = "weight"
	EventGlucose       = "glucose"
	EventBloodPressure = "blood_pressure"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Signature"

// Envelope is the event wrapper of every aggregator webhook.
type Envelope struct {
	EventType string `json:"event_type"`
	User      struct {
		ReferenceID string `json:"reference_id"`
		UserID      string `json:"user_id"`
	} `json:"user"`
	Data []json.RawMessage `json:"data"`
}

// ParseEnvelope decodes a webhook body.
func ParseEnvelope(body []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ingest.ErrMalformedPayload, err)
	}
	if env.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ingest.ErrMalformedPayload)
	}
	env.EventType = strings.ToLower(env.EventType)
	return &env, nil
}

// Sign returns the signature the aggregator sends for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature header value against body. An optional
// "sha256=" prefix is accepted.
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return false
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	return hmac.Equal(got, want)
}
