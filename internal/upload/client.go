package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claude/healthsync/internal/ingest"
)

// Client sends export files to a healthsync server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the healthsync server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// permanentError marks responses that retrying cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Send POSTs a raw export body to the ingest endpoint. It retries up to 3
// times with exponential backoff on transport errors and 5xx responses.
func (c *Client) Send(ctx context.Context, body []byte) (*ingest.Result, error) {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << uint(attempt-1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		res, err := c.post(ctx, body)
		if err == nil {
			return res, nil
		}
		if _, ok := err.(permanentError); ok {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) (*ingest.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/ingest/", bytes.NewReader(body))
	if err != nil {
		return nil, permanentError{fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("ingest failed (status %d): %s", resp.StatusCode, data)
	default:
		return nil, permanentError{fmt.Errorf("ingest rejected (status %d): %s", resp.StatusCode, data)}
	}

	var res ingest.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, permanentError{fmt.Errorf("decoding ingest result: %w", err)}
	}
	return &res, nil
}
