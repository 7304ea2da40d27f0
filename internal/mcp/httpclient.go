package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/storage"
)

// HTTPClient implements DataSource by calling the healthsync REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// get fetches path and decodes the JSON response into out.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

// The remote server scopes every query to the caller's identity, so the
// userID arguments below are ignored.

func (c *HTTPClient) QueryBiomarkers(ctx context.Context, _ int, types []models.BiomarkerType, start, end time.Time) ([]models.BiomarkerPoint, error) {
	params := timeParams(start, end)
	for _, t := range types {
		params.Add("type", string(t))
	}
	var points []models.BiomarkerPoint
	if err := c.get(ctx, "/api/v1/biomarkers", params, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *HTTPClient) QuerySleepSessions(ctx context.Context, _ int, start, end time.Time) ([]models.SleepSession, error) {
	var sessions []models.SleepSession
	if err := c.get(ctx, "/api/v1/sleep", timeParams(start, end), &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *HTTPClient) GetSleepSummary(ctx context.Context, _ int, start, end time.Time, bucket string) ([]storage.SleepSummaryPeriod, error) {
	params := timeParams(start, end)
	params.Set("bucket", bucket)
	var periods []storage.SleepSummaryPeriod
	if err := c.get(ctx, "/api/v1/sleep/summary", params, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

func (c *HTTPClient) QueryWorkouts(ctx context.Context, _ int, start, end time.Time) ([]models.WorkoutSession, error) {
	var workouts []models.WorkoutSession
	if err := c.get(ctx, "/api/v1/workouts", timeParams(start, end), &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

func (c *HTTPClient) GetDataStats(ctx context.Context, _ int) (*storage.DataStats, error) {
	var stats storage.DataStats
	if err := c.get(ctx, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
