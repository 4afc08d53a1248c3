package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"battery_monitor/internal/logger"
	"battery_monitor/internal/models"
)

// REST paths of the monitoring backend.
const (
	pathLatest    = "/api/battery/latest"
	pathLastMonth = "/api/battery/last-month"
	pathRange     = "/api/battery/range"
	pathStatus    = "/api/battery/status"
	pathExportCSV = "/api/battery/export-csv"
)

const (
	defaultWindow  = 30 * 24 * time.Hour
	maxJSONBody    = 8 << 20  // 8 MB
	maxExportBytes = 64 << 20 // 64 MB
)

// RequestObserver records REST call latency.
type RequestObserver interface {
	ObserveRequest(endpoint, outcome string, d time.Duration)
}

// Client talks to the monitoring backend's REST surface. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
	obs     RequestObserver
	now     func() time.Time
}

// New returns a client for baseURL whose requests time out after timeout.
func New(baseURL string, timeout time.Duration, log *logger.Logger, obs RequestObserver) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     logger.OrNop(log).Named("client"),
		obs:     obs,
		now:     time.Now,
	}
}

// envelope is the backend's response wrapper.
type envelope[T any] struct {
	Success bool `json:"success"`
	Data    *T   `json:"data,omitempty"`
}

type statusData struct {
	Status *models.SystemStatus `json:"status"`
}

// FetchLatest returns the most recent sample, or nil when the backend has none yet.
func (c *Client) FetchLatest(ctx context.Context) (*models.Sample, error) {
	var env envelope[models.Sample]
	if err := c.getJSON(ctx, "latest", pathLatest, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// FetchHistoricalWindow returns the samples of w. A zero window asks for the
// trailing 30 days. Zero rows is an empty slice, not an error.
func (c *Client) FetchHistoricalWindow(ctx context.Context, w models.Window) ([]models.Sample, error) {
	path, q := pathLastMonth, url.Values(nil)
	if !w.IsZero() {
		path, q = pathRange, c.windowQuery(w)
	}
	var env envelope[[]models.Sample]
	if err := c.getJSON(ctx, "history", path, q, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []models.Sample{}, nil
	}
	return *env.Data, nil
}

// FetchStatus returns the backend's view of its own integrations.
func (c *Client) FetchStatus(ctx context.Context) (*models.SystemStatus, error) {
	var env envelope[statusData]
	if err := c.getJSON(ctx, "status", pathStatus, nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, nil
	}
	return env.Data.Status, nil
}

// RequestExportArtifact downloads a CSV export. An empty body yields nil.
// A zero window exports everything the backend has.
func (c *Client) RequestExportArtifact(ctx context.Context, w models.Window) ([]byte, error) {
	var q url.Values
	if !w.IsZero() {
		q = c.windowQuery(w)
	}
	resp, endpoint, err := c.do(ctx, "export", pathExportCSV, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExportBytes))
	if err != nil {
		return nil, c.fail("export", endpoint, resp.StatusCode, err)
	}
	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

// windowQuery fills missing bounds: end defaults to now, start to end-30d.
func (c *Client) windowQuery(w models.Window) url.Values {
	end := w.End
	if end.IsZero() {
		end = c.now()
	}
	start := w.Start
	if start.IsZero() {
		start = end.Add(-defaultWindow)
	}
	return url.Values{
		"startDate": {start.UTC().Format(time.RFC3339)},
		"endDate":   {end.UTC().Format(time.RFC3339)},
	}
}

// getJSON performs a GET and decodes an envelope into out.
func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	resp, endpoint, err := c.do(ctx, op, path, q)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody)).Decode(out); err != nil {
		return c.fail(op, endpoint, resp.StatusCode, fmt.Errorf("decode body: %w", err))
	}
	if s, ok := out.(interface{ ok() bool }); ok && !s.ok() {
		return c.fail(op, endpoint, resp.StatusCode, errBackendRejected)
	}
	return nil
}

func (e *envelope[T]) ok() bool { return e.Success }

// do issues the request and maps every failure to a *TransportError.
// On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, path string, q url.Values) (*http.Response, string, error) {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, endpoint, &TransportError{Op: op, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(op, "error", start)
		return nil, endpoint, c.fail(op, endpoint, 0, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxJSONBody))
		_ = resp.Body.Close()
		c.observe(op, "http_error", start)
		return nil, endpoint, c.fail(op, endpoint, resp.StatusCode, errUnexpectedStatus)
	}
	c.observe(op, "ok", start)
	return resp, endpoint, nil
}

func (c *Client) fail(op, endpoint string, status int, err error) *TransportError {
	te := &TransportError{Op: op, URL: endpoint, StatusCode: status, Timeout: isTimeout(err), Err: err}
	c.log.Debugw("rest_request_failed", "op", op, "url", endpoint, "status", status, "timeout", te.Timeout, "err", err)
	return te
}

func (c *Client) observe(op, outcome string, start time.Time) {
	if c.obs != nil {
		c.obs.ObserveRequest(op, outcome, time.Since(start))
	}
}
