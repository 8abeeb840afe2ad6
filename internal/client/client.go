// Package client provides Go clients for the netrunner HTTP API.
//
// Two clients mirror the two auth planes: Client speaks the dashboard
// API with a bearer token, DeviceClient speaks the device API with the
// credential headers a probe appliance holds.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrAuthFailed = errors.New("authentication failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// APIError is a non-2xx response decoded from the server's error
// envelope.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("api error %d (%s)", e.Status, e.Code)
}

// Unwrap maps the status class onto the package sentinels so callers
// can use errors.Is without inspecting codes.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}

// =============================================================================
// Shared transport
// =============================================================================

type transport struct {
	baseURL string
	http    *http.Client
	header  func(*http.Request)
}

func newTransport(baseURL string, timeout time.Duration, header func(*http.Request)) transport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return transport{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		header:  header,
	}
}

// do issues one request and decodes the JSON response into out.
func (t *transport) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	t.header(req)

	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return &APIError{
			Status: resp.StatusCode,
			Code:   envelope.Error,
			Detail: envelope.Detail,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// =============================================================================
// Dashboard Client
// =============================================================================

// Client is a dashboard API client. The token determines the tenant
// scope of every call.
type Client struct {
	t transport
}

// Options configures a client.
type Options struct {
	// Timeout for each request. Defaults to 30s.
	Timeout time.Duration
}

// New creates a dashboard client for baseURL authenticating with token.
func New(baseURL, token string, opts Options) *Client {
	return &Client{t: newTransport(baseURL, opts.Timeout, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})}
}

// Registration is the one-time result of registering a device. The
// secret in it is shown once and cannot be retrieved again.
type Registration struct {
	DeviceID     string `json:"device_id"`
	Serial       string `json:"serial"`
	DeviceSecret string `json:"device_secret"`
}

// RegisterDevice issues a new device identity (admin token required).
func (c *Client) RegisterDevice(ctx context.Context, name string) (*Registration, error) {
	var out Registration
	err := c.t.do(ctx, http.MethodPost, "/devices/register", nil,
		map[string]string{"name": name}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ClaimResult describes a successful claim.
type ClaimResult struct {
	DeviceID string `json:"device_id"`
	Serial   string `json:"serial"`
	TenantID string `json:"tenant_id"`
}

// ClaimDevice binds the device with the given serial to the caller's
// tenant.
func (c *Client) ClaimDevice(ctx context.Context, serial string) (*ClaimResult, error) {
	var out ClaimResult
	err := c.t.do(ctx, http.MethodPost, "/devices/claim", nil,
		map[string]string{"serial": serial}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Device is one row of a device listing.
type Device struct {
	DeviceID     string `json:"device_id"`
	Serial       string `json:"serial"`
	Name         string `json:"name"`
	Hostname     string `json:"hostname"`
	IP           string `json:"ip"`
	Mode         string `json:"mode"`
	Online       bool   `json:"online"`
	LastSeen     string `json:"last_seen"`
	LastSeenAgeS int64  `json:"last_seen_age_s"`
}

// ListDevices returns the caller's tenant devices.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	var out struct {
		Devices []Device `json:"devices"`
	}
	if err := c.t.do(ctx, http.MethodGet, "/devices", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// Measurement is one row of a recent-measurements response.
type Measurement struct {
	ID        int64    `json:"id"`
	TS        string   `json:"ts"`
	URL       string   `json:"url"`
	LatencyMs *float64 `json:"latency_ms"`
	DNSMs     *float64 `json:"dns_ms"`
	Error     *string  `json:"error"`
	Success   bool     `json:"success"`
}

// RecentMeasurements returns the newest measurement rows for a device.
func (c *Client) RecentMeasurements(ctx context.Context, deviceID string, limit int) ([]Measurement, error) {
	q := url.Values{"device_id": {deviceID}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Rows []Measurement `json:"rows"`
	}
	if err := c.t.do(ctx, http.MethodGet, "/measurements/recent", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// SeriesPoint is one aggregation bucket of a timeseries response.
type SeriesPoint struct {
	TS           string   `json:"ts"`
	AvgLatencyMs *float64 `json:"avg_latency_ms"`
	AvgDNSMs     *float64 `json:"avg_dns_ms"`
	SampleCount  int64    `json:"sample_count"`
	SuccessCount int64    `json:"success_count"`
	FailCount    int64    `json:"fail_count"`
	P50Ms        *float64 `json:"p50_ms"`
	P95Ms        *float64 `json:"p95_ms"`
}

// Timeseries is a bucketed aggregation response keyed by URL.
type Timeseries struct {
	DeviceID      string                   `json:"device_id"`
	WindowMinutes int                      `json:"window_minutes"`
	BucketSeconds int                      `json:"bucket_seconds"`
	URLs          []string                 `json:"urls"`
	Series        map[string][]SeriesPoint `json:"series"`
}

// TimeseriesParams selects the aggregation window. Zero values fall
// back to server defaults; out-of-range values are clamped server-side.
type TimeseriesParams struct {
	WindowMinutes int
	BucketSeconds int
	URLs          []string
}

// GetTimeseries fetches bucketed latency series for a device.
func (c *Client) GetTimeseries(ctx context.Context, deviceID string, p TimeseriesParams) (*Timeseries, error) {
	q := url.Values{"device_id": {deviceID}}
	if p.WindowMinutes > 0 {
		q.Set("window_minutes", strconv.Itoa(p.WindowMinutes))
	}
	if p.BucketSeconds > 0 {
		q.Set("bucket_seconds", strconv.Itoa(p.BucketSeconds))
	}
	for _, u := range p.URLs {
		q.Add("url", u)
	}
	var out Timeseries
	if err := c.t.do(ctx, http.MethodGet, "/measurements/timeseries", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveDeviceConfig replaces a device's probe configuration.
func (c *Client) SaveDeviceConfig(ctx context.Context, deviceID string, intervalSeconds int, urls []string) error {
	return c.t.do(ctx, http.MethodPost, "/device-config", nil, map[string]any{
		"device_id":        deviceID,
		"interval_seconds": intervalSeconds,
		"urls":             urls,
	}, nil)
}

// =============================================================================
// Archive Trigger
// =============================================================================

// ArchiveResult summarizes one archival run.
type ArchiveResult struct {
	Archived   int64  `json:"archived"`
	Cutoff     string `json:"cutoff"`
	RanAt      string `json:"ran_at"`
	ExportFile string `json:"export_file"`
}

// TriggerArchive calls the archival endpoint. This is a free function
// because the endpoint authenticates with the archive secret, not a
// dashboard token.
func TriggerArchive(ctx context.Context, baseURL, secret string) (*ArchiveResult, error) {
	t := newTransport(baseURL, 0, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+secret)
	})
	var out ArchiveResult
	if err := t.do(ctx, http.MethodPost, "/archive", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// Device Client
// =============================================================================

// DeviceClient speaks the device-facing API with credential headers.
type DeviceClient struct {
	t        transport
	deviceID string
}

// NewDevice creates a device client holding the raw secret issued at
// registration.
func NewDevice(baseURL, deviceID, secret string, opts Options) *DeviceClient {
	return &DeviceClient{
		deviceID: deviceID,
		t: newTransport(baseURL, opts.Timeout, func(r *http.Request) {
			r.Header.Set("X-Device-Id", deviceID)
			r.Header.Set("X-Device-Secret", secret)
		}),
	}
}

// DeviceID returns the device id this client authenticates as.
func (c *DeviceClient) DeviceID() string { return c.deviceID }

// Heartbeat sends a liveness ping with optional attributes.
func (c *DeviceClient) Heartbeat(ctx context.Context, hostname, ip, mode string) error {
	return c.t.do(ctx, http.MethodPost, "/heartbeat", nil, map[string]any{
		"hostname": hostname,
		"ip":       ip,
		"mode":     mode,
	}, nil)
}

// Probe is one probe result to ingest.
type Probe struct {
	TS        *string  `json:"ts,omitempty"`
	URL       string   `json:"url"`
	LatencyMs *float64 `json:"latency_ms,omitempty"`
	DNSMs     *float64 `json:"dns_ms,omitempty"`
	Error     *string  `json:"error,omitempty"`
	Success   *bool    `json:"success,omitempty"`
}

// IngestMeasurement submits one probe result.
func (c *DeviceClient) IngestMeasurement(ctx context.Context, p Probe) (int64, error) {
	var out struct {
		InsertedID int64 `json:"inserted_id"`
	}
	if err := c.t.do(ctx, http.MethodPost, "/measurements/ingest", nil, p, &out); err != nil {
		return 0, err
	}
	return out.InsertedID, nil
}

// ProbeConfig is the device's own probe configuration.
type ProbeConfig struct {
	Configured      bool     `json:"configured"`
	IntervalSeconds int      `json:"interval_seconds"`
	URLs            []string `json:"urls"`
}

// FetchConfig retrieves the device's probe configuration.
func (c *DeviceClient) FetchConfig(ctx context.Context) (*ProbeConfig, error) {
	var out ProbeConfig
	if err := c.t.do(ctx, http.MethodGet, "/device/config", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
