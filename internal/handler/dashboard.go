// Package handler - Dashboard-facing endpoints
//
// All endpoints here run behind the session middleware. The tenant
// scope comes from the session's token binding; a device id in the
// query string selects a device but can never widen the scope.

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/config"
	"github.com/MDValleLogic/netrunner-dashboard/internal/aggregate"
	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
	"github.com/MDValleLogic/netrunner-dashboard/internal/scope"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
	"github.com/MDValleLogic/netrunner-dashboard/internal/validation"
)

// sessionScope resolves the tenant scope of a dashboard request.
func sessionScope(r *http.Request) (scope.Scope, Session, error) {
	sess, err := SessionFromContext(r.Context())
	if err != nil {
		return scope.Scope{}, Session{}, err
	}
	sc, err := scope.ForTenant(sess.TenantID)
	if err != nil {
		return scope.Scope{}, Session{}, err
	}
	return sc, sess, nil
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// =============================================================================
// GET /measurements/recent
// =============================================================================

type measurementRow struct {
	ID        int64    `json:"id"`
	TS        string   `json:"ts"`
	URL       string   `json:"url"`
	LatencyMs *float64 `json:"latency_ms"`
	DNSMs     *float64 `json:"dns_ms,omitempty"`
	Error     *string  `json:"error,omitempty"`
	Success   bool     `json:"success"`
}

// RecentMeasurements returns the newest rows for a device the caller's
// tenant owns.
func (h *Handler) RecentMeasurements(w http.ResponseWriter, r *http.Request) {
	sc, _, err := sessionScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, errors.NewMissingField("device_id"))
		return
	}
	limit := validation.ClampLimit(queryInt(r, "limit"),
		config.DefaultRecentLimit, config.MaxRecentLimit)

	rows, err := h.Store.RecentMeasurements(r.Context(), sc, deviceID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]measurementRow, 0, len(rows))
	for _, m := range rows {
		out = append(out, measurementRow{
			ID:        m.ID,
			TS:        m.Timestamp.UTC().Format(time.RFC3339),
			URL:       m.URL,
			LatencyMs: m.LatencyMs,
			DNSMs:     m.DNSMs,
			Error:     m.Error,
			Success:   m.Success,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"device_id": deviceID,
		"limit":     limit,
		"rows":      out,
	})
}

// =============================================================================
// GET /measurements/timeseries
// =============================================================================

type seriesPoint struct {
	TS           string   `json:"ts"`
	AvgLatencyMs *float64 `json:"avg_latency_ms"`
	AvgDNSMs     *float64 `json:"avg_dns_ms,omitempty"`
	SampleCount  int64    `json:"sample_count"`
	SuccessCount int64    `json:"success_count"`
	FailCount    int64    `json:"fail_count"`
	P50Ms        *float64 `json:"p50_ms,omitempty"`
	P95Ms        *float64 `json:"p95_ms,omitempty"`
}

// Timeseries returns epoch-aligned bucket series per URL. Out-of-range
// window/bucket parameters are clamped server-side, not rejected.
func (h *Handler) Timeseries(w http.ResponseWriter, r *http.Request) {
	sc, _, err := sessionScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, errors.NewMissingField("device_id"))
		return
	}

	params := aggregate.Params{
		WindowMinutes: queryInt(r, "window_minutes"),
		BucketSeconds: queryInt(r, "bucket_seconds"),
		URLs:          r.URL.Query()["url"],
		Percentiles:   true,
	}

	series, err := h.Engine.Timeseries(r.Context(), sc, deviceID, params)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make(map[string][]seriesPoint, len(series.URLs))
	for _, url := range series.URLs {
		points := make([]seriesPoint, 0, len(series.Buckets[url]))
		for _, b := range series.Buckets[url] {
			points = append(points, seriesPoint{
				TS:           b.BucketStart.Format(time.RFC3339),
				AvgLatencyMs: b.AvgLatencyMs,
				AvgDNSMs:     b.AvgDNSMs,
				SampleCount:  b.SampleCount,
				SuccessCount: b.SuccessCount,
				FailCount:    b.FailCount,
				P50Ms:        b.P50Ms,
				P95Ms:        b.P95Ms,
			})
		}
		out[url] = points
	}

	urls := series.URLs
	if urls == nil {
		urls = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"device_id":      deviceID,
		"window_minutes": series.WindowMinutes,
		"bucket_seconds": series.BucketSeconds,
		"urls":           urls,
		"series":         out,
		"fetched_at_utc": time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// POST /device-config
// =============================================================================

type deviceConfigRequest struct {
	DeviceID        string   `json:"device_id"`
	IntervalSeconds int      `json:"interval_seconds"`
	URLs            []string `json:"urls"`
}

// SaveDeviceConfig replaces a device's probe config wholesale. The
// device must belong to the caller's tenant.
func (h *Handler) SaveDeviceConfig(w http.ResponseWriter, r *http.Request) {
	sc, _, err := sessionScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req deviceConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.DeviceID == "" {
		writeError(w, errors.NewMissingField("device_id"))
		return
	}
	if err := validation.ValidateConfigURLs(req.URLs); err != nil {
		writeError(w, err)
		return
	}

	tenantID, err := h.Store.DeviceTenant(r.Context(), req.DeviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	if tenantID != sc.TenantID {
		// Same response as an unknown device: no cross-tenant existence leak.
		writeError(w, errors.ErrDeviceNotFound)
		return
	}

	cfg := &store.DeviceConfig{
		DeviceID:        req.DeviceID,
		IntervalSeconds: validation.ClampInterval(req.IntervalSeconds),
		URLs:            req.URLs,
	}
	if err := h.Store.SaveDeviceConfig(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":               true,
		"device_id":        req.DeviceID,
		"interval_seconds": cfg.IntervalSeconds,
		"updated_at":       cfg.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// POST /devices/claim
// =============================================================================

type claimRequest struct {
	Serial string `json:"serial"`
}

// ClaimDevice binds an unclaimed device to the caller's tenant.
func (h *Handler) ClaimDevice(w http.ResponseWriter, r *http.Request) {
	sc, sess, err := sessionScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Serial == "" {
		writeError(w, errors.NewMissingField("serial"))
		return
	}

	d, err := h.Devices.Claim(r.Context(), req.Serial, sc.TenantID, sess.TokenID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"device_id": d.DeviceID,
		"serial":    d.Serial,
		"tenant_id": d.TenantID,
	})
}

// =============================================================================
// GET /devices
// =============================================================================

type deviceRow struct {
	DeviceID     string `json:"device_id"`
	Serial       string `json:"serial"`
	Name         string `json:"name"`
	Hostname     string `json:"hostname,omitempty"`
	IP           string `json:"ip,omitempty"`
	Mode         string `json:"mode,omitempty"`
	Online       bool   `json:"online"`
	LastSeen     string `json:"last_seen"`
	LastSeenAgeS int64  `json:"last_seen_age_s"`
}

// ListDevices returns the caller's tenant devices with liveness.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	sc, _, err := sessionScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	devices, err := h.Store.ListDevices(r.Context(), sc.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC()
	out := make([]deviceRow, 0, len(devices))
	for _, d := range devices {
		age := int64(now.Sub(d.LastSeen).Seconds())
		out = append(out, deviceRow{
			DeviceID:     d.DeviceID,
			Serial:       d.Serial,
			Name:         d.Name,
			Hostname:     d.Hostname,
			IP:           d.IP,
			Mode:         d.Mode,
			Online:       age <= h.OfflineAfter,
			LastSeen:     d.LastSeen.UTC().Format(time.RFC3339),
			LastSeenAgeS: age,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"devices": out,
	})
}

// =============================================================================
// GET /routes/recent, GET /speed/recent
// =============================================================================

// RecentRoutes returns the newest traceroute runs for a device.
func (h *Handler) RecentRoutes(w http.ResponseWriter, r *http.Request) {
	sc, _, err := sessionScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, errors.NewMissingField("device_id"))
		return
	}
	limit := validation.ClampLimit(queryInt(r, "limit"),
		config.DefaultRecentLimit, config.MaxRecentLimit)

	traces, err := h.Store.RecentRouteTraces(r.Context(), sc, deviceID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if traces == nil {
		traces = []*store.RouteTrace{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"device_id": deviceID,
		"traces":    traces,
	})
}

// RecentSpeed returns the newest bandwidth results for a device.
func (h *Handler) RecentSpeed(w http.ResponseWriter, r *http.Request) {
	sc, _, err := sessionScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, errors.NewMissingField("device_id"))
		return
	}
	limit := validation.ClampLimit(queryInt(r, "limit"),
		config.DefaultRecentLimit, config.MaxRecentLimit)

	results, err := h.Store.RecentSpeedResults(r.Context(), sc, deviceID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []*store.SpeedResult{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"device_id": deviceID,
		"results":   results,
	})
}
