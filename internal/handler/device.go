// Package handler - Device-facing endpoints
//
// All endpoints here run behind the device credential middleware: the
// device id in the context is authenticated, never taken from the body.

package handler

import (
	"net/http"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
	"github.com/MDValleLogic/netrunner-dashboard/internal/normalize"
	"github.com/MDValleLogic/netrunner-dashboard/internal/scope"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

// =============================================================================
// POST /heartbeat
// =============================================================================

type heartbeatRequest struct {
	Hostname      string `json:"hostname"`
	IP            string `json:"ip"`
	Mode          string `json:"mode"`
	Claimed       bool   `json:"claimed"`
	ClaimCodeHash string `json:"claim_code_hash"`
}

// Heartbeat applies a liveness ping with monotonic merge semantics.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	deviceID, err := DeviceIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req heartbeatRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	err = h.Devices.Heartbeat(r.Context(), deviceID, store.HeartbeatUpdate{
		Hostname:      req.Hostname,
		IP:            req.IP,
		Mode:          req.Mode,
		ClaimCodeHash: req.ClaimCodeHash,
		Claimed:       req.Claimed,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"device_id": deviceID,
	})
}

// =============================================================================
// POST /measurements/ingest
// =============================================================================

// IngestMeasurement normalizes one probe payload and appends it under
// the device's tenant scope.
func (h *Handler) IngestMeasurement(w http.ResponseWriter, r *http.Request) {
	deviceID, err := DeviceIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var raw normalize.RawProbe
	if err := decodeJSON(r, &raw); err != nil {
		writeError(w, err)
		return
	}

	m, err := normalize.Normalize(&raw, deviceID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	sc, err := scope.ForDevice(r.Context(), h.Store, deviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := h.Store.InsertMeasurement(r.Context(), sc, m)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"device_id":   deviceID,
		"inserted_id": id,
		"tenant_id":   sc.TenantID,
	})
}

// =============================================================================
// GET /device/config
// =============================================================================

// DeviceConfig returns the device's own probe configuration.
func (h *Handler) DeviceConfig(w http.ResponseWriter, r *http.Request) {
	deviceID, err := DeviceIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	cfg, err := h.Store.GetDeviceConfig(r.Context(), deviceID)
	if err != nil {
		if notFound(err) {
			writeJSON(w, http.StatusOK, map[string]any{"configured": false})
			return
		}
		writeError(w, err)
		return
	}

	urls := cfg.URLs
	if urls == nil {
		urls = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"configured":       len(urls) > 0 && cfg.IntervalSeconds > 0,
		"interval_seconds": cfg.IntervalSeconds,
		"urls":             urls,
		"updated_at":       cfg.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// POST /routes/ingest
// =============================================================================

type routeHopRequest struct {
	Hop      int      `json:"hop"`
	IP       string   `json:"ip"`
	Hostname string   `json:"hostname"`
	RTTMs    *float64 `json:"rtt_ms"`
	Timeout  bool     `json:"timeout"`
	Org      string   `json:"org"`
	ISP      string   `json:"isp"`
	ASN      string   `json:"asn"`
	Country  string   `json:"country"`
	City     string   `json:"city"`
}

type routeIngestRequest struct {
	TS        *string           `json:"ts"`
	Target    string            `json:"target"`
	DestIP    string            `json:"dest_ip"`
	HopCount  int               `json:"hop_count"`
	TotalHops int               `json:"total_hops"`
	Hops      []routeHopRequest `json:"hops"`
}

// IngestRoute writes one traceroute run, trace and hops in one
// transaction.
func (h *Handler) IngestRoute(w http.ResponseWriter, r *http.Request) {
	deviceID, err := DeviceIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req routeIngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Target == "" {
		writeError(w, errors.NewMissingField("target"))
		return
	}
	if len(req.Hops) == 0 {
		writeError(w, errors.NewMissingField("hops"))
		return
	}

	ts := time.Now().UTC()
	if req.TS != nil && *req.TS != "" {
		parsed, err := time.Parse(time.RFC3339, *req.TS)
		if err != nil {
			writeError(w, errors.Wrap(errors.ErrInvalidTimestamp, "ts"))
			return
		}
		ts = parsed.UTC()
	}

	sc, err := scope.ForDevice(r.Context(), h.Store, deviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	trace := &store.RouteTrace{
		DeviceID:       deviceID,
		Timestamp:      ts,
		Target:         req.Target,
		DestIP:         req.DestIP,
		RespondingHops: req.HopCount,
		TotalHops:      req.TotalHops,
	}
	for _, hop := range req.Hops {
		trace.Hops = append(trace.Hops, store.RouteHop{
			HopNum:   hop.Hop,
			IP:       hop.IP,
			Hostname: hop.Hostname,
			RTTMs:    hop.RTTMs,
			Timeout:  hop.Timeout,
			Org:      hop.Org,
			ISP:      hop.ISP,
			ASN:      hop.ASN,
			Country:  hop.Country,
			City:     hop.City,
		})
	}

	traceID, err := h.Store.InsertRouteTrace(r.Context(), sc, trace)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"trace_id":      traceID,
		"hops_inserted": len(trace.Hops),
	})
}

// =============================================================================
// POST /speed/ingest
// =============================================================================

type speedIngestRequest struct {
	TS           *string  `json:"ts"`
	Region       string   `json:"region"`
	DownloadMbps *float64 `json:"download_mbps"`
	UploadMbps   *float64 `json:"upload_mbps"`
	PingMs       *float64 `json:"ping_ms"`
	JitterMs     *float64 `json:"jitter_ms"`
	Error        *string  `json:"error"`
}

// IngestSpeed writes one bandwidth test result.
func (h *Handler) IngestSpeed(w http.ResponseWriter, r *http.Request) {
	deviceID, err := DeviceIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req speedIngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ts := time.Now().UTC()
	if req.TS != nil && *req.TS != "" {
		parsed, err := time.Parse(time.RFC3339, *req.TS)
		if err != nil {
			writeError(w, errors.Wrap(errors.ErrInvalidTimestamp, "ts"))
			return
		}
		ts = parsed.UTC()
	}

	sc, err := scope.ForDevice(r.Context(), h.Store, deviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := h.Store.InsertSpeedResult(r.Context(), sc, &store.SpeedResult{
		DeviceID:     deviceID,
		Timestamp:    ts,
		Region:       req.Region,
		DownloadMbps: req.DownloadMbps,
		UploadMbps:   req.UploadMbps,
		PingMs:       req.PingMs,
		JitterMs:     req.JitterMs,
		Error:        req.Error,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"device_id":   deviceID,
		"inserted_id": id,
	})
}
