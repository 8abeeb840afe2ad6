// Package handler - Operational endpoints
//
// Registration is admin-only; the archive endpoint is guarded by its
// own shared secret so a scheduler can call it without a dashboard
// token.

package handler

import (
	"net/http"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
)

// =============================================================================
// POST /devices/register
// =============================================================================

type registerRequest struct {
	Name string `json:"name"`
}

// RegisterDevice issues a new device identity. The raw secret appears in
// this response and nowhere else.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	sess, err := SessionFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if !sess.Admin {
		writeError(w, errors.ErrUnauthorized)
		return
	}

	var req registerRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	reg, err := h.Devices.Register(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"ok":            true,
		"device_id":     reg.DeviceID,
		"serial":        reg.Serial,
		"device_secret": reg.DeviceSecret,
	})
}

// =============================================================================
// POST /archive
// =============================================================================

// Archive moves aged measurement rows into the archive table and runs
// the parquet export. Idempotent: a second run over the same cutoff
// moves zero rows.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	res, err := h.Archiver.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	body := map[string]any{
		"ok":       true,
		"archived": res.Archived,
		"cutoff":   res.Cutoff.UTC().Format(time.RFC3339),
		"ran_at":   res.RanAt.UTC().Format(time.RFC3339),
	}
	if res.ExportFile != "" {
		body["export_file"] = res.ExportFile
	}
	writeJSON(w, http.StatusOK, body)
}

// =============================================================================
// GET /healthz
// =============================================================================

// Healthz reports process and store health.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok":     false,
			"status": "degraded",
			"detail": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"status": "healthy",
	})
}
