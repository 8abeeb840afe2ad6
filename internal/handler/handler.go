// Package handler implements the HTTP endpoints of the netrunner
// backend.
//
// Device-facing endpoints authenticate with X-Device-Id/X-Device-Secret
// headers; dashboard endpoints with bearer tokens resolved to a tenant
// by the server middleware. Handlers are stateless: one invocation per
// request, no locks held across store I/O.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MDValleLogic/netrunner-dashboard/internal/aggregate"
	"github.com/MDValleLogic/netrunner-dashboard/internal/archive"
	"github.com/MDValleLogic/netrunner-dashboard/internal/device"
	apperrors "github.com/MDValleLogic/netrunner-dashboard/internal/errors"
	"github.com/MDValleLogic/netrunner-dashboard/internal/logging"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

var log = logging.Component("handler")

// Handler bundles the components the endpoints need. All dependencies
// are injected; there is no package-level state.
type Handler struct {
	Store    *store.Store
	Devices  *device.Service
	Engine   *aggregate.Engine
	Archiver *archive.Service

	// OfflineAfter is the liveness cutoff for device listings.
	OfflineAfter int64 // seconds
}

// =============================================================================
// JSON Helpers
// =============================================================================

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("encode response", "error", err)
	}
}

// writeError maps an error to its HTTP status and stable code.
//
// 5xx responses carry the underlying message for operator debugging;
// this is an internal-diagnostics choice, not a security boundary.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	body := map[string]any{
		"ok":    false,
		"error": apperrors.Code(err),
	}
	if status >= http.StatusInternalServerError {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}

// decodeJSON decodes a request body, rejecting unknown syntax early.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	return nil
}

// notFound is a typed check used by handlers that map store misses to
// empty responses instead of 404s.
func notFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) ||
		apperrors.IsNotFound(err)
}
