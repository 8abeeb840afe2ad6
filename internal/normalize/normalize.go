// Package normalize canonicalizes loosely-typed probe payloads into the
// stable measurement shape.
//
// Historical probe firmware used two names for the same concept (a
// unified "latency_ms"/"error" pair and the protocol-specific
// "http_ms"/"http_err" pair). Instead of branching on payload shape the
// precedence rules are table-driven: first present field wins.
//
// Normalize is a pure function: the same raw payload always yields the
// same measurement (given the same receive time).
package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

// RawProbe is the wire shape of an incoming probe payload. Pointer
// fields distinguish "absent" from zero values.
type RawProbe struct {
	TS        *string  `json:"ts"`
	URL       string   `json:"url"`
	LatencyMs *float64 `json:"latency_ms"`
	HTTPMs    *float64 `json:"http_ms"`
	DNSMs     *float64 `json:"dns_ms"`
	Error     *string  `json:"error"`
	HTTPErr   *string  `json:"http_err"`
	Success   *bool    `json:"success"`
}

// latencyPrecedence lists latency sources, unified field first.
var latencyPrecedence = []func(*RawProbe) *float64{
	func(r *RawProbe) *float64 { return r.LatencyMs },
	func(r *RawProbe) *float64 { return r.HTTPMs },
}

// errorPrecedence lists error sources, unified field first.
var errorPrecedence = []func(*RawProbe) *string{
	func(r *RawProbe) *string { return r.Error },
	func(r *RawProbe) *string { return r.HTTPErr },
}

// Normalize validates and canonicalizes a raw probe payload into a
// Measurement for the given device. receivedAt is used when the caller
// supplies no timestamp.
//
// Rules:
//   - url: required, non-empty after trimming
//   - latency: unified field, then protocol-specific; null when neither
//     is a finite number
//   - error: unified field, then protocol-specific
//   - success: explicit boolean when supplied, else "no error and a
//     latency was recorded" — a probe that timed out before timing
//     anything is not a success just because it carried no error text
//   - timestamp: caller RFC3339 when supplied (reject unparseable),
//     else receive time
func Normalize(raw *RawProbe, deviceID string, receivedAt time.Time) (*store.Measurement, error) {
	url := strings.TrimSpace(raw.URL)
	if url == "" {
		return nil, errors.NewMissingField("url")
	}

	ts := receivedAt.UTC()
	if raw.TS != nil && strings.TrimSpace(*raw.TS) != "" {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw.TS))
		if err != nil {
			return nil, errors.Wrap(errors.ErrInvalidTimestamp, "ts")
		}
		ts = parsed.UTC()
	}

	// First present, finite source wins; null when no source qualifies.
	var latency *float64
	for _, get := range latencyPrecedence {
		if v := get(raw); v != nil && finite(*v) {
			val := *v
			latency = &val
			break
		}
	}

	var errText *string
	for _, get := range errorPrecedence {
		if v := get(raw); v != nil && strings.TrimSpace(*v) != "" {
			val := strings.TrimSpace(*v)
			errText = &val
			break
		}
	}

	success := errText == nil && latency != nil
	if raw.Success != nil {
		success = *raw.Success
	}

	var dns *float64
	if raw.DNSMs != nil && finite(*raw.DNSMs) {
		val := *raw.DNSMs
		dns = &val
	}

	return &store.Measurement{
		DeviceID:  deviceID,
		Timestamp: ts,
		URL:       url,
		LatencyMs: latency,
		DNSMs:     dns,
		Error:     errText,
		Success:   success,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
