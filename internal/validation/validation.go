// Package validation provides centralized input validation for the
// netrunner backend.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MDValleLogic/netrunner-dashboard/config"
	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
)

// =============================================================================
// URL Validation
// =============================================================================

// ValidateTargetURL checks one probe target URL.
func ValidateTargetURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return errors.NewMissingField("url")
	}
	if len(trimmed) > 2048 {
		return errors.NewValidation("url", "longer than 2048 characters")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return errors.NewValidation("url", err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewValidation("url", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return errors.NewValidation("url", "missing host")
	}
	return nil
}

// ValidateConfigURLs checks the URL set of a device config: each URL
// valid, no duplicates, bounded count.
func ValidateConfigURLs(urls []string) error {
	if len(urls) > config.MaxConfigURLs {
		return errors.NewValidation("urls",
			fmt.Sprintf("at most %d urls allowed", config.MaxConfigURLs))
	}

	seen := make(map[string]struct{}, len(urls))
	v := errors.NewValidationErrors()
	for _, raw := range urls {
		if err := ValidateTargetURL(raw); err != nil {
			v.Add(err)
			continue
		}
		trimmed := strings.TrimSpace(raw)
		if _, dup := seen[trimmed]; dup {
			v.AddField("urls", "duplicate url "+trimmed)
		}
		seen[trimmed] = struct{}{}
	}
	return v.Err()
}

// =============================================================================
// Interval Validation
// =============================================================================

// ClampInterval forces a probe interval into its bounds. Non-positive
// values fall back to the default.
func ClampInterval(seconds int) int {
	if seconds <= 0 {
		return config.DefaultProbeIntervalSec
	}
	if seconds < config.MinProbeIntervalSec {
		return config.MinProbeIntervalSec
	}
	return seconds
}

// ClampLimit forces a row limit into [1, max], falling back to def for
// non-positive input.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// =============================================================================
// Name Validation
// =============================================================================

// ValidateDeviceName checks a human-facing device name.
func ValidateDeviceName(name string) error {
	if len(name) > 255 {
		return errors.NewValidation("name", "longer than 255 characters")
	}
	for i, r := range name {
		if r < 32 || r == 127 {
			return errors.NewValidation("name",
				fmt.Sprintf("control character at position %d", i))
		}
	}
	return nil
}
