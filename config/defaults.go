// Package config provides configuration defaults and utilities
// for the netrunner backend.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command-line flags.
package config

import "time"

// =============================================================================
// Network Defaults
// =============================================================================

const (
	// DefaultListenAddress is the default server listen address.
	// Override via config: server.listen
	DefaultListenAddress = "0.0.0.0:8090"

	// DefaultMaxBodyBytes limits request body size to prevent OOM.
	// 1 MiB is generous for any probe payload (a traceroute with 64 hops
	// is well under 64 KiB).
	// Override via config: server.max_body_bytes
	DefaultMaxBodyBytes = 1 * 1024 * 1024

	// DefaultReadTimeout bounds how long a request may take to arrive.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout bounds how long a response may take to drain.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultShutdownTimeout is how long in-flight requests are drained
	// during shutdown. This follows the Kubernetes convention
	// (terminationGracePeriodSeconds = 30s).
	// Override via config: server.shutdown_timeout_sec
	DefaultShutdownTimeout = 30 * time.Second
)

// =============================================================================
// Device Defaults
// =============================================================================

const (
	// DefaultProbeIntervalSec is the poll interval written into a fresh
	// device config when none is supplied.
	// Override via config: device.default_interval_sec
	DefaultProbeIntervalSec = 300

	// MinProbeIntervalSec is the lower bound on the device poll interval.
	// Saving a smaller interval is clamped to this value.
	MinProbeIntervalSec = 30

	// MaxConfigURLs bounds the number of target URLs per device config.
	MaxConfigURLs = 20

	// OfflineAfter is the liveness cutoff: a device whose last_seen is
	// older than this is reported offline.
	OfflineAfter = 10 * time.Minute
)

// =============================================================================
// Aggregation Defaults
// =============================================================================

const (
	// MinBucketSeconds is the smallest allowed aggregation bucket width.
	// Requests below this are clamped, not rejected.
	MinBucketSeconds = 10

	// MaxBucketSeconds is the largest allowed aggregation bucket width.
	MaxBucketSeconds = 3600

	// MinWindowMinutes is the smallest allowed aggregation window.
	MinWindowMinutes = 1

	// MaxWindowMinutes is the largest allowed aggregation window (7 days).
	MaxWindowMinutes = 7 * 24 * 60

	// DefaultWindowMinutes is used when the caller omits the window.
	DefaultWindowMinutes = 15

	// DefaultBucketSeconds is used when the caller omits the bucket width.
	DefaultBucketSeconds = 60

	// TopURLLimit is the number of URLs selected when no explicit URL
	// filter is given, ranked by raw sample count in the window.
	TopURLLimit = 5

	// MaxRecentLimit bounds the row count for recent-measurement queries.
	MaxRecentLimit = 200

	// DefaultRecentLimit is used when the caller omits the limit.
	DefaultRecentLimit = 20

	// PercentileAccuracy is the DDSketch relative accuracy used for
	// per-bucket latency percentiles.
	PercentileAccuracy = 0.01
)

// =============================================================================
// Archival Defaults
// =============================================================================

const (
	// DefaultArchiveCutoffAge is how old a measurement must be before the
	// archival job moves it out of the hot table.
	// Override via config: archive.cutoff_age_hours
	DefaultArchiveCutoffAge = 24 * time.Hour
)

// =============================================================================
// Store Defaults
// =============================================================================

const (
	// DefaultDBPath is the DuckDB database file.
	// Override via config: store.path or the -db flag.
	DefaultDBPath = "netrunner.db"

	// DefaultQueryTimeout is the default timeout for store queries.
	DefaultQueryTimeout = 30 * time.Second
)

// =============================================================================
// Rate Limiting Defaults
// =============================================================================

const (
	// DefaultAuthRateLimitPerMinute is the max FAILED device auth attempts
	// per IP per minute. Only failed attempts are counted; a successful
	// authentication resets the failure counter.
	// Override via config: auth.rate_limit_per_minute
	DefaultAuthRateLimitPerMinute = 10
)
