// Package loader - Configuration Types
//
// Defines the YAML configuration structure for netrunnerd.

package loader

import (
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for netrunnerd.
type Config struct {
	// Listen is the HTTP server listen address.
	// Format: "host:port" or ":port"
	// Default: "0.0.0.0:8090"
	Listen string `yaml:"listen"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`

	// Store is the DuckDB row store configuration.
	Store StoreConfig `yaml:"store"`

	// Auth configures dashboard tokens and device auth rate limiting.
	Auth AuthConfig `yaml:"auth"`

	// Device configures device provisioning defaults.
	Device DeviceConfig `yaml:"device"`

	// Archive configures the retention/archival operation.
	Archive ArchiveConfig `yaml:"archive"`

	// Tenants declares tenants to ensure at startup.
	Tenants []TenantConfig `yaml:"tenants"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level"`

	// JSON switches output to JSON format (for production).
	JSON bool `yaml:"json"`
}

// StoreConfig configures the row store.
type StoreConfig struct {
	// Path is the DuckDB database file. Default: netrunner.db
	Path string `yaml:"path"`

	// MaxOpenConns is the connection pool size.
	MaxOpenConns int `yaml:"max_open_conns"`

	// QueryTimeoutSec is the default query timeout.
	QueryTimeoutSec int `yaml:"query_timeout_sec"`
}

// AuthConfig configures authentication.
type AuthConfig struct {
	// Tokens maps dashboard bearer tokens to tenants. The tenant of a
	// dashboard request is always resolved from its token, never from a
	// request parameter.
	Tokens []TokenConfig `yaml:"tokens"`

	// RateLimitPerMinute is the max failed device auth attempts per IP
	// per minute.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// TokenConfig is one dashboard token binding.
type TokenConfig struct {
	ID       string `yaml:"id"`
	Token    string `yaml:"token"`
	TenantID string `yaml:"tenant_id"`

	// Admin tokens may register devices and trigger archival.
	Admin bool `yaml:"admin"`
}

// DeviceConfig configures device provisioning defaults.
type DeviceConfig struct {
	// DefaultIntervalSec seeds the probe interval of new devices.
	DefaultIntervalSec int `yaml:"default_interval_sec"`
}

// ArchiveConfig configures the archival operation.
type ArchiveConfig struct {
	// Secret authorizes POST /archive calls from the external scheduler.
	Secret string `yaml:"secret"`

	// CutoffAgeHours is how old a measurement must be before archival.
	CutoffAgeHours int `yaml:"cutoff_age_hours"`

	// ExportDir enables Parquet snapshot export when set.
	ExportDir string `yaml:"export_dir"`

	// IntervalMinutes enables the built-in archive schedule. Zero
	// leaves archival to external POST /archive calls.
	IntervalMinutes int `yaml:"interval_minutes"`
}

// TenantConfig declares one tenant.
type TenantConfig struct {
	TenantID string `yaml:"tenant_id"`
	Name     string `yaml:"name"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a Config populated with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen: config.DefaultListenAddress,
		Log:    LogConfig{Level: "info"},
		Store: StoreConfig{
			Path:            config.DefaultDBPath,
			MaxOpenConns:    25,
			QueryTimeoutSec: int(config.DefaultQueryTimeout / time.Second),
		},
		Auth: AuthConfig{
			RateLimitPerMinute: config.DefaultAuthRateLimitPerMinute,
		},
		Device: DeviceConfig{
			DefaultIntervalSec: config.DefaultProbeIntervalSec,
		},
		Archive: ArchiveConfig{
			CutoffAgeHours: int(config.DefaultArchiveCutoffAge / time.Hour),
		},
	}
}

// CutoffAge returns the archive cutoff as a duration.
func (c *ArchiveConfig) CutoffAge() time.Duration {
	if c.CutoffAgeHours <= 0 {
		return config.DefaultArchiveCutoffAge
	}
	return time.Duration(c.CutoffAgeHours) * time.Hour
}

// Interval returns the built-in archive schedule, zero if disabled.
func (c *ArchiveConfig) Interval() time.Duration {
	if c.IntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(c.IntervalMinutes) * time.Minute
}
