// Package loader loads and applies the YAML configuration for
// netrunnerd.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints of a parsed config.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Auth.Tokens))
	for i, t := range c.Auth.Tokens {
		if t.Token == "" {
			return fmt.Errorf("auth.tokens[%d]: token must not be empty", i)
		}
		if !t.Admin && t.TenantID == "" {
			return fmt.Errorf("auth.tokens[%d] (%s): non-admin token needs tenant_id", i, t.ID)
		}
		if _, dup := seen[t.Token]; dup {
			return fmt.Errorf("auth.tokens[%d] (%s): duplicate token value", i, t.ID)
		}
		seen[t.Token] = struct{}{}
	}

	for i, t := range c.Tenants {
		if t.TenantID == "" {
			return fmt.Errorf("tenants[%d]: tenant_id must not be empty", i)
		}
	}
	return nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ApplyResult summarizes an Apply run.
type ApplyResult struct {
	TenantsEnsured int
	Errors         []string
}

// Apply ensures the declared tenants exist in the store. Idempotent;
// existing tenants are left untouched.
func Apply(ctx context.Context, cfg *Config, st *store.Store) (*ApplyResult, error) {
	result := &ApplyResult{}

	for _, t := range cfg.Tenants {
		name := t.Name
		if name == "" {
			name = t.TenantID
		}
		if err := st.CreateTenant(ctx, &store.Tenant{TenantID: t.TenantID, Name: name}); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("tenant %s: %v", t.TenantID, err))
			continue
		}
		result.TenantsEnsured++
	}

	return result, nil
}
