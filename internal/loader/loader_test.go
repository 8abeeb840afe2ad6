package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/MDValleLogic/netrunner-dashboard/config"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  tokens:
    - id: ops
      token: secret-token
      tenant_id: acme
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != config.DefaultListenAddress {
		t.Errorf("listen = %q, want default", cfg.Listen)
	}
	if cfg.Store.Path != config.DefaultDBPath {
		t.Errorf("store path = %q, want default", cfg.Store.Path)
	}
	if cfg.Device.DefaultIntervalSec != config.DefaultProbeIntervalSec {
		t.Errorf("interval = %d, want default", cfg.Device.DefaultIntervalSec)
	}
	if len(cfg.Auth.Tokens) != 1 || cfg.Auth.Tokens[0].TenantID != "acme" {
		t.Errorf("tokens = %+v", cfg.Auth.Tokens)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
listen: "127.0.0.1:9999"
log:
  level: debug
  json: true
store:
  path: /tmp/test.db
archive:
  secret: cron-secret
  cutoff_age_hours: 48
auth:
  tokens:
    - id: admin
      token: admin-token
      admin: true
tenants:
  - tenant_id: acme
    name: Acme Corp
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != "127.0.0.1:9999" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.LogLevel() != slog.LevelDebug || !cfg.Log.JSON {
		t.Errorf("log = %v json=%v", cfg.LogLevel(), cfg.Log.JSON)
	}
	if got := cfg.Archive.CutoffAge(); got != 48*60*60*1e9 {
		t.Errorf("cutoff = %v", got)
	}
	if len(cfg.Tenants) != 1 || cfg.Tenants[0].TenantID != "acme" {
		t.Errorf("tenants = %+v", cfg.Tenants)
	}
}

func TestValidateRejectsBadTokens(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty token value", `
auth:
  tokens:
    - id: ops
      token: ""
      tenant_id: acme
`},
		{"non-admin without tenant", `
auth:
  tokens:
    - id: ops
      token: secret
`},
		{"duplicate token values", `
auth:
  tokens:
    - id: a
      token: same
      tenant_id: acme
    - id: b
      token: same
      tenant_id: globex
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.yaml)); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestLogLevelFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "nonsense"
	if cfg.LogLevel() != slog.LevelInfo {
		t.Errorf("level = %v, want info fallback", cfg.LogLevel())
	}
}

func TestApplyEnsuresTenants(t *testing.T) {
	st, err := store.New(store.DefaultConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	cfg := DefaultConfig()
	cfg.Tenants = []TenantConfig{
		{TenantID: "acme", Name: "Acme Corp"},
		{TenantID: "globex"}, // name defaults to id
	}

	ctx := context.Background()
	result, err := Apply(ctx, cfg, st)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.TenantsEnsured != 2 || len(result.Errors) != 0 {
		t.Errorf("result = %+v", result)
	}

	tn, err := st.GetTenant(ctx, "globex")
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if tn.Name != "globex" {
		t.Errorf("name = %q, want tenant id fallback", tn.Name)
	}

	// Idempotent re-apply.
	if _, err := Apply(ctx, cfg, st); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
}
