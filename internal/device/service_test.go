package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/credential"
	apperrors "github.com/MDValleLogic/netrunner-dashboard/internal/errors"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()

	st, err := store.New(store.DefaultConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.CreateTenant(context.Background(), &store.Tenant{TenantID: "acme", Name: "acme"}); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return New(st, 300), st
}

func TestRegisterIssuesWorkingCredential(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "office pi")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.DeviceID == "" || reg.Serial == "" || reg.DeviceSecret == "" {
		t.Fatalf("incomplete registration: %+v", reg)
	}

	// Only the hash is persisted, and it verifies the issued secret.
	d, err := st.GetDevice(ctx, reg.DeviceID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.DeviceKeyHash == reg.DeviceSecret {
		t.Error("raw secret persisted")
	}
	ok, err := credential.NewVerifier(st).Verify(ctx, reg.DeviceID, reg.DeviceSecret)
	if err != nil || !ok {
		t.Errorf("issued secret does not verify: ok=%v err=%v", ok, err)
	}

	// Registration seeds an empty config with the default interval.
	cfg, err := st.GetDeviceConfig(ctx, reg.DeviceID)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.IntervalSeconds != 300 || len(cfg.URLs) != 0 {
		t.Errorf("seeded config = %+v", cfg)
	}
}

func TestClaimLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "pi")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	d, err := svc.Claim(ctx, reg.Serial, "acme", "tok-1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if d.TenantID != "acme" || !d.Claimed {
		t.Errorf("claim result: %+v", d)
	}

	if _, err := svc.Claim(ctx, reg.Serial, "acme", "tok-1"); !errors.Is(err, apperrors.ErrAlreadyClaimed) {
		t.Errorf("repeat claim: got %v, want ErrAlreadyClaimed", err)
	}
	if _, err := svc.Claim(ctx, "NR-NOPE0000", "acme", "tok-1"); !errors.Is(err, apperrors.ErrDeviceNotFound) {
		t.Errorf("unknown serial: got %v, want ErrDeviceNotFound", err)
	}
}

func TestHeartbeatRequiresRegistration(t *testing.T) {
	svc, _ := newService(t)

	err := svc.Heartbeat(context.Background(), "pi-ghost", store.HeartbeatUpdate{})
	if !errors.Is(err, apperrors.ErrDeviceNotRegistered) {
		t.Errorf("got %v, want ErrDeviceNotRegistered", err)
	}
}

func TestOnline(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cutoff := 10 * time.Minute

	fresh := &store.Device{LastSeen: now.Add(-5 * time.Minute)}
	stale := &store.Device{LastSeen: now.Add(-15 * time.Minute)}
	boundary := &store.Device{LastSeen: now.Add(-cutoff)}

	if !Online(fresh, cutoff, now) {
		t.Error("fresh device reported offline")
	}
	if Online(stale, cutoff, now) {
		t.Error("stale device reported online")
	}
	if !Online(boundary, cutoff, now) {
		t.Error("device exactly at the cutoff reported offline")
	}
}
