package scope

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/MDValleLogic/netrunner-dashboard/internal/errors"
)

type fakeLookup struct {
	tenants map[string]string
	err     error
}

func (f *fakeLookup) DeviceTenant(_ context.Context, deviceID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.tenants[deviceID], nil
}

func TestValidateFailsClosed(t *testing.T) {
	if err := (Scope{}).Validate(); !errors.Is(err, apperrors.ErrScopeRequired) {
		t.Errorf("zero scope: got %v, want ErrScopeRequired", err)
	}
	if err := (Scope{TenantID: "acme"}).Validate(); err != nil {
		t.Errorf("resolved scope: got %v, want nil", err)
	}
}

func TestForDevice(t *testing.T) {
	lookup := &fakeLookup{tenants: map[string]string{"pi-bound": "acme"}}
	ctx := context.Background()

	sc, err := ForDevice(ctx, lookup, "pi-bound")
	if err != nil {
		t.Fatalf("ForDevice: %v", err)
	}
	if sc.TenantID != "acme" {
		t.Errorf("tenant = %q, want acme", sc.TenantID)
	}

	// An unclaimed device has no tenant: the write scope must be refused,
	// never defaulted.
	_, err = ForDevice(ctx, lookup, "pi-unclaimed")
	if !errors.Is(err, apperrors.ErrMissingTenant) {
		t.Errorf("unbound device: got %v, want ErrMissingTenant", err)
	}

	lookup.err = apperrors.ErrDatabase
	if _, err := ForDevice(ctx, lookup, "pi-bound"); !errors.Is(err, apperrors.ErrDatabase) {
		t.Errorf("lookup failure: got %v, want ErrDatabase", err)
	}
}

func TestForTenant(t *testing.T) {
	if _, err := ForTenant(""); !errors.Is(err, apperrors.ErrScopeRequired) {
		t.Errorf("empty tenant: got %v, want ErrScopeRequired", err)
	}
	sc, err := ForTenant("acme")
	if err != nil || sc.TenantID != "acme" {
		t.Errorf("ForTenant = %v, %v", sc, err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, err := FromContext(ctx); !errors.Is(err, apperrors.ErrScopeRequired) {
		t.Errorf("bare context: got %v, want ErrScopeRequired", err)
	}

	ctx = WithContext(ctx, Scope{TenantID: "acme"})
	sc, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext: %v", err)
	}
	if sc.TenantID != "acme" {
		t.Errorf("tenant = %q, want acme", sc.TenantID)
	}

	// A zero scope smuggled into the context still fails closed.
	if _, err := FromContext(WithContext(context.Background(), Scope{})); !errors.Is(err, apperrors.ErrScopeRequired) {
		t.Errorf("zero scope in context: got %v, want ErrScopeRequired", err)
	}
}
