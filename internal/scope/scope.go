// Package scope implements the tenant isolation scope.
//
// Every read or write touching measurement, route trace, or speed result
// rows must present a resolved Scope. A zero scope fails closed: store
// methods reject it instead of defaulting to "all tenants".
//
// Resolution differs by caller class. Device-originated writes resolve
// the scope from the device's current tenant binding (ForDevice);
// dashboard reads resolve it from the authenticated session and never
// from a client-supplied parameter.
package scope

import (
	"context"

	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
)

// Scope restricts all queries in its lifetime to one tenant's rows.
type Scope struct {
	TenantID string
}

// Zero reports whether the scope is unresolved.
func (s Scope) Zero() bool {
	return s.TenantID == ""
}

// Validate returns ErrScopeRequired for a zero scope.
func (s Scope) Validate() error {
	if s.Zero() {
		return errors.ErrScopeRequired
	}
	return nil
}

// TenantLookup resolves the current tenant binding of a device.
// Implemented by the store.
type TenantLookup interface {
	DeviceTenant(ctx context.Context, deviceID string) (string, error)
}

// ForDevice resolves the write scope for a device-originated request.
//
// A device with no bound tenant causes ErrMissingTenant: the write is
// refused, never queued or attributed to a default tenant.
func ForDevice(ctx context.Context, lookup TenantLookup, deviceID string) (Scope, error) {
	tenantID, err := lookup.DeviceTenant(ctx, deviceID)
	if err != nil {
		return Scope{}, err
	}
	if tenantID == "" {
		return Scope{}, errors.ErrMissingTenant
	}
	return Scope{TenantID: tenantID}, nil
}

// ForTenant wraps an already-authenticated tenant id in a Scope.
// The caller is responsible for having resolved the tenant from a
// trusted session, not from request input.
func ForTenant(tenantID string) (Scope, error) {
	if tenantID == "" {
		return Scope{}, errors.ErrScopeRequired
	}
	return Scope{TenantID: tenantID}, nil
}

// Context plumbing so handlers can pass the resolved scope down without
// widening every signature.

type contextKey struct{}

// WithContext attaches a resolved scope to the context.
func WithContext(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext extracts the scope from the context, failing closed when
// none was attached.
func FromContext(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(contextKey{}).(Scope)
	if !ok || s.Zero() {
		return Scope{}, errors.ErrScopeRequired
	}
	return s, nil
}
