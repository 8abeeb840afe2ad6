// Package store - Tenant operations

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
)

// Tenant is the isolation boundary. It owns zero-or-more devices and all
// rows written by them.
type Tenant struct {
	TenantID  string
	Name      string
	CreatedAt time.Time
}

// CreateTenant creates a tenant. Idempotent: creating an existing tenant
// id leaves the stored row untouched.
func (s *Store) CreateTenant(ctx context.Context, t *Tenant) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (tenant_id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (tenant_id) DO NOTHING
	`, t.TenantID, t.Name, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// GetTenant retrieves a tenant by id.
func (s *Store) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	t := &Tenant{}
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, name, created_at FROM tenants WHERE tenant_id = ?
	`, tenantID).Scan(&t.TenantID, &t.Name, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tenant: %w", err)
	}
	return t, nil
}

// TenantExists checks if a tenant exists.
func (s *Store) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tenants WHERE tenant_id = ?`, tenantID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
