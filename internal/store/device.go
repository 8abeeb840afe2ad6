// Package store - Device operations
//
// Devices move through three states: unregistered, registered(unclaimed),
// claimed. Registration is an idempotent upsert; claiming is a one-way
// transition; heartbeats merge monotonically (see Heartbeat).

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
)

// =============================================================================
// Device Types
// =============================================================================

// Device is the identity record for one probe appliance.
type Device struct {
	DeviceID      string
	Serial        string
	DeviceKeyHash string
	Name          string
	Hostname      string
	IP            string
	Mode          string
	ClaimCodeHash string
	TenantID      string // empty until claimed
	Claimed       bool
	ClaimedAt     *time.Time
	ClaimedBy     string
	LastSeen      time.Time
	CreatedAt     time.Time
}

// HeartbeatUpdate carries the optional fields a device reports on a
// liveness ping. Empty strings mean "not reported".
type HeartbeatUpdate struct {
	Hostname      string
	IP            string
	Mode          string
	ClaimCodeHash string
	Claimed       bool
	Now           time.Time
}

// =============================================================================
// Registration
// =============================================================================

// CreateDevice registers a new device. Idempotent upsert: if the device
// already exists its name and credential hash are refreshed, but
// claimed/tenant_id are never touched.
func (s *Store) CreateDevice(ctx context.Context, d *Device) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.LastSeen.IsZero() {
		d.LastSeen = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (device_id, serial, device_key_hash, name, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			device_key_hash = EXCLUDED.device_key_hash,
			name = EXCLUDED.name
	`, d.DeviceID, d.Serial, d.DeviceKeyHash, d.Name, d.LastSeen, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// =============================================================================
// Lookup
// =============================================================================

// GetDevice retrieves a device by id. Returns ErrDeviceNotFound if absent.
func (s *Store) GetDevice(ctx context.Context, deviceID string) (*Device, error) {
	return s.getDevice(ctx, `device_id = ?`, deviceID)
}

// GetDeviceBySerial retrieves a device by its claim serial.
func (s *Store) GetDeviceBySerial(ctx context.Context, serial string) (*Device, error) {
	return s.getDevice(ctx, `serial = ?`, serial)
}

func (s *Store) getDevice(ctx context.Context, where string, arg any) (*Device, error) {
	d := &Device{}
	var hostname, ip, mode, claimCode, tenantID, claimedBy sql.NullString
	var claimedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT device_id, serial, device_key_hash, name, hostname, ip, mode,
		       claim_code_hash, tenant_id, claimed, claimed_at, claimed_by,
		       last_seen, created_at
		FROM devices WHERE `+where, arg).Scan(
		&d.DeviceID, &d.Serial, &d.DeviceKeyHash, &d.Name, &hostname, &ip, &mode,
		&claimCode, &tenantID, &d.Claimed, &claimedAt, &claimedBy,
		&d.LastSeen, &d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query device: %w", err)
	}

	d.Hostname = hostname.String
	d.IP = ip.String
	d.Mode = mode.String
	d.ClaimCodeHash = claimCode.String
	d.TenantID = tenantID.String
	d.ClaimedBy = claimedBy.String
	if claimedAt.Valid {
		t := claimedAt.Time
		d.ClaimedAt = &t
	}
	return d, nil
}

// DeviceKeyHash returns the stored credential hash for a device, or
// ("", nil) when the device is unknown. Callers must treat unknown and
// mismatch identically to avoid existence leaks.
func (s *Store) DeviceKeyHash(ctx context.Context, deviceID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT device_key_hash FROM devices WHERE device_id = ?`, deviceID,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query device key hash: %w", err)
	}
	return hash, nil
}

// DeviceTenant returns the current tenant binding of a device. An
// unclaimed device yields an empty tenant id. Implements scope.TenantLookup.
func (s *Store) DeviceTenant(ctx context.Context, deviceID string) (string, error) {
	var tenantID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT tenant_id FROM devices WHERE device_id = ?`, deviceID,
	).Scan(&tenantID)
	if err == sql.ErrNoRows {
		return "", errors.ErrDeviceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query device tenant: %w", err)
	}
	return tenantID.String, nil
}

// ListDevices returns all devices bound to a tenant, most recently seen
// first.
func (s *Store) ListDevices(ctx context.Context, tenantID string) ([]*Device, error) {
	if tenantID == "" {
		return nil, errors.ErrScopeRequired
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, serial, device_key_hash, name, hostname, ip, mode,
		       claim_code_hash, tenant_id, claimed, claimed_at, claimed_by,
		       last_seen, created_at
		FROM devices WHERE tenant_id = ?
		ORDER BY last_seen DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		d := &Device{}
		var hostname, ip, mode, claimCode, tid, claimedBy sql.NullString
		var claimedAt sql.NullTime

		if err := rows.Scan(
			&d.DeviceID, &d.Serial, &d.DeviceKeyHash, &d.Name, &hostname, &ip, &mode,
			&claimCode, &tid, &d.Claimed, &claimedAt, &claimedBy,
			&d.LastSeen, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}

		d.Hostname = hostname.String
		d.IP = ip.String
		d.Mode = mode.String
		d.ClaimCodeHash = claimCode.String
		d.TenantID = tid.String
		d.ClaimedBy = claimedBy.String
		if claimedAt.Valid {
			t := claimedAt.Time
			d.ClaimedAt = &t
		}
		devices = append(devices, d)
	}

	return devices, rows.Err()
}

// =============================================================================
// Claim
// =============================================================================

// ClaimDevice binds a device to a tenant. The transition is one-way and
// expressed as a single conditional UPDATE so two concurrent claims
// cannot both win. Returns ErrAlreadyClaimed when the device is already
// bound and ErrDeviceNotFound when the serial is unknown.
func (s *Store) ClaimDevice(ctx context.Context, serial, tenantID, claimedBy string) (*Device, error) {
	if tenantID == "" {
		return nil, errors.ErrScopeRequired
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE devices SET
			claimed    = true,
			tenant_id  = ?,
			claimed_at = ?,
			claimed_by = ?
		WHERE serial = ? AND claimed = false
	`, tenantID, now, claimedBy, serial)
	if err != nil {
		return nil, fmt.Errorf("claim device: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim device rows: %w", err)
	}
	if affected == 0 {
		// Distinguish unknown serial from a lost race / repeat claim.
		if _, err := s.GetDeviceBySerial(ctx, serial); err != nil {
			return nil, err
		}
		return nil, errors.ErrAlreadyClaimed
	}

	return s.GetDeviceBySerial(ctx, serial)
}

// =============================================================================
// Heartbeat
// =============================================================================

// Heartbeat applies a liveness ping as one atomic UPDATE.
//
// Merge rules, safe under reordering and duplication:
//   - optional text fields: coalesce merge - an empty incoming value
//     never overwrites a stored one
//   - claimed: OR merge - stored OR incoming, so a device reporting
//     claimed=false can never un-claim itself
//   - last_seen: GREATEST, monotonic non-decreasing
//
// Returns ErrDeviceNotRegistered when no device row exists; heartbeats
// never create devices.
func (s *Store) Heartbeat(ctx context.Context, deviceID string, hb HeartbeatUpdate) error {
	now := hb.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE devices SET
			hostname        = COALESCE(NULLIF(?, ''), hostname),
			ip              = COALESCE(NULLIF(?, ''), ip),
			mode            = COALESCE(NULLIF(?, ''), mode),
			claim_code_hash = COALESCE(NULLIF(?, ''), claim_code_hash),
			claimed         = claimed OR ?,
			last_seen       = GREATEST(last_seen, ?)
		WHERE device_id = ?
	`, hb.Hostname, hb.IP, hb.Mode, hb.ClaimCodeHash, hb.Claimed, now, deviceID)
	if err != nil {
		return fmt.Errorf("heartbeat update: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("heartbeat rows: %w", err)
	}
	if affected == 0 {
		return errors.ErrDeviceNotRegistered
	}
	return nil
}
