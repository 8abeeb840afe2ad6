// Package device implements the device lifecycle state machine:
// unregistered -> registered(unclaimed) -> claimed.
//
// Registration and heartbeat are distinct lifecycle events: a heartbeat
// against an unregistered device id fails with ErrDeviceNotRegistered
// rather than silently creating a row.
package device

import (
	"context"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/credential"
	"github.com/MDValleLogic/netrunner-dashboard/internal/logging"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

var log = logging.Component("device")

// Service drives device lifecycle transitions against the store.
type Service struct {
	store *store.Store

	// defaultIntervalSec seeds the probe config of freshly registered
	// devices.
	defaultIntervalSec int
}

// New creates a device service.
func New(st *store.Store, defaultIntervalSec int) *Service {
	return &Service{
		store:              st,
		defaultIntervalSec: defaultIntervalSec,
	}
}

// Registration is returned to the registering caller exactly once; the
// raw secret is never persisted or logged.
type Registration struct {
	DeviceID     string
	Serial       string
	DeviceSecret string
}

// Register issues a new device identity, persists its hashed credential,
// and seeds an empty probe config. Safe to repeat: a replayed device id
// refreshes name and hash but never touches claim state.
func (s *Service) Register(ctx context.Context, name string) (*Registration, error) {
	if name == "" {
		name = "NetRunner"
	}

	issued, err := credential.Issue()
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateDevice(ctx, &store.Device{
		DeviceID:      issued.DeviceID,
		Serial:        issued.Serial,
		DeviceKeyHash: issued.KeyHash,
		Name:          name,
	}); err != nil {
		return nil, err
	}

	if err := s.store.SaveDeviceConfig(ctx, &store.DeviceConfig{
		DeviceID:        issued.DeviceID,
		IntervalSeconds: s.defaultIntervalSec,
		URLs:            []string{},
	}); err != nil {
		return nil, err
	}

	log.Info("device registered", "device_id", issued.DeviceID, "serial", issued.Serial)

	return &Registration{
		DeviceID:     issued.DeviceID,
		Serial:       issued.Serial,
		DeviceSecret: issued.RawSecret,
	}, nil
}

// Claim binds the device with the given serial to a tenant. One-way:
// repeating the claim yields ErrAlreadyClaimed, an unknown serial
// ErrDeviceNotFound.
func (s *Service) Claim(ctx context.Context, serial, tenantID, claimedBy string) (*store.Device, error) {
	d, err := s.store.ClaimDevice(ctx, serial, tenantID, claimedBy)
	if err != nil {
		return nil, err
	}

	log.Info("device claimed", "device_id", d.DeviceID, "tenant_id", tenantID)
	return d, nil
}

// Heartbeat applies a liveness ping. The merge is commutative and
// idempotent (coalesce for optional fields, OR for claimed, GREATEST for
// last_seen) so replays and reordering are harmless.
func (s *Service) Heartbeat(ctx context.Context, deviceID string, hb store.HeartbeatUpdate) error {
	if hb.Now.IsZero() {
		hb.Now = time.Now().UTC()
	}
	return s.store.Heartbeat(ctx, deviceID, hb)
}

// Online reports device liveness against a cutoff age.
func Online(d *store.Device, offlineAfter time.Duration, now time.Time) bool {
	return now.Sub(d.LastSeen) <= offlineAfter
}
