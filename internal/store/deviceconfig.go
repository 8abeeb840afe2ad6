// Package store - Device config operations
//
// One row per device. The config is replaced wholesale on save, never
// merged; the device reads it on its own poll cycle.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
)

// DeviceConfig is the desired probe behavior for a device.
type DeviceConfig struct {
	DeviceID        string
	IntervalSeconds int
	URLs            []string
	UpdatedAt       time.Time
}

// SaveDeviceConfig replaces a device's config wholesale as a single
// atomic upsert.
func (s *Store) SaveDeviceConfig(ctx context.Context, cfg *DeviceConfig) error {
	urlsJSON, err := json.Marshal(cfg.URLs)
	if err != nil {
		return fmt.Errorf("marshal urls: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_config (device_id, interval_seconds, urls, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			interval_seconds = EXCLUDED.interval_seconds,
			urls = EXCLUDED.urls,
			updated_at = EXCLUDED.updated_at
	`, cfg.DeviceID, cfg.IntervalSeconds, string(urlsJSON), now)
	if err != nil {
		return fmt.Errorf("upsert device config: %w", err)
	}

	cfg.UpdatedAt = now
	return nil
}

// GetDeviceConfig retrieves a device's config. Returns ErrConfigNotFound
// when the device has never been configured.
func (s *Store) GetDeviceConfig(ctx context.Context, deviceID string) (*DeviceConfig, error) {
	cfg := &DeviceConfig{DeviceID: deviceID}
	var urlsJSON string

	err := s.db.QueryRowContext(ctx, `
		SELECT interval_seconds, urls, updated_at
		FROM device_config WHERE device_id = ?
	`, deviceID).Scan(&cfg.IntervalSeconds, &urlsJSON, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query device config: %w", err)
	}

	if err := json.Unmarshal([]byte(urlsJSON), &cfg.URLs); err != nil {
		return nil, fmt.Errorf("unmarshal urls: %w", err)
	}
	return cfg, nil
}
