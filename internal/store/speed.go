// Package store - Speed test result operations

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/scope"
)

// SpeedResult is one bandwidth test run. Immutable, append-only.
type SpeedResult struct {
	ID           int64
	DeviceID     string
	TenantID     string
	Timestamp    time.Time
	Region       string
	DownloadMbps *float64
	UploadMbps   *float64
	PingMs       *float64
	JitterMs     *float64
	Error        *string
}

// InsertSpeedResult appends one speed test result under the given scope.
func (s *Store) InsertSpeedResult(ctx context.Context, sc scope.Scope, r *SpeedResult) (int64, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	r.TenantID = sc.TenantID

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO speed_results (device_id, tenant_id, ts_utc, region,
		                           download_mbps, upload_mbps, ping_ms, jitter_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, r.DeviceID, r.TenantID, r.Timestamp, r.Region,
		r.DownloadMbps, r.UploadMbps, r.PingMs, r.JitterMs, r.Error).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert speed result: %w", err)
	}

	r.ID = id
	return id, nil
}

// RecentSpeedResults returns the newest speed results for a device
// within the scope.
func (s *Store) RecentSpeedResults(ctx context.Context, sc scope.Scope, deviceID string, limit int) ([]*SpeedResult, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, tenant_id, ts_utc, region,
		       download_mbps, upload_mbps, ping_ms, jitter_ms, error
		FROM speed_results
		WHERE tenant_id = ? AND device_id = ?
		ORDER BY ts_utc DESC
		LIMIT ?
	`, sc.TenantID, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query speed results: %w", err)
	}
	defer rows.Close()

	var results []*SpeedResult
	for rows.Next() {
		r := &SpeedResult{}
		var region sql.NullString
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.TenantID, &r.Timestamp, &region,
			&r.DownloadMbps, &r.UploadMbps, &r.PingMs, &r.JitterMs, &r.Error); err != nil {
			return nil, fmt.Errorf("scan speed result: %w", err)
		}
		r.Region = region.String
		results = append(results, r)
	}
	return results, rows.Err()
}
