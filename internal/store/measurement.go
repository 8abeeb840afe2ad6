// Package store - Measurement operations
//
// Measurements are append-only and immutable. Every method here takes a
// resolved tenant scope; the tenant predicate is bound into the same
// statement as the query it protects, so a row written for tenant A can
// never surface in a query scoped to tenant B.

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/scope"
)

// Measurement is one probe result.
type Measurement struct {
	ID        int64
	DeviceID  string
	TenantID  string // denormalized from the device at write time
	Timestamp time.Time
	URL       string
	LatencyMs *float64
	DNSMs     *float64
	Error     *string
	Success   bool
}

// InsertMeasurement appends one measurement under the given scope and
// returns the assigned row id.
func (s *Store) InsertMeasurement(ctx context.Context, sc scope.Scope, m *Measurement) (int64, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	m.TenantID = sc.TenantID

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO measurements (device_id, tenant_id, ts_utc, url, latency_ms, dns_ms, error, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, m.DeviceID, m.TenantID, m.Timestamp, m.URL, m.LatencyMs, m.DNSMs, m.Error, m.Success).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert measurement: %w", err)
	}

	m.ID = id
	return id, nil
}

// RecentMeasurements returns the most recent rows for a device within
// the scope, newest first.
func (s *Store) RecentMeasurements(ctx context.Context, sc scope.Scope, deviceID string, limit int) ([]*Measurement, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, tenant_id, ts_utc, url, latency_ms, dns_ms, error, success
		FROM measurements
		WHERE tenant_id = ? AND device_id = ?
		ORDER BY ts_utc DESC
		LIMIT ?
	`, sc.TenantID, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent measurements: %w", err)
	}
	defer rows.Close()

	return scanMeasurements(rows)
}

// MeasurementsInWindow returns raw rows for a device within
// [since, until], optionally filtered to a URL set, in ascending time
// order. The aggregation engine buckets the result.
func (s *Store) MeasurementsInWindow(ctx context.Context, sc scope.Scope, deviceID string, since, until time.Time, urls []string) ([]*Measurement, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, device_id, tenant_id, ts_utc, url, latency_ms, dns_ms, error, success
		FROM measurements
		WHERE tenant_id = ? AND device_id = ? AND ts_utc >= ? AND ts_utc <= ?`
	args := []any{sc.TenantID, deviceID, since, until}

	if len(urls) > 0 {
		query += ` AND url IN (` + placeholders(len(urls)) + `)`
		for _, u := range urls {
			args = append(args, u)
		}
	}
	query += ` ORDER BY ts_utc ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query measurement window: %w", err)
	}
	defer rows.Close()

	return scanMeasurements(rows)
}

// TopURLs ranks a device's URLs by raw sample count within the window,
// descending, ties broken by lexical URL order, limited to n.
func (s *Store) TopURLs(ctx context.Context, sc scope.Scope, deviceID string, since, until time.Time, n int) ([]string, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT url, COUNT(*) AS n
		FROM measurements
		WHERE tenant_id = ? AND device_id = ? AND ts_utc >= ? AND ts_utc <= ?
		GROUP BY url
		ORDER BY n DESC, url ASC
		LIMIT ?
	`, sc.TenantID, deviceID, since, until, n)
	if err != nil {
		return nil, fmt.Errorf("query top urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		var count int64
		if err := rows.Scan(&url, &count); err != nil {
			return nil, fmt.Errorf("scan top url: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// CountMeasurements returns the number of hot rows in the scope (used by
// tests and the operator CLI).
func (s *Store) CountMeasurements(ctx context.Context, sc scope.Scope, deviceID string) (int64, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM measurements WHERE tenant_id = ? AND device_id = ?
	`, sc.TenantID, deviceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count measurements: %w", err)
	}
	return count, nil
}

// scanMeasurements drains a measurement result set into typed rows.
// This is the single seam for driver-row conversion.
func scanMeasurements(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]*Measurement, error) {
	var out []*Measurement
	for rows.Next() {
		m := &Measurement{}
		if err := rows.Scan(
			&m.ID, &m.DeviceID, &m.TenantID, &m.Timestamp, &m.URL,
			&m.LatencyMs, &m.DNSMs, &m.Error, &m.Success,
		); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// placeholders returns n comma-joined '?' markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
