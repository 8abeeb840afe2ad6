// Package store - Route trace operations
//
// A trace owns its ordered hops: both are written in one transaction and
// hops are never created independently.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/scope"
)

// RouteTrace is one traceroute run.
type RouteTrace struct {
	ID                int64
	DeviceID          string
	TenantID          string
	Timestamp         time.Time
	Target            string
	DestIP            string
	RespondingHops    int
	TotalHops         int
	Hops              []RouteHop
}

// RouteHop is one hop of a trace.
type RouteHop struct {
	HopNum   int
	IP       string
	Hostname string
	RTTMs    *float64
	Timeout  bool
	Org      string
	ISP      string
	ASN      string
	Country  string
	City     string
}

// InsertRouteTrace writes a trace and all of its hops in one transaction
// and returns the trace id.
func (s *Store) InsertRouteTrace(ctx context.Context, sc scope.Scope, trace *RouteTrace) (int64, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	trace.TenantID = sc.TenantID

	var traceID int64
	err := s.TransactionContext(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO route_traces (device_id, tenant_id, ts_utc, target, dest_ip, hop_count, total_hops)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`, trace.DeviceID, trace.TenantID, trace.Timestamp, trace.Target,
			trace.DestIP, trace.RespondingHops, trace.TotalHops).Scan(&traceID)
		if err != nil {
			return fmt.Errorf("insert trace: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO route_hops (trace_id, hop_num, ip, hostname, rtt_ms, timeout,
			                        org, isp, asn, country, city)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare hop: %w", err)
		}
		defer stmt.Close()

		for _, hop := range trace.Hops {
			if _, err := stmt.ExecContext(ctx,
				traceID, hop.HopNum, hop.IP, hop.Hostname, hop.RTTMs, hop.Timeout,
				hop.Org, hop.ISP, hop.ASN, hop.Country, hop.City); err != nil {
				return fmt.Errorf("insert hop %d: %w", hop.HopNum, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	trace.ID = traceID
	return traceID, nil
}

// RecentRouteTraces returns the newest traces for a device within the
// scope, hops included, newest first.
func (s *Store) RecentRouteTraces(ctx context.Context, sc scope.Scope, deviceID string, limit int) ([]*RouteTrace, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, tenant_id, ts_utc, target, dest_ip, hop_count, total_hops
		FROM route_traces
		WHERE tenant_id = ? AND device_id = ?
		ORDER BY ts_utc DESC
		LIMIT ?
	`, sc.TenantID, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	var traces []*RouteTrace
	for rows.Next() {
		t := &RouteTrace{}
		var destIP sql.NullString
		if err := rows.Scan(&t.ID, &t.DeviceID, &t.TenantID, &t.Timestamp,
			&t.Target, &destIP, &t.RespondingHops, &t.TotalHops); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		t.DestIP = destIP.String
		traces = append(traces, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range traces {
		hops, err := s.traceHops(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Hops = hops
	}
	return traces, nil
}

func (s *Store) traceHops(ctx context.Context, traceID int64) ([]RouteHop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hop_num, ip, hostname, rtt_ms, timeout, org, isp, asn, country, city
		FROM route_hops
		WHERE trace_id = ?
		ORDER BY hop_num ASC
	`, traceID)
	if err != nil {
		return nil, fmt.Errorf("query hops: %w", err)
	}
	defer rows.Close()

	var hops []RouteHop
	for rows.Next() {
		var h RouteHop
		var ip, hostname, org, isp, asn, country, city sql.NullString
		if err := rows.Scan(&h.HopNum, &ip, &hostname, &h.RTTMs, &h.Timeout,
			&org, &isp, &asn, &country, &city); err != nil {
			return nil, fmt.Errorf("scan hop: %w", err)
		}
		h.IP = ip.String
		h.Hostname = hostname.String
		h.Org = org.String
		h.ISP = isp.String
		h.ASN = asn.String
		h.Country = country.String
		h.City = city.String
		hops = append(hops, h)
	}
	return hops, rows.Err()
}
