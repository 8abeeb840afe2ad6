// Package store - Schema definition
//
// All tables are created idempotently at startup. The archive table is
// declared with the exact column list of the hot measurements table so
// archived rows round-trip without loss.

package store

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		tenant_id  VARCHAR PRIMARY KEY,
		name       VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS devices (
		device_id       VARCHAR PRIMARY KEY,
		serial          VARCHAR NOT NULL,
		device_key_hash VARCHAR NOT NULL,
		name            VARCHAR NOT NULL,
		hostname        VARCHAR,
		ip              VARCHAR,
		mode            VARCHAR,
		claim_code_hash VARCHAR,
		tenant_id       VARCHAR,
		claimed         BOOLEAN NOT NULL DEFAULT false,
		claimed_at      TIMESTAMP,
		claimed_by      VARCHAR,
		last_seen       TIMESTAMP NOT NULL,
		created_at      TIMESTAMP NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_devices_serial ON devices (serial)`,

	`CREATE TABLE IF NOT EXISTS device_config (
		device_id        VARCHAR PRIMARY KEY,
		interval_seconds INTEGER NOT NULL,
		urls             VARCHAR NOT NULL,
		updated_at       TIMESTAMP NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_measurement_id`,

	`CREATE TABLE IF NOT EXISTS measurements (
		id         BIGINT PRIMARY KEY DEFAULT nextval('seq_measurement_id'),
		device_id  VARCHAR NOT NULL,
		tenant_id  VARCHAR NOT NULL,
		ts_utc     TIMESTAMP NOT NULL,
		url        VARCHAR NOT NULL,
		latency_ms DOUBLE,
		dns_ms     DOUBLE,
		error      VARCHAR,
		success    BOOLEAN NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_measurements_device_ts
		ON measurements (tenant_id, device_id, ts_utc)`,

	`CREATE TABLE IF NOT EXISTS measurements_archive (
		id         BIGINT PRIMARY KEY,
		device_id  VARCHAR NOT NULL,
		tenant_id  VARCHAR NOT NULL,
		ts_utc     TIMESTAMP NOT NULL,
		url        VARCHAR NOT NULL,
		latency_ms DOUBLE,
		dns_ms     DOUBLE,
		error      VARCHAR,
		success    BOOLEAN NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_route_trace_id`,

	`CREATE TABLE IF NOT EXISTS route_traces (
		id         BIGINT PRIMARY KEY DEFAULT nextval('seq_route_trace_id'),
		device_id  VARCHAR NOT NULL,
		tenant_id  VARCHAR NOT NULL,
		ts_utc     TIMESTAMP NOT NULL,
		target     VARCHAR NOT NULL,
		dest_ip    VARCHAR,
		hop_count  INTEGER NOT NULL,
		total_hops INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS route_hops (
		trace_id  BIGINT NOT NULL,
		hop_num   INTEGER NOT NULL,
		ip        VARCHAR,
		hostname  VARCHAR,
		rtt_ms    DOUBLE,
		timeout   BOOLEAN NOT NULL DEFAULT false,
		org       VARCHAR,
		isp       VARCHAR,
		asn       VARCHAR,
		country   VARCHAR,
		city      VARCHAR,
		PRIMARY KEY (trace_id, hop_num)
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_speed_result_id`,

	`CREATE TABLE IF NOT EXISTS speed_results (
		id            BIGINT PRIMARY KEY DEFAULT nextval('seq_speed_result_id'),
		device_id     VARCHAR NOT NULL,
		tenant_id     VARCHAR NOT NULL,
		ts_utc        TIMESTAMP NOT NULL,
		region        VARCHAR,
		download_mbps DOUBLE,
		upload_mbps   DOUBLE,
		ping_ms       DOUBLE,
		jitter_ms     DOUBLE,
		error         VARCHAR
	)`,
}

// initSchema creates all tables, sequences, and indexes if absent.
func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
