// Package store - Archival operations
//
// ArchiveMeasurements moves rows older than a cutoff from the hot table
// into the structurally identical archive table in one transaction: at
// no observation point is a row visible in neither store, or in both.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ArchiveMeasurements moves all measurement rows with ts_utc < cutoff
// into measurements_archive and returns the number moved. Running it
// with nothing eligible is a no-op returning zero.
func (s *Store) ArchiveMeasurements(ctx context.Context, cutoff time.Time) (int64, error) {
	var moved int64

	err := s.TransactionContext(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO measurements_archive
			SELECT id, device_id, tenant_id, ts_utc, url, latency_ms, dns_ms, error, success
			FROM measurements
			WHERE ts_utc < ?
		`, cutoff)
		if err != nil {
			return fmt.Errorf("copy to archive: %w", err)
		}

		moved, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("archive rows: %w", err)
		}
		if moved == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM measurements WHERE ts_utc < ?
		`, cutoff); err != nil {
			return fmt.Errorf("delete archived rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return moved, nil
}

// ArchivedMeasurements reads rows from the archive table older than the
// given cutoff, ascending by time. Used by the Parquet exporter and by
// the archival round-trip tests.
func (s *Store) ArchivedMeasurements(ctx context.Context, cutoff time.Time) ([]*Measurement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, tenant_id, ts_utc, url, latency_ms, dns_ms, error, success
		FROM measurements_archive
		WHERE ts_utc < ?
		ORDER BY ts_utc ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	return scanMeasurements(rows)
}

// CountArchivedMeasurements returns the total archive row count.
func (s *Store) CountArchivedMeasurements(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM measurements_archive`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count archive: %w", err)
	}
	return count, nil
}
