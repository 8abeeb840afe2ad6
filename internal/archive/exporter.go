// Package archive - Parquet snapshot export
//
// Archived measurements can be written to zstd-compressed Parquet files
// for offline analysis. Files are named by the archival cutoff time and
// written atomically (temp file + rename).

package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

// ExportOptions configures the Parquet writer.
type ExportOptions struct {
	// Compression algorithm.
	Compression CompressionType

	// RowGroupSize is the target number of rows per row group.
	RowGroupSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
)

// DefaultExportOptions returns the default Parquet options.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Compression:  CompressionZstd,
		RowGroupSize: 100000,
	}
}

func codec(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	default:
		return &parquet.Uncompressed
	}
}

// MeasurementRow is a measurement in Parquet format.
type MeasurementRow struct {
	ID          int64    `parquet:"id"`
	DeviceID    string   `parquet:"device_id,zstd"`
	TenantID    string   `parquet:"tenant_id,zstd"`
	TimestampMs int64    `parquet:"timestamp_ms"`
	URL         string   `parquet:"url,zstd"`
	LatencyMs   *float64 `parquet:"latency_ms,optional"`
	DNSMs       *float64 `parquet:"dns_ms,optional"`
	Error       *string  `parquet:"error,optional,zstd"`
	Success     bool     `parquet:"success"`
}

// ToRow converts a Measurement to its Parquet representation.
func ToRow(m *store.Measurement) MeasurementRow {
	return MeasurementRow{
		ID:          m.ID,
		DeviceID:    m.DeviceID,
		TenantID:    m.TenantID,
		TimestampMs: m.Timestamp.UnixMilli(),
		URL:         m.URL,
		LatencyMs:   m.LatencyMs,
		DNSMs:       m.DNSMs,
		Error:       m.Error,
		Success:     m.Success,
	}
}

// Exporter writes archived measurements to Parquet snapshot files.
type Exporter struct {
	dir  string
	opts ExportOptions
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir string, opts ExportOptions) *Exporter {
	return &Exporter{dir: dir, opts: opts}
}

// Export writes the given rows to a snapshot file named by the cutoff
// time and returns its path. An empty row set writes nothing.
func (e *Exporter) Export(rows []*store.Measurement, cutoff time.Time) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	name := fmt.Sprintf("measurements-%s.parquet", cutoff.UTC().Format("20060102T150405Z"))
	path := filepath.Join(e.dir, name)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}

	writer := parquet.NewGenericWriter[MeasurementRow](f,
		parquet.Compression(codec(e.opts.Compression)),
		parquet.MaxRowsPerRowGroup(int64(e.opts.RowGroupSize)),
	)

	records := make([]MeasurementRow, len(rows))
	for i, m := range rows {
		records[i] = ToRow(m)
	}

	if _, err := writer.Write(records); err != nil {
		writer.Close()
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("close parquet writer: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close export file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename export file: %w", err)
	}
	return path, nil
}
