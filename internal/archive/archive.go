// Package archive implements the retention/archival job.
//
// Run moves measurement rows older than the cutoff age out of the hot
// table in one logical operation and, when an export directory is
// configured, additionally writes the moved rows to a Parquet snapshot.
// The scheduler is external; this package exposes only the operation.
package archive

import (
	"context"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/logging"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

var log = logging.Component("archive")

// Service runs archival against the store.
type Service struct {
	store     *store.Store
	cutoffAge time.Duration
	exporter  *Exporter // nil when Parquet export is disabled

	now func() time.Time
}

// Options configures the archival service.
type Options struct {
	// CutoffAge is how old a row must be to be archived.
	CutoffAge time.Duration

	// ExportDir enables Parquet snapshot export when non-empty.
	ExportDir string
}

// New creates an archival service.
func New(st *store.Store, opts Options) *Service {
	s := &Service{
		store:     st,
		cutoffAge: opts.CutoffAge,
		now:       time.Now,
	}
	if opts.ExportDir != "" {
		s.exporter = NewExporter(opts.ExportDir, DefaultExportOptions())
	}
	return s
}

// Result describes one archival run.
type Result struct {
	Archived int64     `json:"archived"`
	Cutoff   time.Time `json:"cutoff"`
	RanAt    time.Time `json:"ran_at"`

	// ExportFile is the Parquet snapshot path, empty when export is
	// disabled or nothing was archived.
	ExportFile string `json:"export_file,omitempty"`
}

// Run archives all rows older than the configured cutoff age.
// Idempotent: a second run with nothing eligible returns a zero count.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	now := s.now().UTC()
	cutoff := now.Add(-s.cutoffAge)

	moved, err := s.store.ArchiveMeasurements(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Archived: moved,
		Cutoff:   cutoff,
		RanAt:    now,
	}

	if moved > 0 && s.exporter != nil {
		rows, err := s.store.ArchivedMeasurements(ctx, cutoff)
		if err != nil {
			// The archive move already committed; export is best-effort.
			log.Error("read archive for export", "error", err)
			return result, nil
		}
		file, err := s.exporter.Export(rows, cutoff)
		if err != nil {
			log.Error("parquet export", "error", err, "rows", len(rows))
			return result, nil
		}
		result.ExportFile = file
	}

	log.Info("archive run complete", "archived", moved, "cutoff", cutoff)
	return result, nil
}
