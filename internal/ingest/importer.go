package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/lox/demandpeaks/internal/config"
	"github.com/lox/demandpeaks/internal/metrics"
	"github.com/lox/demandpeaks/internal/store"
)

// Importer loads sales spreadsheets into the store and audits each file in
// import_runs.
type Importer struct {
	store *store.Store
	log   zerolog.Logger
}

func NewImporter(st *store.Store, log zerolog.Logger) *Importer {
	return &Importer{store: st, log: log}
}

// ImportFile parses path for loc and stores the accepted rows. Rejected rows
// are logged and counted but do not fail the import.
func (im *Importer) ImportFile(ctx context.Context, loc config.Location, path, sheet string) (*Result, error) {
	run, err := im.store.StartImportRun(loc.ID, path)
	if err != nil {
		return nil, fmt.Errorf("start import run: %w", err)
	}

	res, err := im.importFile(ctx, run.ID, loc, path, sheet)
	if res != nil {
		run.Layout = sql.NullString{String: string(res.Layout), Valid: res.Layout != ""}
		run.RowsParsed = res.Parsed
		run.RowsStored = res.Stored
		run.RowsRejected = len(res.Rejected)
	}
	run.Success = err == nil
	if err != nil {
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	}
	if cerr := im.store.CompleteImportRun(run); cerr != nil {
		im.log.Error().Err(cerr).Int64("run", run.ID).Msg("ingest: complete import run")
	}
	return res, err
}

func (im *Importer) importFile(ctx context.Context, runID int64, loc config.Location, path, sheet string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := Decode(path, content, sheet)
	if err != nil {
		return nil, err
	}
	res, err := Parse(rows, loc.ID, loc.Excludes)
	if err != nil {
		return nil, err
	}

	dup, err := im.store.StoreSourceFile(runID, loc.ID, filepath.Base(path), content)
	if err != nil {
		return res, fmt.Errorf("archive source file: %w", err)
	}
	if dup {
		im.log.Info().Str("location", loc.ID).Str("file", path).Msg("ingest: identical file imported before, re-applying rows")
	}

	for _, r := range res.Rejected {
		im.log.Warn().
			Str("location", loc.ID).
			Str("file", path).
			Int("line", r.Line).
			Str("flags", FlagsToJSON(r.Flags)).
			Msg("ingest: rejected row")
		for _, f := range r.Flags {
			metrics.RowsRejected.WithLabelValues(string(res.Layout), f).Inc()
		}
	}

	stored, err := im.store.UpsertSalesDays(ctx, res.Days)
	if err != nil {
		return res, fmt.Errorf("store sales days: %w", err)
	}
	res.Stored = stored
	metrics.RowsImported.WithLabelValues(loc.ID, string(res.Layout)).Add(float64(stored))

	im.log.Info().
		Str("location", loc.ID).
		Str("layout", string(res.Layout)).
		Int("parsed", res.Parsed).
		Int("stored", stored).
		Int("rejected", len(res.Rejected)).
		Msg("ingest: imported")
	return res, nil
}
