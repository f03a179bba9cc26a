package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/lox/demandpeaks/internal/export"
	"github.com/lox/demandpeaks/internal/models"
	"github.com/lox/demandpeaks/internal/store"
)

type ExportCmd struct {
	Location string        `required:"" short:"l" help:"Location ID."`
	Start    string        `required:"" help:"First date (YYYY-MM-DD)."`
	End      string        `required:"" help:"Last date (YYYY-MM-DD), inclusive."`
	Out      string        `short:"o" help:"Output file (default: stdout)."`
	Format   export.Format `default:"csv" enum:"csv,json" help:"Output format (${enum})."`
}

// Run re-exports stored scores without recomputing them.
func (c *ExportCmd) Run(app *App) error {
	start, err := parseDate(c.Start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := parseDate(c.End)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	st, closeDB, err := app.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := st.GetDemandScores(c.Location, start, end)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		app.Log.Warn().Str("location", c.Location).Msg("export: no stored scores in range")
	}

	var w io.Writer = os.Stdout
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.Write(w, c.Format, records)
}

type StatusCmd struct {
	RunID string `name:"run" help:"Show this score run."`
	Limit int    `default:"10" help:"Number of failed imports to list."`
}

func (c *StatusCmd) Run(app *App) error {
	st, closeDB, err := app.openStore()
	if err != nil {
		return err
	}
	defer closeDB()
	return status(os.Stdout, st, c.RunID, c.Limit)
}

func status(out io.Writer, st *store.Store, runID string, limit int) error {
	version, err := st.MigrationVersion()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Schema version\t%d\n", version)

	if runID != "" {
		run, err := st.GetScoreRun(runID)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("score run %s not found", runID)
		}
		fmt.Fprintf(w, "Run\t%s\n", run.ID)
		fmt.Fprintf(w, "Range\t%s to %s\n", run.StartDate.Format(models.DateLayout), run.EndDate.Format(models.DateLayout))
		fmt.Fprintf(w, "Locations\t%s\n", run.Locations)
		fmt.Fprintf(w, "Records\t%d (%d skipped)\n", run.Records, run.Skipped)
		switch {
		case !run.FinishedAt.Valid:
			fmt.Fprintf(w, "Status\trunning or interrupted\n")
		case run.Success:
			fmt.Fprintf(w, "Status\tok\n")
		default:
			fmt.Fprintf(w, "Status\tfailed: %s\n", run.ErrorMessage.String)
		}
	}

	failures, err := st.GetRecentImportErrors(limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Failed imports\t%d\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "  %s\t%s %s: %s\n", f.StartedAt.Format("2006-01-02 15:04"), f.LocationID, f.File, f.ErrorMessage.String)
	}
	return w.Flush()
}

type PruneCmd struct {
	Days int `default:"730" help:"Keep archived source files imported within this many days."`
}

func (c *PruneCmd) Run(app *App) error {
	if c.Days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	st, closeDB, err := app.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := st.CleanupOldSourceFiles(c.Days)
	if err != nil {
		return err
	}
	app.Log.Info().Int64("deleted", n).Int("days", c.Days).Msg("prune: removed archived source files")
	return nil
}

type RestoreCmd struct {
	Hash string `arg:"" help:"SHA-256 of the archived file."`
	Out  string `required:"" short:"o" help:"Where to write the file."`
}

func (c *RestoreCmd) Run(app *App) error {
	st, closeDB, err := app.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	entry, err := st.GetSourceFileByHash(c.Hash)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no archived file with hash %s", c.Hash)
	}
	content, err := st.GetSourceFile(c.Hash)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Out, content, 0o644); err != nil {
		return err
	}
	app.Log.Info().Str("file", entry.FileName).Str("location", entry.LocationID).Str("out", c.Out).Msg("restore: wrote archived file")
	return nil
}
