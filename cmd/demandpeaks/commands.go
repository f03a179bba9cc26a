package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/lox/demandpeaks/internal/batch"
	"github.com/lox/demandpeaks/internal/config"
	"github.com/lox/demandpeaks/internal/export"
	"github.com/lox/demandpeaks/internal/index"
	"github.com/lox/demandpeaks/internal/ingest"
	"github.com/lox/demandpeaks/internal/models"
	"github.com/lox/demandpeaks/internal/sekki"
)

type ImportCmd struct {
	Location string `required:"" short:"l" help:"Location ID the file belongs to."`
	File     string `required:"" short:"f" type:"existingfile" help:"CSV or XLSX sales file."`
	Sheet    string `help:"Worksheet name (default: first sheet)."`
}

func (c *ImportCmd) Run(app *App) error {
	cfg, err := app.loadConfig()
	if err != nil {
		return err
	}
	loc := locationSettings(cfg, c.Location)

	st, closeDB, err := app.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := st.UpsertLocation(models.Location{
		LocationID:    loc.ID,
		Name:          loc.Name,
		LookbackYears: loc.LookbackYears,
		Active:        true,
	}); err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}

	res, err := ingest.NewImporter(st, app.Log).ImportFile(app.Ctx, loc, c.File, c.Sheet)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d rows stored, %d rejected (%s)\n", loc.ID, res.Stored, len(res.Rejected), res.Layout)
	return nil
}

type ScoreCmd struct {
	Location []string      `short:"l" help:"Location IDs (default: every configured or active location)."`
	Start    string        `required:"" help:"First date (YYYY-MM-DD)."`
	End      string        `required:"" help:"Last date (YYYY-MM-DD), inclusive."`
	Out      string        `short:"o" help:"Output file (default: stdout)."`
	Format   export.Format `default:"csv" enum:"csv,json" help:"Output format (${enum})."`
	Workers  int           `default:"1" help:"Locations scored concurrently."`
	NoStore  bool          `help:"Do not checkpoint scores to the database."`
}

func (c *ScoreCmd) Run(app *App) error {
	start, err := parseDate(c.Start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := parseDate(c.End)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}

	cfg, err := app.loadConfig()
	if err != nil {
		return err
	}
	st, closeDB, err := app.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	locations := c.Location
	if len(locations) == 0 {
		locations = cfg.LocationIDs()
	}
	if len(locations) == 0 {
		active, err := st.GetActiveLocations()
		if err != nil {
			return err
		}
		for _, l := range active {
			locations = append(locations, l.LocationID)
		}
	}
	if len(locations) == 0 {
		return fmt.Errorf("no locations to score")
	}

	history, err := st.GetSalesHistory(locations)
	if err != nil {
		return err
	}

	driver := &batch.Driver{
		Config:  cfg,
		Table:   sekki.DefaultTable(),
		History: history,
		Workers: c.Workers,
		Log:     app.Log,
	}

	var run *models.ScoreRun
	if !c.NoStore {
		run, err = st.StartScoreRun(app.Ctx, start, end, locations)
		if err != nil {
			return fmt.Errorf("start score run: %w", err)
		}
		driver.Sink = batch.StoreSink{Store: st, RunID: run.ID}
		app.Log.Info().Str("run", run.ID).Strs("locations", locations).Msg("score: run started")
	}

	res, runErr := driver.Run(app.Ctx, locations, start, end)

	if run != nil {
		if res != nil {
			run.Records = len(res.Records)
			run.Skipped = res.Skipped
		}
		run.Success = runErr == nil
		if runErr != nil {
			run.ErrorMessage = sql.NullString{String: runErr.Error(), Valid: true}
		}
		// The run context may already be cancelled.
		if err := st.CompleteScoreRun(context.Background(), run); err != nil {
			app.Log.Error().Err(err).Str("run", run.ID).Msg("score: complete run")
		}
	}

	if res != nil {
		if err := c.write(res.Records); err != nil {
			return err
		}
	}
	return runErr
}

func (c *ScoreCmd) write(records []models.DemandScore) error {
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

type ExplainCmd struct {
	Location string `required:"" short:"l" help:"Location ID."`
	Date     string `required:"" help:"Date to explain (YYYY-MM-DD)."`
}

func (c *ExplainCmd) Run(app *App) error {
	date, err := parseDate(c.Date)
	if err != nil {
		return fmt.Errorf("--date: %w", err)
	}
	cfg, err := app.loadConfig()
	if err != nil {
		return err
	}
	st, closeDB, err := app.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	history, err := st.GetSalesHistory([]string{c.Location})
	if err != nil {
		return err
	}
	driver := &batch.Driver{Config: cfg, Table: sekki.DefaultTable(), History: history, Log: app.Log}
	res, err := driver.Run(app.Ctx, []string{c.Location}, date, date)
	if err != nil {
		return err
	}
	if ferr, ok := res.Failed[c.Location]; ok {
		return ferr
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("no score for %s on %s", c.Location, c.Date)
	}
	return explain(os.Stdout, res.Records[0])
}

func explain(out io.Writer, r models.DemandScore) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	term, _ := sekki.ByName(r.Term)

	fmt.Fprintf(w, "Location\t%s\n", r.LocationID)
	fmt.Fprintf(w, "Date\t%s (%s)\n", r.Date.Format(models.DateLayout), r.Date.Weekday())
	fmt.Fprintf(w, "Solar term\t%s %s, rank %d, %s (%.2f pts)\n", r.Term, term.Kanji, r.TermRank, r.Season, r.SeasonPoints)
	fmt.Fprintln(w, "\t")
	fmt.Fprintf(w, "Monthly index\t%.2f\n", r.MonthlyIndex)
	fmt.Fprintf(w, "Term index\t%.2f\n", r.TermIndex)
	fmt.Fprintf(w, "Week index\t%.2f\n", r.WeekIndex)
	fmt.Fprintf(w, "Weekday index\t%.2f\n", r.WeekdayIndex)
	if r.SpecialDayIndex.Valid {
		fmt.Fprintf(w, "Special day\t%.2f (%s)\n", r.SpecialDayIndex.Float64, r.SpecialDayName)
	} else {
		fmt.Fprintf(w, "Special day\t-\n")
	}
	fmt.Fprintf(w, "Seasonal composite\t%.2f\n", r.SeasonalComposite)
	fmt.Fprintf(w, "Weekday multiplier\tx%.2f\n", r.WeekdayMultiplier)
	fmt.Fprintf(w, "Final seasonal\t%.2f\n", r.FinalSeasonal)
	fmt.Fprintf(w, "Revenue factor\t%.2f\n", r.RevenueFactor)
	fmt.Fprintf(w, "Visitor factor\t%.2f\n", r.VisitorFactor)
	fmt.Fprintf(w, "Final score\t%.2f\n", r.FinalScore)
	fmt.Fprintf(w, "Staffing\tx%.1f\n", r.StaffingMultiplier)
	fmt.Fprintln(w, "\t")
	fmt.Fprintf(w, "Forecast\t%d revenue, %d visitors\n", r.ForecastRevenue, r.ForecastVisitors)
	if r.ActualRevenue.Valid {
		fmt.Fprintf(w, "Actual\t%d revenue, %d visitors\n", r.ActualRevenue.Int64, r.ActualVisitors.Int64)
	} else {
		fmt.Fprintf(w, "Actual\t-\n")
	}
	if len(r.Flags) > 0 {
		fmt.Fprintf(w, "Low confidence\t%s\n", strings.Join(r.Flags, ", "))
	}
	return w.Flush()
}

type TermsCmd struct {
	Year     int  `required:"" help:"Calendar year."`
	Holidays bool `help:"Also list the special-day overrides in effect."`
}

func (c *TermsCmd) Run(app *App) error {
	starts, err := sekki.DefaultTable().TermsForYear(c.Year)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTART\tTERM\t\tRANK\tSEASON\tPOINTS")
	for _, s := range starts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%.2f\n",
			s.Term.Ordinal, s.Start.Format(models.DateLayout), s.Term.Name, s.Term.Kanji,
			s.Term.Rank, s.Term.Season, s.Term.SeasonPoints)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if !c.Holidays {
		return nil
	}
	cfg, err := app.loadConfig()
	if err != nil {
		return err
	}
	fmt.Println()
	return listSpecialDays(os.Stdout, cfg)
}

// listSpecialDays prints the holiday table followed by each location's
// events, all in calendar order.
func listSpecialDays(out io.Writer, cfg *config.Config) error {
	holidays := cfg.Holidays
	if holidays == nil {
		holidays = index.DefaultHolidays
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tSCOPE\tSCORE\tNAME")
	for _, key := range config.SortedKeys(holidays) {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", key, "all", holidays[key].Score, holidays[key].Name)
	}
	for _, loc := range cfg.Locations {
		for _, key := range config.SortedKeys(loc.Events) {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", key, loc.ID, loc.Events[key].Score, loc.Events[key].Name)
		}
	}
	return w.Flush()
}

func locationSettings(cfg *config.Config, id string) config.Location {
	if loc, ok := cfg.Location(id); ok {
		return loc
	}
	return config.Location{ID: id, LookbackYears: cfg.LookbackYears}
}
