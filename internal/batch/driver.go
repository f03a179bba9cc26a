// Package batch scores a date range for a set of locations.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/demandpeaks/internal/config"
	"github.com/lox/demandpeaks/internal/forecast"
	"github.com/lox/demandpeaks/internal/index"
	"github.com/lox/demandpeaks/internal/metrics"
	"github.com/lox/demandpeaks/internal/models"
	"github.com/lox/demandpeaks/internal/score"
	"github.com/lox/demandpeaks/internal/sekki"
)

// Sink receives each record as soon as it is computed. Records written
// before a cancellation stay valid.
type Sink interface {
	Write(ctx context.Context, rec models.DemandScore) error
}

// Driver runs the composite calculator and forecaster over a date range.
// History is read-only for the whole run.
type Driver struct {
	Config  *config.Config
	Table   *sekki.Table
	History map[string][]models.SalesDay
	Sink    Sink
	Workers int
	Log     zerolog.Logger
}

// Result is the outcome of a run. Records are sorted by date, then location.
type Result struct {
	Records []models.DemandScore
	Skipped int
	// Locations whose index could not be built or whose run was aborted.
	Failed map[string]error
}

type locationRun struct {
	loc     config.Location
	days    []models.SalesDay
	actuals map[time.Time]models.SalesDay
	records []models.DemandScore
	skipped int
	err     error
}

// Run scores every location for every date in [start, end]. A location whose
// index cannot be built is skipped; a date that fails to score is logged and
// skipped. An UnsupportedYearError or a Sink failure aborts the whole run.
// The partial result is returned alongside any error.
func (d *Driver) Run(ctx context.Context, locations []string, start, end time.Time) (*Result, error) {
	began := time.Now()
	defer func() { metrics.BatchDuration.Observe(time.Since(began).Seconds()) }()

	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("batch: end %s before start %s", end.Format(models.DateLayout), start.Format(models.DateLayout))
	}
	table := d.Table
	if table == nil {
		table = sekki.DefaultTable()
	}
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{LookbackYears: config.DefaultLookbackYears}
	}

	locs := make([]config.Location, 0, len(locations))
	for _, id := range locations {
		loc, ok := cfg.Location(id)
		if !ok {
			loc = config.Location{ID: id, LookbackYears: cfg.LookbackYears}
		}
		if loc.LookbackYears < 1 {
			loc.LookbackYears = config.DefaultLookbackYears
		}
		locs = append(locs, loc)
	}

	specials, err := index.NewSpecialDays(cfg.Holidays, locs)
	if err != nil {
		return nil, fmt.Errorf("batch: special days: %w", err)
	}
	st, failed := index.Build(table, specials, d.History, locs)
	for _, id := range st.Locations() {
		li, err := st.Location(id)
		if err != nil {
			continue
		}
		ev := d.Log.Debug().Str("location", id).Int("operating_days", li.OperatingDays).Int("skipped_term_days", li.SkippedTermDays)
		for _, dim := range []index.Dimension{index.DimMonth, index.DimTerm, index.DimWeek, index.DimWeekday} {
			ev = ev.Int(dim.String()+"_unobserved", li.Layer(dim).Unobserved())
		}
		ev.Msg("batch: index built")
	}

	res := &Result{Failed: make(map[string]error)}
	var runs []*locationRun
	for _, loc := range locs {
		if err, ok := failed[loc.ID]; ok {
			d.Log.Error().Err(err).Str("location", loc.ID).Msg("batch: index build failed, skipping location")
			metrics.LocationsFailed.WithLabelValues(loc.ID).Inc()
			res.Failed[loc.ID] = err
			continue
		}
		runs = append(runs, newLocationRun(loc, d.History[loc.ID]))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		fatalOnce sync.Once
		fatal     error
	)
	abort := func(err error) {
		fatalOnce.Do(func() {
			fatal = err
			cancel()
		})
	}

	jobs := make(chan *locationRun)
	var wg sync.WaitGroup
	for i, n := 0, max(1, d.Workers); i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for run := range jobs {
				d.runLocation(ctx, st, run, start, end, abort)
			}
		}()
	}
	for _, run := range runs {
		jobs <- run
	}
	close(jobs)
	wg.Wait()

	for _, run := range runs {
		res.Records = append(res.Records, run.records...)
		res.Skipped += run.skipped
		if run.err != nil {
			res.Failed[run.loc.ID] = run.err
		}
	}
	sort.SliceStable(res.Records, func(i, j int) bool {
		a, b := res.Records[i], res.Records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.LocationID < b.LocationID
	})

	if fatal != nil {
		return res, fatal
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	d.Log.Info().
		Int("records", len(res.Records)).
		Int("skipped", res.Skipped).
		Int("failed_locations", len(res.Failed)).
		Dur("took", time.Since(began)).
		Msg("batch: run complete")
	return res, nil
}

func newLocationRun(loc config.Location, days []models.SalesDay) *locationRun {
	actuals := make(map[time.Time]models.SalesDay, len(days))
	for _, d := range days {
		actuals[truncateDay(d.Date)] = d
	}
	return &locationRun{loc: loc, days: days, actuals: actuals}
}

func (d *Driver) runLocation(ctx context.Context, st *index.Store, run *locationRun, start, end time.Time, abort func(error)) {
	log := d.Log.With().Str("location", run.loc.ID).Logger()
	fc := forecast.Forecaster{LookbackYears: run.loc.LookbackYears}

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			return
		}

		rec, err := score.Score(date, run.loc.ID, st, score.TrailingActuals(date, run.days, run.loc.LookbackYears))
		if err != nil {
			var yerr *sekki.UnsupportedYearError
			var lerr *index.UnknownLocationError
			switch {
			case errors.As(err, &yerr):
				log.Error().Err(err).Str("date", date.Format(models.DateLayout)).Msg("batch: solar-term table does not cover date, aborting run")
				abort(err)
				return
			case errors.As(err, &lerr):
				log.Error().Err(err).Msg("batch: location missing from index, aborting location")
				metrics.LocationsFailed.WithLabelValues(run.loc.ID).Inc()
				run.err = err
				return
			}
			log.Warn().Err(err).Str("date", date.Format(models.DateLayout)).Msg("batch: skipping date")
			metrics.DatesSkipped.WithLabelValues(run.loc.ID, "score_error").Inc()
			run.skipped++
			continue
		}

		f := fc.Forecast(date, run.days)
		rec.ForecastRevenue = f.Revenue
		rec.ForecastVisitors = f.Visitors
		if actual, ok := run.actuals[date]; ok {
			rec.ActualRevenue.Int64, rec.ActualRevenue.Valid = actual.Revenue, true
			rec.ActualVisitors.Int64, rec.ActualVisitors.Valid = actual.Visitors, true
		}

		if d.Sink != nil {
			if err := d.Sink.Write(ctx, rec); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Str("date", date.Format(models.DateLayout)).Msg("batch: checkpoint failed, aborting run")
				abort(fmt.Errorf("batch: checkpoint %s %s: %w", run.loc.ID, date.Format(models.DateLayout), err))
				return
			}
		}

		run.records = append(run.records, rec)
		metrics.RecordsScored.WithLabelValues(run.loc.ID).Inc()
		for _, flag := range rec.Flags {
			metrics.NeutralFallbacks.WithLabelValues(flag).Inc()
		}
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
