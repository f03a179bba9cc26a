package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/lox/demandpeaks/internal/models"
)

type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

func New(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

// Open opens the SQLite database at path with WAL journaling and a busy
// timeout.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}

func (s *Store) UpsertLocation(l models.Location) error {
	_, err := s.db.Exec(`
		INSERT INTO locations (location_id, name, lookback_years, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(location_id) DO UPDATE SET
			name = excluded.name,
			lookback_years = excluded.lookback_years,
			active = excluded.active
	`, l.LocationID, l.Name, l.LookbackYears, l.Active)
	return err
}

func (s *Store) GetActiveLocations() ([]models.Location, error) {
	rows, err := s.db.Query(`SELECT location_id, name, lookback_years, active FROM locations WHERE active = TRUE ORDER BY location_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.LocationID, &l.Name, &l.LookbackYears, &l.Active); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// UpsertSalesDays writes days in one transaction, replacing any existing row
// for the same location and date. Lock contention is retried.
func (s *Store) UpsertSalesDays(ctx context.Context, days []models.SalesDay) (int, error) {
	stored := 0
	err := s.retry(ctx, func() error {
		stored = 0
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales_days (location_id, date, revenue, visitors, source, imported_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(location_id, date) DO UPDATE SET
				revenue = excluded.revenue,
				visitors = excluded.visitors,
				source = excluded.source,
				imported_at = excluded.imported_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, d := range days {
			if _, err := stmt.ExecContext(ctx, d.LocationID, d.Date.Format(models.DateLayout), d.Revenue, d.Visitors, d.Source, now); err != nil {
				return fmt.Errorf("upsert %s %s: %w", d.LocationID, d.Date.Format(models.DateLayout), err)
			}
			stored++
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// GetSalesSeries returns a location's history ordered by date.
func (s *Store) GetSalesSeries(locationID string) ([]models.SalesDay, error) {
	rows, err := s.db.Query(`
		SELECT location_id, date, revenue, visitors, source
		FROM sales_days
		WHERE location_id = ?
		ORDER BY date ASC
	`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []models.SalesDay
	for rows.Next() {
		var d models.SalesDay
		var date string
		if err := rows.Scan(&d.LocationID, &date, &d.Revenue, &d.Visitors, &d.Source); err != nil {
			return nil, err
		}
		if d.Date, err = time.Parse(models.DateLayout, date); err != nil {
			return nil, fmt.Errorf("sales_days %s: bad date %q: %w", locationID, date, err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// GetSalesHistory loads the series of every listed location.
func (s *Store) GetSalesHistory(locationIDs []string) (map[string][]models.SalesDay, error) {
	out := make(map[string][]models.SalesDay, len(locationIDs))
	for _, id := range locationIDs {
		days, err := s.GetSalesSeries(id)
		if err != nil {
			return nil, fmt.Errorf("load history %s: %w", id, err)
		}
		out[id] = days
	}
	return out, nil
}

// UpsertDemandScore stores one record under runID, replacing an earlier
// score for the same location and date.
func (s *Store) UpsertDemandScore(ctx context.Context, runID string, r models.DemandScore) error {
	return s.retry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO demand_scores (
				location_id, date, run_id, term, term_rank, season, season_points,
				monthly_index, term_index, week_index, weekday_index, special_day_index, special_day_name,
				seasonal_composite, weekday_multiplier, final_seasonal, revenue_factor, visitor_factor,
				final_score, staffing_multiplier, forecast_revenue, forecast_visitors,
				actual_revenue, actual_visitors, fallbacks, flags, computed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(location_id, date) DO UPDATE SET
				run_id = excluded.run_id,
				term = excluded.term,
				term_rank = excluded.term_rank,
				season = excluded.season,
				season_points = excluded.season_points,
				monthly_index = excluded.monthly_index,
				term_index = excluded.term_index,
				week_index = excluded.week_index,
				weekday_index = excluded.weekday_index,
				special_day_index = excluded.special_day_index,
				special_day_name = excluded.special_day_name,
				seasonal_composite = excluded.seasonal_composite,
				weekday_multiplier = excluded.weekday_multiplier,
				final_seasonal = excluded.final_seasonal,
				revenue_factor = excluded.revenue_factor,
				visitor_factor = excluded.visitor_factor,
				final_score = excluded.final_score,
				staffing_multiplier = excluded.staffing_multiplier,
				forecast_revenue = excluded.forecast_revenue,
				forecast_visitors = excluded.forecast_visitors,
				actual_revenue = excluded.actual_revenue,
				actual_visitors = excluded.actual_visitors,
				fallbacks = excluded.fallbacks,
				flags = excluded.flags,
				computed_at = excluded.computed_at
		`, r.LocationID, r.Date.Format(models.DateLayout), runID, r.Term, r.TermRank, r.Season, r.SeasonPoints,
			r.MonthlyIndex, r.TermIndex, r.WeekIndex, r.WeekdayIndex, r.SpecialDayIndex, r.SpecialDayName,
			r.SeasonalComposite, r.WeekdayMultiplier, r.FinalSeasonal, r.RevenueFactor, r.VisitorFactor,
			r.FinalScore, r.StaffingMultiplier, r.ForecastRevenue, r.ForecastVisitors,
			r.ActualRevenue, r.ActualVisitors, r.Fallbacks, strings.Join(r.Flags, ","), time.Now().UTC())
		return err
	})
}

// GetDemandScores returns stored records for a location within [start, end],
// ordered by date.
func (s *Store) GetDemandScores(locationID string, start, end time.Time) ([]models.DemandScore, error) {
	rows, err := s.db.Query(`
		SELECT location_id, date, term, term_rank, season, season_points,
			monthly_index, term_index, week_index, weekday_index, special_day_index, special_day_name,
			seasonal_composite, weekday_multiplier, final_seasonal, revenue_factor, visitor_factor,
			final_score, staffing_multiplier, forecast_revenue, forecast_visitors,
			actual_revenue, actual_visitors, fallbacks, flags
		FROM demand_scores
		WHERE location_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, locationID, start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DemandScore
	for rows.Next() {
		var r models.DemandScore
		var date, flags string
		if err := rows.Scan(&r.LocationID, &date, &r.Term, &r.TermRank, &r.Season, &r.SeasonPoints,
			&r.MonthlyIndex, &r.TermIndex, &r.WeekIndex, &r.WeekdayIndex, &r.SpecialDayIndex, &r.SpecialDayName,
			&r.SeasonalComposite, &r.WeekdayMultiplier, &r.FinalSeasonal, &r.RevenueFactor, &r.VisitorFactor,
			&r.FinalScore, &r.StaffingMultiplier, &r.ForecastRevenue, &r.ForecastVisitors,
			&r.ActualRevenue, &r.ActualVisitors, &r.Fallbacks, &flags); err != nil {
			return nil, err
		}
		if r.Date, err = time.Parse(models.DateLayout, date); err != nil {
			return nil, fmt.Errorf("demand_scores %s: bad date %q: %w", locationID, date, err)
		}
		if flags != "" {
			r.Flags = strings.Split(flags, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
