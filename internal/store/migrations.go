package store

import (
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS locations (
    location_id TEXT PRIMARY KEY,
    name TEXT,
    lookback_years INTEGER NOT NULL DEFAULT 2,
    active BOOLEAN DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS sales_days (
    location_id TEXT NOT NULL,
    date TEXT NOT NULL,
    revenue INTEGER NOT NULL CHECK (revenue >= 0),
    visitors INTEGER NOT NULL CHECK (visitors >= 0),
    source TEXT,
    imported_at DATETIME,
    PRIMARY KEY (location_id, date)
);

CREATE TABLE IF NOT EXISTS demand_scores (
    location_id TEXT NOT NULL,
    date TEXT NOT NULL,
    run_id TEXT,
    term TEXT,
    term_rank INTEGER,
    season TEXT,
    season_points REAL,
    monthly_index REAL NOT NULL,
    term_index REAL NOT NULL,
    week_index REAL NOT NULL,
    weekday_index REAL,
    special_day_index REAL,
    special_day_name TEXT,
    seasonal_composite REAL NOT NULL,
    weekday_multiplier REAL NOT NULL,
    final_seasonal REAL NOT NULL,
    revenue_factor REAL NOT NULL,
    visitor_factor REAL NOT NULL,
    final_score REAL NOT NULL,
    staffing_multiplier REAL,
    forecast_revenue INTEGER,
    forecast_visitors INTEGER,
    actual_revenue INTEGER,
    actual_visitors INTEGER,
    fallbacks INTEGER DEFAULT 0,
    flags TEXT,
    computed_at DATETIME,
    PRIMARY KEY (location_id, date)
);

CREATE TABLE IF NOT EXISTS score_runs (
    id TEXT PRIMARY KEY,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    locations TEXT,
    records INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    success BOOLEAN DEFAULT FALSE,
    error_message TEXT
);
`,
	},
	{
		Version:     2,
		Description: "Import run auditing",
		SQL: `
CREATE TABLE IF NOT EXISTS import_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    location_id TEXT NOT NULL,
    file TEXT NOT NULL,
    layout TEXT,
    rows_parsed INTEGER DEFAULT 0,
    rows_stored INTEGER DEFAULT 0,
    rows_rejected INTEGER DEFAULT 0,
    success BOOLEAN DEFAULT FALSE,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_import_runs_started ON import_runs(started_at);
`,
	},
	{
		Version:     3,
		Description: "Score lookup indexes",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_demand_scores_run ON demand_scores(run_id);
CREATE INDEX IF NOT EXISTS idx_demand_scores_date ON demand_scores(date);
`,
	},
	{
		Version:     4,
		Description: "Archive imported source files",
		SQL: `
CREATE TABLE IF NOT EXISTS source_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    import_run_id INTEGER,
    imported_at DATETIME NOT NULL,
    location_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    content_compressed BLOB NOT NULL,
    content_hash TEXT NOT NULL UNIQUE,
    size_bytes INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_source_files_imported ON source_files(imported_at);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		s.log.Info().Int("version", m.Version).Str("description", m.Description).Msg("migrations: applying")

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		s.log.Debug().Int("version", m.Version).Msg("migrations: completed")
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
