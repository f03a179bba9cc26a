package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lox/demandpeaks/internal/models"
)

// StartScoreRun records the start of a batch scoring run under a new UUID.
func (s *Store) StartScoreRun(ctx context.Context, start, end time.Time, locations []string) (*models.ScoreRun, error) {
	run := &models.ScoreRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		StartDate: start,
		EndDate:   end,
		Locations: strings.Join(locations, ","),
	}
	err := s.retry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO score_runs (id, started_at, start_date, end_date, locations, success)
			VALUES (?, ?, ?, ?, ?, FALSE)
		`, run.ID, run.StartedAt, start.Format(models.DateLayout), end.Format(models.DateLayout), run.Locations)
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteScoreRun updates the run with its results.
func (s *Store) CompleteScoreRun(ctx context.Context, run *models.ScoreRun) error {
	if run == nil {
		return nil
	}
	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	return s.retry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE score_runs SET
				finished_at = ?,
				records = ?,
				skipped = ?,
				success = ?,
				error_message = ?
			WHERE id = ?
		`, run.FinishedAt, run.Records, run.Skipped, run.Success, run.ErrorMessage, run.ID)
		return err
	})
}

func (s *Store) GetScoreRun(id string) (*models.ScoreRun, error) {
	var run models.ScoreRun
	var start, end string
	err := s.db.QueryRow(`
		SELECT id, started_at, finished_at, start_date, end_date, locations, records, skipped, success, error_message
		FROM score_runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &start, &end, &run.Locations,
		&run.Records, &run.Skipped, &run.Success, &run.ErrorMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if run.StartDate, err = time.Parse(models.DateLayout, start); err != nil {
		return nil, err
	}
	if run.EndDate, err = time.Parse(models.DateLayout, end); err != nil {
		return nil, err
	}
	return &run, nil
}

// StartImportRun creates a new import run record and returns it.
func (s *Store) StartImportRun(locationID, file string) (*models.ImportRun, error) {
	run := &models.ImportRun{
		StartedAt:  time.Now().UTC(),
		LocationID: locationID,
		File:       file,
	}

	result, err := s.db.Exec(`
		INSERT INTO import_runs (started_at, location_id, file, success)
		VALUES (?, ?, ?, FALSE)
	`, run.StartedAt, run.LocationID, run.File)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return run, nil
}

// CompleteImportRun updates the import run with results.
func (s *Store) CompleteImportRun(run *models.ImportRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE import_runs SET
			finished_at = ?,
			layout = ?,
			rows_parsed = ?,
			rows_stored = ?,
			rows_rejected = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.Layout, run.RowsParsed, run.RowsStored, run.RowsRejected,
		run.Success, run.ErrorMessage, run.ID)
	return err
}

// GetRecentImportErrors returns recent failed import runs.
func (s *Store) GetRecentImportErrors(limit int) ([]models.ImportRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, location_id, file, layout,
			   rows_parsed, rows_stored, rows_rejected, success, error_message
		FROM import_runs
		WHERE success = FALSE
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.ImportRun
	for rows.Next() {
		var r models.ImportRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.LocationID, &r.File, &r.Layout,
			&r.RowsParsed, &r.RowsStored, &r.RowsRejected, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
