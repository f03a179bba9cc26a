package main

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/demandpeaks/internal/config"
	"github.com/lox/demandpeaks/internal/models"
	"github.com/lox/demandpeaks/internal/store"
)

func TestExplain(t *testing.T) {
	var buf bytes.Buffer
	err := explain(&buf, models.DemandScore{
		Date:               time.Date(2026, time.August, 13, 0, 0, 0, 0, time.UTC),
		LocationID:         "TV_TOWER",
		Term:               "risshu",
		TermRank:           3,
		Season:             "TOP",
		SeasonPoints:       4.65,
		SpecialDayIndex:    sql.NullFloat64{Float64: 5, Valid: true},
		SpecialDayName:     "Obon",
		WeekdayMultiplier:  1.4,
		FinalScore:         4.52,
		StaffingMultiplier: 1.6,
		ForecastRevenue:    180000,
		Flags:              []string{"week_unobserved"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "risshu 立秋, rank 3, TOP (4.65 pts)")
	assert.Contains(t, out, "5.00 (Obon)")
	assert.Contains(t, out, "x1.40")
	assert.Contains(t, out, "4.52")
	assert.Contains(t, out, "180000 revenue")
	assert.Contains(t, out, "week_unobserved")
	assert.Contains(t, out, "Thursday")
}

func TestLocationSettings(t *testing.T) {
	cfg := &config.Config{
		LookbackYears: 3,
		Locations:     []config.Location{{ID: "A", Name: "Alpha", LookbackYears: 1}},
	}
	assert.Equal(t, "Alpha", locationSettings(cfg, "A").Name)

	b := locationSettings(cfg, "B")
	assert.Equal(t, "B", b.ID)
	assert.Equal(t, 3, b.LookbackYears)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	app := &App{Globals: &Globals{Config: t.TempDir() + "/missing.yaml"}, Log: zerolog.Nop()}
	cfg, err := app.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultLookbackYears, cfg.LookbackYears)
	assert.Empty(t, cfg.Locations)
}

func TestStatus(t *testing.T) {
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := store.New(db, zerolog.Nop())
	require.NoError(t, st.Migrate())

	imp, err := st.StartImportRun("A", "broken.xlsx")
	require.NoError(t, err)
	imp.ErrorMessage = sql.NullString{String: "unknown layout", Valid: true}
	require.NoError(t, st.CompleteImportRun(imp))

	ctx := context.Background()
	run, err := st.StartScoreRun(ctx, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), []string{"A"})
	require.NoError(t, err)
	run.Records, run.Success = 30, true
	require.NoError(t, st.CompleteScoreRun(ctx, run))

	var buf bytes.Buffer
	require.NoError(t, status(&buf, st, run.ID, 5))
	out := buf.String()
	assert.Contains(t, out, "2026-06-01 to 2026-06-30")
	assert.Contains(t, out, "30 (0 skipped)")
	assert.Regexp(t, `Status\s+ok`, out)
	assert.Contains(t, out, "broken.xlsx: unknown layout")

	assert.Error(t, status(&bytes.Buffer{}, st, "missing", 5))
}

func TestListSpecialDays(t *testing.T) {
	cfg := &config.Config{
		Holidays: map[string]config.SpecialDay{
			"12-25": {Name: "Christmas", Score: 5},
			"01-01": {Name: "New Year's Day", Score: 4.5},
		},
		Locations: []config.Location{
			{ID: "TV_TOWER", Events: map[string]config.SpecialDay{"02-05": {Name: "Snow Festival", Score: 5}}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, listSpecialDays(&buf, cfg))
	out := buf.String()

	assert.Less(t, bytes.Index(buf.Bytes(), []byte("01-01")), bytes.Index(buf.Bytes(), []byte("12-25")))
	assert.Contains(t, out, "TV_TOWER")
	assert.Contains(t, out, "Snow Festival")
	assert.NotContains(t, out, "Obon", "configured holidays replace the defaults")
}
