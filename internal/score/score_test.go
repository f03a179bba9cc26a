package score

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/demandpeaks/internal/config"
	"github.com/lox/demandpeaks/internal/index"
	"github.com/lox/demandpeaks/internal/models"
	"github.com/lox/demandpeaks/internal/sekki"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func history(loc string, start, end time.Time, fn func(time.Time) int64) []models.SalesDay {
	var days []models.SalesDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		rev := fn(d)
		days = append(days, models.SalesDay{LocationID: loc, Date: d, Revenue: rev, Visitors: rev / 100})
	}
	return days
}

func flat(time.Time) int64 { return 10000 }

func buildStore(t *testing.T, specials *index.SpecialDays, days []models.SalesDay, loc config.Location) *index.Store {
	t.Helper()
	st, failed := index.Build(sekki.DefaultTable(), specials, map[string][]models.SalesDay{loc.ID: days}, []config.Location{loc})
	require.Empty(t, failed)
	return st
}

func TestModulate(t *testing.T) {
	tests := []struct {
		name       string
		composite  float64
		multiplier float64
		want       float64
	}{
		{"weekend surge", 3.00, 1.30, 3.90},
		{"neutral", 3.00, 1.00, 3.00},
		{"clamped high", 4.50, 1.40, 5.00},
		{"clamped low", 1.20, 0.60, 1.00},
		{"quiet weekday", 3.50, 0.88, 3.08},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Modulate(tt.composite, tt.multiplier))
		})
	}
}

func TestStaffingMultiplier(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{1.00, 0.7},
		{1.99, 0.7},
		{2.00, 1.0},
		{3.00, 1.3},
		{3.99, 1.3},
		{4.00, 1.6},
		{5.00, 1.6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StaffingMultiplier(tt.score), "score %.2f", tt.score)
	}
}

func TestScore_FlatHistoryIsNeutral(t *testing.T) {
	days := history("A", date(2024, time.January, 6), date(2025, time.December, 31), flat)
	st := buildStore(t, nil, days, config.Location{ID: "A"})

	target := date(2026, time.June, 10)
	rec, err := Score(target, "A", st, TrailingActuals(target, days, 2))
	require.NoError(t, err)

	assert.Equal(t, "A", rec.LocationID)
	assert.Equal(t, 3.00, rec.MonthlyIndex)
	assert.Equal(t, 3.00, rec.TermIndex)
	assert.Equal(t, 3.00, rec.WeekIndex)
	assert.False(t, rec.SpecialDayIndex.Valid)
	assert.Equal(t, 3.00, rec.SeasonalComposite)
	assert.Equal(t, 1.00, rec.WeekdayMultiplier)
	assert.Equal(t, 3.00, rec.FinalSeasonal)
	assert.Equal(t, 3.00, rec.RevenueFactor)
	assert.Equal(t, 3.00, rec.VisitorFactor)
	assert.Equal(t, 3.00, rec.FinalScore)
	assert.Equal(t, 1.3, rec.StaffingMultiplier)
	assert.Zero(t, rec.Fallbacks)
	assert.Empty(t, rec.Flags)

	assert.Equal(t, "boshu", rec.Term)
	assert.Equal(t, 11, rec.TermRank)
}

func TestScore_ConfiguredWeekdayMultiplier(t *testing.T) {
	days := history("A", date(2024, time.January, 6), date(2025, time.December, 31), flat)
	st := buildStore(t, nil, days, config.Location{ID: "A", WeekdayMultiplier: map[string]float64{"sat": 1.30}})

	sat := date(2026, time.June, 13)
	rec, err := Score(sat, "A", st, TrailingActuals(sat, days, 2))
	require.NoError(t, err)
	assert.Equal(t, 3.00, rec.SeasonalComposite)
	assert.Equal(t, 1.30, rec.WeekdayMultiplier)
	assert.Equal(t, 3.90, rec.FinalSeasonal)
	assert.Equal(t, 3.30, rec.FinalScore)
}

func TestScore_SpecialDayJoinsComposite(t *testing.T) {
	days := history("A", date(2024, time.January, 6), date(2025, time.December, 31), flat)
	specials, err := index.NewSpecialDays(nil, nil)
	require.NoError(t, err)
	st := buildStore(t, specials, days, config.Location{ID: "A"})

	target := date(2026, time.May, 5)
	rec, err := Score(target, "A", st, TrailingActuals(target, days, 2))
	require.NoError(t, err)
	require.True(t, rec.SpecialDayIndex.Valid)
	assert.Equal(t, 5.00, rec.SpecialDayIndex.Float64)
	assert.Equal(t, "Children's Day", rec.SpecialDayName)
	assert.Equal(t, 3.50, rec.SeasonalComposite, "(3+3+3+5)/4")
}

func TestScore_FallbacksAreFlagged(t *testing.T) {
	days := history("A", date(2025, time.January, 6), date(2025, time.January, 31), flat)
	st := buildStore(t, nil, days, config.Location{ID: "A"})

	target := date(2025, time.July, 15)
	rec, err := Score(target, "A", st, TrailingActuals(target, days, 2))
	require.NoError(t, err)

	assert.Equal(t, []string{
		FlagMonthUnobserved,
		FlagTermUnobserved,
		FlagWeekUnobserved,
		FlagRevenueMidpoint,
		FlagVisitorMidpoint,
	}, rec.Flags)
	assert.Equal(t, 5, rec.Fallbacks)
	assert.Equal(t, 3.00, rec.FinalScore)
}

func TestScore_Errors(t *testing.T) {
	days := history("A", date(2024, time.January, 6), date(2024, time.December, 31), flat)
	st := buildStore(t, nil, days, config.Location{ID: "A"})

	_, err := Score(date(2025, time.March, 1), "B", st, Trailing{})
	var uerr *index.UnknownLocationError
	require.True(t, errors.As(err, &uerr))

	_, err = Score(date(2030, time.March, 1), "A", st, Trailing{})
	var yerr *sekki.UnsupportedYearError
	require.True(t, errors.As(err, &yerr))
	assert.Equal(t, 2030, yerr.Year)
}

func TestScore_RangeInvariant(t *testing.T) {
	days := history("A", date(2024, time.January, 6), date(2025, time.December, 31), func(d time.Time) int64 {
		rev := int64(5000 + 800*int(d.Month()))
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			rev *= 2
		}
		if d.YearDay()%11 == 0 {
			return 0
		}
		return rev
	})
	specials, err := index.NewSpecialDays(nil, nil)
	require.NoError(t, err)
	st := buildStore(t, specials, days, config.Location{ID: "A"})

	for d := date(2026, time.January, 1); d.Year() == 2026; d = d.AddDate(0, 0, 1) {
		rec, err := Score(d, "A", st, TrailingActuals(d, days, 2))
		require.NoError(t, err)
		for name, v := range map[string]float64{
			"month":     rec.MonthlyIndex,
			"term":      rec.TermIndex,
			"week":      rec.WeekIndex,
			"composite": rec.SeasonalComposite,
			"seasonal":  rec.FinalSeasonal,
			"revenue":   rec.RevenueFactor,
			"visitors":  rec.VisitorFactor,
			"final":     rec.FinalScore,
		} {
			assert.GreaterOrEqual(t, v, 1.00, "%s on %s", name, d.Format(models.DateLayout))
			assert.LessOrEqual(t, v, 5.00, "%s on %s", name, d.Format(models.DateLayout))
		}
	}
}

func TestTrailingActuals(t *testing.T) {
	days := history("A", date(2024, time.January, 1), date(2025, time.December, 31), func(d time.Time) int64 {
		return int64(1000 * int(d.Month()))
	})

	dec := TrailingActuals(date(2026, time.December, 5), days, 2)
	assert.True(t, dec.Revenue.Observed)
	assert.Equal(t, 2, dec.Revenue.Months)
	assert.Equal(t, 5.00, dec.Revenue.Value, "December is the busiest month in the window")
	assert.Equal(t, 5.00, dec.Visitors.Value)

	jan := TrailingActuals(date(2026, time.January, 5), days, 2)
	assert.Equal(t, 1.00, jan.Revenue.Value)

	// The window for January 2024 is Jan 2022 .. Dec 2023, which holds nothing.
	empty := TrailingActuals(date(2024, time.January, 5), days, 2)
	assert.False(t, empty.Revenue.Observed)
	assert.Equal(t, index.Midpoint, empty.Revenue.Value)
	assert.Equal(t, index.Midpoint, empty.Visitors.Value)
}

func TestTrailingActuals_ExcludesCurrentMonthAndClosedDays(t *testing.T) {
	days := []models.SalesDay{
		{Date: date(2025, time.June, 3), Revenue: 100, Visitors: 1},
		{Date: date(2025, time.June, 4), Revenue: 0, Visitors: 500},
		{Date: date(2025, time.July, 1), Revenue: 300, Visitors: 3},
		{Date: date(2026, time.June, 1), Revenue: 99999, Visitors: 999},
	}
	got := TrailingActuals(date(2026, time.June, 20), days, 2)
	assert.True(t, got.Revenue.Observed)
	assert.Equal(t, 1.00, got.Revenue.Value, "June 2025 is the window minimum")
	assert.Equal(t, 1.00, got.Visitors.Value)
}
