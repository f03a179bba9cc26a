package sekki

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"first boundary of 2024", day(2024, time.January, 6), "shokan"},
		{"day before daikan", day(2024, time.January, 19), "shokan"},
		{"daikan boundary", day(2024, time.January, 20), "daikan"},
		{"mid summer", day(2024, time.August, 1), "taisho"},
		{"hakuro boundary 2025", day(2025, time.September, 7), "hakuro"},
		{"day before hakuro 2023", day(2023, time.September, 7), "shosho"},
		{"last term of year", day(2026, time.December, 31), "toji"},
		{"toji boundary 2028", day(2028, time.December, 21), "toji"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestResolve_WrapsToPreviousYear(t *testing.T) {
	got, err := Resolve(day(2025, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, "toji", got.Name)
	assert.Equal(t, 24, got.Ordinal)

	got, err = Resolve(day(2025, time.January, 4))
	require.NoError(t, err)
	assert.Equal(t, "toji", got.Name)

	got, err = Resolve(day(2025, time.January, 5))
	require.NoError(t, err)
	assert.Equal(t, "shokan", got.Name)
}

func TestResolve_UnsupportedYear(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		wantYear int
	}{
		{"before table", day(2022, time.June, 1), 2022},
		{"after table", day(2029, time.March, 1), 2029},
		{"wraparound into missing year", day(2023, time.January, 3), 2022},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.date)
			var uerr *UnsupportedYearError
			require.True(t, errors.As(err, &uerr), "want UnsupportedYearError, got %v", err)
			assert.Equal(t, tt.wantYear, uerr.Year)
		})
	}
}

func TestResolve_IgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	got, err := Resolve(time.Date(2024, time.January, 20, 23, 59, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, "daikan", got.Name)
}

func TestTermMetadata(t *testing.T) {
	seen := make(map[int]bool)
	for _, term := range Terms() {
		assert.False(t, seen[term.Rank], "duplicate rank %d", term.Rank)
		seen[term.Rank] = true
		assert.GreaterOrEqual(t, term.SeasonPoints, 1.0)
		assert.LessOrEqual(t, term.SeasonPoints, 5.0)
	}
	assert.Len(t, seen, Count)

	top, ok := ByName("hakuro")
	require.True(t, ok)
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, SeasonTop, top.Season)
	assert.Equal(t, 5.0, top.SeasonPoints)

	off, ok := ByName("seimei")
	require.True(t, ok)
	assert.Equal(t, 24, off.Rank)
	assert.Equal(t, SeasonOff, off.Season)
	assert.Equal(t, 1.0, off.SeasonPoints)
}

func TestSupports(t *testing.T) {
	table := DefaultTable()
	first, last := table.Years()
	assert.Equal(t, 2023, first)
	assert.Equal(t, 2028, last)

	assert.False(t, table.Supports(2023), "early January 2023 needs 2022")
	assert.True(t, table.Supports(2024))
	assert.True(t, table.Supports(2028))
	assert.False(t, table.Supports(2029))
}

func TestTermsForYear(t *testing.T) {
	starts, err := DefaultTable().TermsForYear(2026)
	require.NoError(t, err)
	require.Len(t, starts, Count)
	assert.Equal(t, day(2026, time.January, 5), starts[0].Start)
	assert.Equal(t, "toji", starts[Count-1].Term.Name)

	_, err = DefaultTable().TermsForYear(2030)
	assert.Error(t, err)
}

func TestNewTable_Validation(t *testing.T) {
	good := DefaultTable().years[2024]

	bad := good
	bad[3] = bad[2]
	_, err := NewTable(map[int][Count]Boundary{2024: bad})
	assert.Error(t, err, "out of order boundaries")

	_, err = NewTable(map[int][Count]Boundary{2024: good, 2026: good})
	assert.Error(t, err, "gap between years")

	invalid := good
	invalid[1] = Boundary{Month: time.February, Day: 30}
	_, err = NewTable(map[int][Count]Boundary{2024: invalid})
	assert.Error(t, err, "invalid calendar date")

	table, err := NewTable(map[int][Count]Boundary{2024: good})
	require.NoError(t, err)
	_, err = table.Resolve(day(2024, time.January, 2))
	var uerr *UnsupportedYearError
	assert.True(t, errors.As(err, &uerr))
}
