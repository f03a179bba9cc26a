package sekki

import (
	"fmt"
	"time"
)

// UnsupportedYearError is returned for dates whose term cannot be resolved
// because a boundary table for the required year is missing.
type UnsupportedYearError struct {
	Year int
}

func (e *UnsupportedYearError) Error() string {
	return fmt.Sprintf("sekki: year %d is outside the supported boundary table", e.Year)
}

// Boundary is the first day of a term in a given year.
type Boundary struct {
	Month time.Month
	Day   int
}

// Table maps years to the 24 term start dates. It is immutable after
// construction and safe for concurrent use.
type Table struct {
	years map[int][Count]Boundary
	first int
	last  int
}

// Boundary days from the National Astronomical Observatory of Japan almanac,
// in term ordinal order (Shokan first).
var defaultBoundaries = map[int][Count][2]int{
	2023: {{1, 6}, {1, 20}, {2, 4}, {2, 19}, {3, 6}, {3, 21}, {4, 5}, {4, 20}, {5, 6}, {5, 21}, {6, 6}, {6, 21},
		{7, 7}, {7, 23}, {8, 8}, {8, 23}, {9, 8}, {9, 23}, {10, 8}, {10, 24}, {11, 8}, {11, 22}, {12, 7}, {12, 22}},
	2024: {{1, 6}, {1, 20}, {2, 4}, {2, 19}, {3, 5}, {3, 20}, {4, 4}, {4, 19}, {5, 5}, {5, 20}, {6, 5}, {6, 21},
		{7, 6}, {7, 22}, {8, 7}, {8, 22}, {9, 7}, {9, 22}, {10, 8}, {10, 23}, {11, 7}, {11, 22}, {12, 7}, {12, 21}},
	2025: {{1, 5}, {1, 20}, {2, 3}, {2, 18}, {3, 5}, {3, 20}, {4, 4}, {4, 20}, {5, 5}, {5, 21}, {6, 5}, {6, 21},
		{7, 7}, {7, 22}, {8, 7}, {8, 23}, {9, 7}, {9, 23}, {10, 8}, {10, 23}, {11, 7}, {11, 22}, {12, 7}, {12, 22}},
	2026: {{1, 5}, {1, 20}, {2, 4}, {2, 18}, {3, 5}, {3, 20}, {4, 5}, {4, 20}, {5, 5}, {5, 21}, {6, 6}, {6, 21},
		{7, 7}, {7, 23}, {8, 7}, {8, 23}, {9, 7}, {9, 23}, {10, 8}, {10, 23}, {11, 7}, {11, 22}, {12, 7}, {12, 22}},
	2027: {{1, 5}, {1, 20}, {2, 4}, {2, 19}, {3, 6}, {3, 21}, {4, 5}, {4, 20}, {5, 6}, {5, 21}, {6, 6}, {6, 22},
		{7, 7}, {7, 23}, {8, 7}, {8, 23}, {9, 8}, {9, 23}, {10, 8}, {10, 24}, {11, 7}, {11, 22}, {12, 7}, {12, 22}},
	2028: {{1, 6}, {1, 21}, {2, 4}, {2, 19}, {3, 5}, {3, 20}, {4, 4}, {4, 19}, {5, 5}, {5, 20}, {6, 5}, {6, 21},
		{7, 6}, {7, 22}, {8, 7}, {8, 22}, {9, 7}, {9, 22}, {10, 8}, {10, 23}, {11, 7}, {11, 22}, {12, 7}, {12, 21}},
}

var defaultTable *Table

func init() {
	years := make(map[int][Count]Boundary, len(defaultBoundaries))
	for year, days := range defaultBoundaries {
		var b [Count]Boundary
		for i, md := range days {
			b[i] = Boundary{Month: time.Month(md[0]), Day: md[1]}
		}
		years[year] = b
	}
	t, err := NewTable(years)
	if err != nil {
		panic(err)
	}
	defaultTable = t
}

// DefaultTable returns the built-in 2023-2028 table.
func DefaultTable() *Table {
	return defaultTable
}

// NewTable validates and copies a per-year boundary table. Boundaries must be
// strictly increasing within each year and the years must be contiguous.
func NewTable(years map[int][Count]Boundary) (*Table, error) {
	if len(years) == 0 {
		return nil, fmt.Errorf("sekki: empty boundary table")
	}
	t := &Table{years: make(map[int][Count]Boundary, len(years))}
	first := true
	for year, b := range years {
		var prev time.Time
		for i, bd := range b {
			d := time.Date(year, bd.Month, bd.Day, 0, 0, 0, 0, time.UTC)
			if d.Month() != bd.Month || d.Day() != bd.Day {
				return nil, fmt.Errorf("sekki: %d term %d: invalid date %02d-%02d", year, i+1, bd.Month, bd.Day)
			}
			if i > 0 && !d.After(prev) {
				return nil, fmt.Errorf("sekki: %d term %d: boundaries out of order", year, i+1)
			}
			prev = d
		}
		t.years[year] = b
		if first || year < t.first {
			t.first = year
		}
		if first || year > t.last {
			t.last = year
		}
		first = false
	}
	if t.last-t.first+1 != len(t.years) {
		return nil, fmt.Errorf("sekki: boundary table years %d-%d are not contiguous", t.first, t.last)
	}
	return t, nil
}

// Years returns the closed interval of supported years.
func (t *Table) Years() (first, last int) {
	return t.first, t.last
}

// Supports reports whether every date in year can be resolved.
func (t *Table) Supports(year int) bool {
	_, ok := t.years[year]
	if !ok {
		return false
	}
	first := t.years[year][0]
	if first.Month == time.January && first.Day == 1 {
		return true
	}
	_, prev := t.years[year-1]
	return prev
}

// Resolve returns the term in effect on date. Dates before the first boundary
// of their year belong to the previous year's last term.
func (t *Table) Resolve(date time.Time) (Term, error) {
	year := date.Year()
	b, ok := t.years[year]
	if !ok {
		return Term{}, &UnsupportedYearError{Year: year}
	}

	day := time.Date(year, date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	current := -1
	for i, bd := range b {
		start := time.Date(year, bd.Month, bd.Day, 0, 0, 0, 0, time.UTC)
		if day.Before(start) {
			break
		}
		current = i
	}

	if current < 0 {
		if _, ok := t.years[year-1]; !ok {
			return Term{}, &UnsupportedYearError{Year: year - 1}
		}
		return terms[Count-1], nil
	}
	return terms[current], nil
}

// TermStart pairs a term with its start date in a specific year.
type TermStart struct {
	Term  Term
	Start time.Time
}

// TermsForYear lists the year's term start dates in chronological order.
func (t *Table) TermsForYear(year int) ([]TermStart, error) {
	b, ok := t.years[year]
	if !ok {
		return nil, &UnsupportedYearError{Year: year}
	}
	out := make([]TermStart, Count)
	for i, bd := range b {
		out[i] = TermStart{
			Term:  terms[i],
			Start: time.Date(year, bd.Month, bd.Day, 0, 0, 0, 0, time.UTC),
		}
	}
	return out, nil
}

// Resolve uses the built-in table.
func Resolve(date time.Time) (Term, error) {
	return defaultTable.Resolve(date)
}
