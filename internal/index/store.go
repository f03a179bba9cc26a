package index

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lox/demandpeaks/internal/config"
	"github.com/lox/demandpeaks/internal/models"
	"github.com/lox/demandpeaks/internal/sekki"
)

// ErrEmptyHistory is returned when a location has no operating days to build
// an index from.
var ErrEmptyHistory = errors.New("index: no operating days in history")

// UnknownLocationError is returned for lookups of locations the store was not
// built for.
type UnknownLocationError struct {
	Location string
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("index: unknown location %q", e.Location)
}

// LocationIndex is the set of layer tables for one location.
type LocationIndex struct {
	LocationID  string
	Month       *Layer
	Term        *Layer
	Week        *Layer
	Weekday     *Layer
	Multipliers WeekdayMultipliers
	// Days outside the solar-term table, left out of the term layer.
	SkippedTermDays int
	OperatingDays   int
}

// Layer returns the table for dim.
func (li *LocationIndex) Layer(dim Dimension) *Layer {
	switch dim {
	case DimMonth:
		return li.Month
	case DimTerm:
		return li.Term
	case DimWeek:
		return li.Week
	case DimWeekday:
		return li.Weekday
	}
	return nil
}

// Store holds every location's index plus the shared special-day table. It
// is read-only once built.
type Store struct {
	Table    *sekki.Table
	Specials *SpecialDays

	locations map[string]*LocationIndex
}

// Build builds one LocationIndex per configured location with history.
// Locations whose index cannot be built are returned in failed and left out
// of the store.
func Build(table *sekki.Table, specials *SpecialDays, history map[string][]models.SalesDay, locations []config.Location) (*Store, map[string]error) {
	st := &Store{
		Table:     table,
		Specials:  specials,
		locations: make(map[string]*LocationIndex, len(locations)),
	}
	failed := make(map[string]error)
	for _, loc := range locations {
		li, err := BuildLocation(table, loc, history[loc.ID])
		if err != nil {
			failed[loc.ID] = err
			continue
		}
		st.locations[loc.ID] = li
	}
	return st, failed
}

// BuildLocation aggregates one location's history into its layer tables.
func BuildLocation(table *sekki.Table, loc config.Location, days []models.SalesDay) (*LocationIndex, error) {
	operating := 0
	seen := make(map[time.Time]bool, len(days))
	for _, d := range days {
		if d.LocationID != "" && d.LocationID != loc.ID {
			return nil, fmt.Errorf("location %s: history contains a row for %s", loc.ID, d.LocationID)
		}
		day := truncateDay(d.Date)
		if seen[day] {
			return nil, fmt.Errorf("location %s: duplicate history row for %s", loc.ID, day.Format(models.DateLayout))
		}
		seen[day] = true
		if d.Revenue < 0 || d.Visitors < 0 {
			return nil, fmt.Errorf("location %s: negative values on %s", loc.ID, day.Format(models.DateLayout))
		}
		if d.Operating() {
			operating++
		}
	}
	if operating == 0 {
		return nil, fmt.Errorf("location %s: %w", loc.ID, ErrEmptyHistory)
	}

	li := &LocationIndex{LocationID: loc.ID, OperatingDays: operating}
	li.Month, _ = BuildLayer(days, DimMonth, DimMonth.KeyFunc(table), DimMonth.Domain())
	li.Term, li.SkippedTermDays = BuildLayer(days, DimTerm, DimTerm.KeyFunc(table), DimTerm.Domain())
	li.Week, _ = BuildLayer(days, DimWeek, DimWeek.KeyFunc(table), DimWeek.Domain())
	li.Weekday, _ = BuildLayer(days, DimWeekday, DimWeekday.KeyFunc(table), DimWeekday.Domain())

	// Calibrated monthly values replace the derived ones month by month.
	for m, v := range loc.SeasonalIndex {
		li.Month.Scores[m] = Round2(v)
		li.Month.Observed[m] = true
	}

	li.Multipliers = CalibrateWeekdays(days, loc.Weekdays())
	return li, nil
}

// Location returns the index for id.
func (s *Store) Location(id string) (*LocationIndex, error) {
	li, ok := s.locations[id]
	if !ok {
		return nil, &UnknownLocationError{Location: id}
	}
	return li, nil
}

// Locations lists the built locations in sorted order.
func (s *Store) Locations() []string {
	ids := make([]string, 0, len(s.locations))
	for id := range s.locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
