package index

import (
	"fmt"
	"time"

	"github.com/lox/demandpeaks/internal/config"
)

// SpecialDay is a resolved override for one calendar date.
type SpecialDay struct {
	Name  string
	Score float64
	Event bool // location event rather than a generic holiday
}

type monthDay struct {
	month time.Month
	day   int
}

// SpecialDays holds location event overrides, checked first, and the shared
// generic holiday overrides.
type SpecialDays struct {
	holidays map[monthDay]SpecialDay
	events   map[string]map[monthDay]SpecialDay
}

// DefaultHolidays are fixed-date public holidays and peak periods.
var DefaultHolidays = map[string]config.SpecialDay{
	"01-01": {Name: "New Year's Day", Score: 4.50},
	"01-02": {Name: "New Year holiday", Score: 4.00},
	"01-03": {Name: "New Year holiday", Score: 4.00},
	"02-11": {Name: "National Foundation Day", Score: 3.50},
	"02-23": {Name: "Emperor's Birthday", Score: 3.50},
	"03-21": {Name: "Vernal Equinox (approx.)", Score: 3.00},
	"04-29": {Name: "Showa Day", Score: 4.00},
	"04-30": {Name: "Golden Week", Score: 4.50},
	"05-01": {Name: "Golden Week", Score: 4.50},
	"05-02": {Name: "Golden Week", Score: 4.50},
	"05-03": {Name: "Constitution Day", Score: 5.00},
	"05-04": {Name: "Greenery Day", Score: 5.00},
	"05-05": {Name: "Children's Day", Score: 5.00},
	"05-06": {Name: "Golden Week substitute", Score: 4.50},
	"07-20": {Name: "Marine Day (approx.)", Score: 3.50},
	"08-11": {Name: "Mountain Day", Score: 4.00},
	"08-12": {Name: "Obon eve", Score: 4.50},
	"08-13": {Name: "Obon", Score: 5.00},
	"08-14": {Name: "Obon", Score: 5.00},
	"08-15": {Name: "Obon", Score: 5.00},
	"08-16": {Name: "Obon end", Score: 4.00},
	"09-15": {Name: "Respect for the Aged Day (approx.)", Score: 3.50},
	"09-23": {Name: "Autumnal Equinox (approx.)", Score: 3.50},
	"10-14": {Name: "Sports Day (approx.)", Score: 3.50},
	"11-03": {Name: "Culture Day", Score: 3.50},
	"11-23": {Name: "Labour Thanksgiving Day", Score: 3.50},
	"12-23": {Name: "Christmas Eve eve", Score: 4.00},
	"12-24": {Name: "Christmas Eve", Score: 5.00},
	"12-25": {Name: "Christmas", Score: 5.00},
	"12-29": {Name: "Year end", Score: 3.50},
	"12-30": {Name: "Year end", Score: 4.00},
	"12-31": {Name: "New Year's Eve", Score: 4.50},
}

// NewSpecialDays builds the override table. A nil holidays map selects
// DefaultHolidays.
func NewSpecialDays(holidays map[string]config.SpecialDay, locations []config.Location) (*SpecialDays, error) {
	if holidays == nil {
		holidays = DefaultHolidays
	}
	sd := &SpecialDays{
		holidays: make(map[monthDay]SpecialDay, len(holidays)),
		events:   make(map[string]map[monthDay]SpecialDay),
	}
	for key, h := range holidays {
		md, err := parseKey(key)
		if err != nil {
			return nil, fmt.Errorf("holidays: %w", err)
		}
		sd.holidays[md] = SpecialDay{Name: h.Name, Score: h.Score}
	}
	for _, loc := range locations {
		if len(loc.Events) == 0 {
			continue
		}
		events := make(map[monthDay]SpecialDay, len(loc.Events))
		for key, ev := range loc.Events {
			md, err := parseKey(key)
			if err != nil {
				return nil, fmt.Errorf("location %s events: %w", loc.ID, err)
			}
			events[md] = SpecialDay{Name: ev.Name, Score: ev.Score, Event: true}
		}
		sd.events[loc.ID] = events
	}
	return sd, nil
}

func parseKey(key string) (monthDay, error) {
	m, d, err := config.ParseMonthDay(key)
	if err != nil {
		return monthDay{}, err
	}
	return monthDay{month: m, day: d}, nil
}

// Lookup returns the override for date at location, if any.
func (s *SpecialDays) Lookup(location string, date time.Time) (SpecialDay, bool) {
	if s == nil {
		return SpecialDay{}, false
	}
	md := monthDay{month: date.Month(), day: date.Day()}
	if ev, ok := s.events[location][md]; ok {
		return ev, true
	}
	h, ok := s.holidays[md]
	return h, ok
}
