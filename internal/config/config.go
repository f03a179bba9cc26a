// Package config loads the per-location calibration file.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultLookbackYears = 2

// SpecialDay is a fixed-date score override.
type SpecialDay struct {
	Name  string  `yaml:"name"`
	Score float64 `yaml:"score"`
}

type Location struct {
	ID                string                `yaml:"id"`
	Name              string                `yaml:"name"`
	LookbackYears     int                   `yaml:"lookback_years"`
	SeasonalIndex     map[int]float64       `yaml:"seasonal_index"`
	WeekdayMultiplier map[string]float64    `yaml:"weekday_multiplier"`
	ExcludeChannels   []string              `yaml:"exclude_channels"`
	Events            map[string]SpecialDay `yaml:"events"`
}

type Config struct {
	LookbackYears int                   `yaml:"lookback_years"`
	Holidays      map[string]SpecialDay `yaml:"holidays"`
	Locations     []Location            `yaml:"locations"`
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML config bytes, applying defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.LookbackYears == 0 {
		cfg.LookbackYears = DefaultLookbackYears
	}
	for i := range cfg.Locations {
		if cfg.Locations[i].LookbackYears == 0 {
			cfg.Locations[i].LookbackYears = cfg.LookbackYears
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.LookbackYears < 0 {
		return fmt.Errorf("lookback_years: must be positive, got %d", c.LookbackYears)
	}
	if err := validateSpecialDays("holidays", c.Holidays); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, loc := range c.Locations {
		if loc.ID == "" {
			return fmt.Errorf("locations: missing id")
		}
		if seen[loc.ID] {
			return fmt.Errorf("locations: duplicate id %q", loc.ID)
		}
		seen[loc.ID] = true

		if loc.LookbackYears < 1 {
			return fmt.Errorf("location %s: lookback_years must be at least 1", loc.ID)
		}
		for m, v := range loc.SeasonalIndex {
			if m < 1 || m > 12 {
				return fmt.Errorf("location %s: seasonal_index month %d out of range", loc.ID, m)
			}
			if v < 1 || v > 5 {
				return fmt.Errorf("location %s: seasonal_index[%d] = %.2f, want 1.00-5.00", loc.ID, m, v)
			}
		}
		for name, v := range loc.WeekdayMultiplier {
			if _, ok := weekdayNames[strings.ToLower(name)]; !ok {
				return fmt.Errorf("location %s: unknown weekday %q", loc.ID, name)
			}
			if v <= 0 || v > 3 {
				return fmt.Errorf("location %s: weekday_multiplier[%s] = %.2f out of range", loc.ID, name, v)
			}
		}
		if err := validateSpecialDays("location "+loc.ID+" events", loc.Events); err != nil {
			return err
		}
	}
	return nil
}

func validateSpecialDays(what string, days map[string]SpecialDay) error {
	for key, sd := range days {
		if _, _, err := ParseMonthDay(key); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		if sd.Score < 1 || sd.Score > 5 {
			return fmt.Errorf("%s: %s score %.2f, want 1.00-5.00", what, key, sd.Score)
		}
	}
	return nil
}

// Location returns the named location's settings.
func (c *Config) Location(id string) (Location, bool) {
	for _, loc := range c.Locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return Location{}, false
}

// LocationIDs lists configured locations in file order.
func (c *Config) LocationIDs() []string {
	ids := make([]string, len(c.Locations))
	for i, loc := range c.Locations {
		ids[i] = loc.ID
	}
	return ids
}

// Weekdays converts the configured multipliers to time.Weekday keys.
func (l Location) Weekdays() map[time.Weekday]float64 {
	if len(l.WeekdayMultiplier) == 0 {
		return nil
	}
	out := make(map[time.Weekday]float64, len(l.WeekdayMultiplier))
	for name, v := range l.WeekdayMultiplier {
		if wd, ok := weekdayNames[strings.ToLower(name)]; ok {
			out[wd] = v
		}
	}
	return out
}

// Excludes reports whether channel is left out of the location baseline.
func (l Location) Excludes(channel string) bool {
	for _, ch := range l.ExcludeChannels {
		if strings.EqualFold(ch, channel) {
			return true
		}
	}
	return false
}

// ParseMonthDay parses an "MM-DD" key.
func ParseMonthDay(key string) (time.Month, int, error) {
	// 2024 is a leap year, so 02-29 is accepted.
	t, err := time.Parse("2006-01-02", "2024-"+key)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month-day %q", key)
	}
	return t.Month(), t.Day(), nil
}

// SortedKeys returns special-day keys in calendar order.
func SortedKeys(days map[string]SpecialDay) []string {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
