package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
lookback_years: 3
holidays:
  "01-01": {name: New Year, score: 4.5}
locations:
  - id: MOIWAYAMA
    name: Mt Moiwa
    lookback_years: 2
    seasonal_index: {7: 5, 1: 2}
    weekday_multiplier: {sat: 1.35, Sun: 1.2, tue: 0.8}
    exclude_channels: [bg]
    events:
      "02-05": {name: Snow Festival, score: 5}
  - id: TV_TOWER
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.LookbackYears)
	assert.Equal(t, []string{"MOIWAYAMA", "TV_TOWER"}, cfg.LocationIDs())

	moiwa, ok := cfg.Location("MOIWAYAMA")
	require.True(t, ok)
	assert.Equal(t, 2, moiwa.LookbackYears)
	assert.Equal(t, 5.0, moiwa.SeasonalIndex[7])
	assert.True(t, moiwa.Excludes("BG"))
	assert.False(t, moiwa.Excludes("lunch"))

	wd := moiwa.Weekdays()
	assert.Equal(t, 1.35, wd[time.Saturday])
	assert.Equal(t, 1.2, wd[time.Sunday])
	assert.Equal(t, 0.8, wd[time.Tuesday])
	assert.Len(t, wd, 3)

	tower, ok := cfg.Location("TV_TOWER")
	require.True(t, ok)
	assert.Equal(t, 3, tower.LookbackYears, "inherits top-level lookback")
	assert.Nil(t, tower.Weekdays())

	_, ok = cfg.Location("NOPE")
	assert.False(t, ok)
}

func TestParse_DefaultLookback(t *testing.T) {
	cfg, err := Parse([]byte("locations:\n  - id: A\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultLookbackYears, cfg.LookbackYears)
	assert.Equal(t, DefaultLookbackYears, cfg.Locations[0].LookbackYears)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "locations:\n  - name: x\n"},
		{"duplicate id", "locations:\n  - id: A\n  - id: A\n"},
		{"seasonal month out of range", "locations:\n  - id: A\n    seasonal_index: {13: 3}\n"},
		{"seasonal value out of range", "locations:\n  - id: A\n    seasonal_index: {1: 6}\n"},
		{"unknown weekday", "locations:\n  - id: A\n    weekday_multiplier: {funday: 1}\n"},
		{"zero multiplier", "locations:\n  - id: A\n    weekday_multiplier: {mon: 0}\n"},
		{"bad event key", "locations:\n  - id: A\n    events:\n      \"13-40\": {name: x, score: 3}\n"},
		{"event score out of range", "locations:\n  - id: A\n    events:\n      \"01-02\": {name: x, score: 0.5}\n"},
		{"bad holiday", "holidays:\n  \"02-30\": {name: x, score: 3}\n"},
		{"not yaml", "locations: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Locations, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseMonthDay(t *testing.T) {
	m, d, err := ParseMonthDay("02-29")
	require.NoError(t, err)
	assert.Equal(t, time.February, m)
	assert.Equal(t, 29, d)

	_, _, err = ParseMonthDay("2-5")
	assert.Error(t, err)
}
