package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lox/demandpeaks/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestForecast_RecencyWeighting(t *testing.T) {
	// Wednesday 2026-06-10; each observation is a June Wednesday.
	target := date(2026, time.June, 10)
	days := []models.SalesDay{
		{Date: date(2025, time.June, 11), Revenue: 100, Visitors: 10},
		{Date: date(2024, time.June, 12), Revenue: 200, Visitors: 20},
		{Date: date(2023, time.June, 14), Revenue: 300, Visitors: 30},
	}

	got := Forecast(target, days)

	// (100*1 + 200*0.5 + 300/3) / (1 + 0.5 + 1/3) = 163.6
	assert.Equal(t, int64(163), got.Revenue)
	assert.Equal(t, int64(16), got.Visitors)
	assert.Equal(t, 3, got.Samples)
	assert.Less(t, got.Revenue, int64(200), "closer to the recent year than the unweighted mean")
}

func TestForecast_Filters(t *testing.T) {
	target := date(2026, time.June, 10) // Wednesday
	tests := []struct {
		name string
		day  models.SalesDay
	}{
		{"different weekday", models.SalesDay{Date: date(2025, time.June, 12), Revenue: 999}},
		{"different month", models.SalesDay{Date: date(2025, time.July, 9), Revenue: 999}},
		{"same day", models.SalesDay{Date: target, Revenue: 999}},
		{"future", models.SalesDay{Date: date(2026, time.June, 17), Revenue: 999}},
		{"closed", models.SalesDay{Date: date(2025, time.June, 11), Revenue: 0, Visitors: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Forecast(target, []models.SalesDay{tt.day})
			assert.False(t, got.Available())
			assert.Zero(t, got.Revenue)
			assert.Zero(t, got.Visitors)
		})
	}
}

func TestForecast_SameYearWeightIsOne(t *testing.T) {
	target := date(2026, time.June, 24)
	days := []models.SalesDay{
		{Date: date(2026, time.June, 3), Revenue: 100, Visitors: 1},
		{Date: date(2026, time.June, 10), Revenue: 200, Visitors: 2},
		{Date: date(2026, time.June, 17), Revenue: 300, Visitors: 3},
	}
	got := Forecast(target, days)
	assert.Equal(t, int64(200), got.Revenue)
	assert.Equal(t, int64(2), got.Visitors)
}

func TestForecaster_Lookback(t *testing.T) {
	target := date(2026, time.June, 10)
	days := []models.SalesDay{
		{Date: date(2025, time.June, 11), Revenue: 100},
		{Date: date(2024, time.June, 12), Revenue: 200},
		{Date: date(2023, time.June, 14), Revenue: 300},
	}

	got := Forecaster{LookbackYears: 2}.Forecast(target, days)
	assert.Equal(t, 2, got.Samples)
	// (100 + 100) / 1.5
	assert.Equal(t, int64(133), got.Revenue)
}
