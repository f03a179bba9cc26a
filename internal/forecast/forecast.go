// Package forecast estimates a day's revenue and visitors from same-month,
// same-weekday history.
package forecast

import (
	"time"

	"github.com/lox/demandpeaks/internal/models"
)

// Result is a forecast for one day. Zero values with Samples == 0 mean no
// forecast was available.
type Result struct {
	Revenue  int64
	Visitors int64
	Samples  int
}

// Available reports whether any history supported the forecast.
func (r Result) Available() bool {
	return r.Samples > 0
}

// Forecaster computes recency-weighted averages. LookbackYears bounds how
// many years back observations may come from; zero means unbounded.
type Forecaster struct {
	LookbackYears int
}

// Forecast averages operating days strictly before date that share its month
// and weekday, weighting each by 1/max(1, years before date).
func (f Forecaster) Forecast(date time.Time, days []models.SalesDay) Result {
	target := dayOf(date)
	var sumW, sumRev, sumVis float64
	n := 0
	for _, d := range days {
		if !d.Operating() {
			continue
		}
		obs := dayOf(d.Date)
		if !obs.Before(target) || obs.Month() != target.Month() || obs.Weekday() != target.Weekday() {
			continue
		}
		years := yearsBefore(target, obs)
		if f.LookbackYears > 0 && years > f.LookbackYears {
			continue
		}
		w := 1.0 / float64(max(1, years))
		sumW += w
		sumRev += w * float64(d.Revenue)
		sumVis += w * float64(d.Visitors)
		n++
	}
	if n == 0 {
		return Result{}
	}
	return Result{
		Revenue:  int64(sumRev / sumW),
		Visitors: int64(sumVis / sumW),
		Samples:  n,
	}
}

// Forecast uses an unbounded Forecaster.
func Forecast(date time.Time, days []models.SalesDay) Result {
	return Forecaster{}.Forecast(date, days)
}

func yearsBefore(target, obs time.Time) int {
	return target.Year() - obs.Year()
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
