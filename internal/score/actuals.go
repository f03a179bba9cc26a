package score

import (
	"time"

	"github.com/lox/demandpeaks/internal/index"
	"github.com/lox/demandpeaks/internal/models"
)

// Factor is an actuals-derived score on the 1..5 scale. Observed is false
// when the trailing window held no same-month data and Value is the midpoint.
type Factor struct {
	Value    float64
	Observed bool
	Months   int // same-month year-months that contributed
}

// Trailing holds the two actuals factors for one location and target month.
type Trailing struct {
	Revenue  Factor
	Visitors Factor
}

type yearMonth struct {
	year  int
	month time.Month
}

func (ym yearMonth) before(o yearMonth) bool {
	if ym.year != o.year {
		return ym.year < o.year
	}
	return ym.month < o.month
}

// TrailingActuals summarises the lookbackYears before date's month. The
// window runs from the same month lookbackYears ago (inclusive) up to date's
// month (exclusive). Each year-month contributes its mean over operating
// days; the target is the mean of the same-month averages, scaled against
// the min and max of all year-month averages in the window.
func TrailingActuals(date time.Time, days []models.SalesDay, lookbackYears int) Trailing {
	if lookbackYears < 1 {
		lookbackYears = 1
	}
	end := yearMonth{date.Year(), date.Month()}
	start := yearMonth{date.Year() - lookbackYears, date.Month()}

	type acc struct {
		revenue, visitors float64
		n                 int
	}
	buckets := make(map[yearMonth]*acc)
	for _, d := range days {
		if !d.Operating() {
			continue
		}
		ym := yearMonth{d.Date.Year(), d.Date.Month()}
		if ym.before(start) || !ym.before(end) {
			continue
		}
		a := buckets[ym]
		if a == nil {
			a = &acc{}
			buckets[ym] = a
		}
		a.revenue += float64(d.Revenue)
		a.visitors += float64(d.Visitors)
		a.n++
	}

	revMeans := make(map[yearMonth]float64, len(buckets))
	visMeans := make(map[yearMonth]float64, len(buckets))
	for ym, a := range buckets {
		revMeans[ym] = a.revenue / float64(a.n)
		visMeans[ym] = a.visitors / float64(a.n)
	}
	return Trailing{
		Revenue:  factorFor(date.Month(), revMeans),
		Visitors: factorFor(date.Month(), visMeans),
	}
}

func factorFor(month time.Month, means map[yearMonth]float64) Factor {
	var lo, hi, sum float64
	first := true
	n := 0
	for ym, v := range means {
		if first || v < lo {
			lo = v
		}
		if first || v > hi {
			hi = v
		}
		first = false
		if ym.month == month {
			sum += v
			n++
		}
	}
	if n == 0 {
		return Factor{Value: index.Midpoint}
	}
	return Factor{
		Value:    index.Scale(sum/float64(n), lo, hi),
		Observed: true,
		Months:   n,
	}
}
