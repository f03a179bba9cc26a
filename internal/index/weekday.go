package index

import (
	"time"

	"github.com/lox/demandpeaks/internal/models"
)

const (
	MinWeekdayMultiplier = 0.60
	MaxWeekdayMultiplier = 1.40
)

// WeekdayMultipliers is a location's multiplicative weekday factor, indexed
// by time.Weekday.
type WeekdayMultipliers struct {
	Factors    [7]float64
	Calibrated [7]bool // derived from history rather than configured
	Observed   [7]bool
}

func (w *WeekdayMultipliers) For(wd time.Weekday) float64 {
	return w.Factors[wd]
}

// CalibrateWeekdays derives multipliers as each weekday's mean revenue over
// the mean of the weekday means, clamped to [0.60, 1.40]. Configured values
// win; weekdays without history get 1.00.
func CalibrateWeekdays(days []models.SalesDay, configured map[time.Weekday]float64) WeekdayMultipliers {
	var sums [7]float64
	var counts [7]int
	for _, d := range days {
		if !d.Operating() {
			continue
		}
		wd := d.Date.Weekday()
		sums[wd] += float64(d.Revenue)
		counts[wd]++
	}

	var means [7]float64
	var total float64
	observed := 0
	for wd := 0; wd < 7; wd++ {
		if counts[wd] > 0 {
			means[wd] = sums[wd] / float64(counts[wd])
			total += means[wd]
			observed++
		}
	}

	var out WeekdayMultipliers
	for wd := 0; wd < 7; wd++ {
		out.Observed[wd] = counts[wd] > 0
		if v, ok := configured[time.Weekday(wd)]; ok {
			out.Factors[wd] = v
			continue
		}
		out.Calibrated[wd] = true
		if counts[wd] == 0 || total == 0 {
			out.Factors[wd] = 1.00
			continue
		}
		ratio := means[wd] * float64(observed) / total
		out.Factors[wd] = Round2(Clamp(ratio, MinWeekdayMultiplier, MaxWeekdayMultiplier))
	}
	return out
}
