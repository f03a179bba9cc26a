// Package score combines a location's layer tables into the per-day demand
// score.
package score

import (
	"database/sql"
	"time"

	"github.com/lox/demandpeaks/internal/index"
	"github.com/lox/demandpeaks/internal/models"
)

// Flags recorded when an input fell back to the neutral midpoint.
const (
	FlagMonthUnobserved   = "month_unobserved"
	FlagTermUnobserved    = "term_unobserved"
	FlagWeekUnobserved    = "week_unobserved"
	FlagWeekdayUnobserved = "weekday_unobserved"
	FlagRevenueMidpoint   = "revenue_factor_midpoint"
	FlagVisitorMidpoint   = "visitor_factor_midpoint"
)

// Score computes the record for one location and date. Forecast and actual
// fields are left for the caller.
func Score(date time.Time, location string, st *index.Store, trailing Trailing) (models.DemandScore, error) {
	li, err := st.Location(location)
	if err != nil {
		return models.DemandScore{}, err
	}
	term, err := st.Table.Resolve(date)
	if err != nil {
		return models.DemandScore{}, err
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rec := models.DemandScore{
		Date:         day,
		LocationID:   location,
		Term:         term.Name,
		TermRank:     term.Rank,
		Season:       string(term.Season),
		SeasonPoints: term.SeasonPoints,
	}

	flag := func(observed bool, name string) {
		if !observed {
			rec.Fallbacks++
			rec.Flags = append(rec.Flags, name)
		}
	}

	var ok bool
	rec.MonthlyIndex, ok = li.Month.Score(int(day.Month()))
	flag(ok, FlagMonthUnobserved)
	rec.TermIndex, ok = li.Term.Score(term.Ordinal)
	flag(ok, FlagTermUnobserved)
	rec.WeekIndex, ok = li.Week.Score(index.ISOWeek(day))
	flag(ok, FlagWeekUnobserved)
	rec.WeekdayIndex, _ = li.Weekday.Score(int(day.Weekday()))

	sum := rec.MonthlyIndex + rec.TermIndex + rec.WeekIndex
	n := 3.0
	if sd, found := st.Specials.Lookup(location, day); found {
		rec.SpecialDayIndex = sql.NullFloat64{Float64: sd.Score, Valid: true}
		rec.SpecialDayName = sd.Name
		sum += sd.Score
		n++
	}
	rec.SeasonalComposite = index.Round2(sum / n)

	wd := day.Weekday()
	rec.WeekdayMultiplier = li.Multipliers.For(wd)
	flag(!li.Multipliers.Calibrated[wd] || li.Multipliers.Observed[wd], FlagWeekdayUnobserved)
	rec.FinalSeasonal = Modulate(rec.SeasonalComposite, rec.WeekdayMultiplier)

	rec.RevenueFactor = trailing.Revenue.Value
	flag(trailing.Revenue.Observed, FlagRevenueMidpoint)
	rec.VisitorFactor = trailing.Visitors.Value
	flag(trailing.Visitors.Observed, FlagVisitorMidpoint)

	rec.FinalScore = Blend(rec.FinalSeasonal, rec.RevenueFactor, rec.VisitorFactor)
	rec.StaffingMultiplier = StaffingMultiplier(rec.FinalScore)
	return rec, nil
}

// Modulate applies the weekday multiplier to a seasonal composite.
func Modulate(composite, multiplier float64) float64 {
	return index.Round2(index.Clamp(composite*multiplier, index.ScoreMin, index.ScoreMax))
}

// Blend averages the modulated seasonal score with both actuals factors.
func Blend(finalSeasonal, revenue, visitors float64) float64 {
	return index.Round2(index.Clamp((finalSeasonal+revenue+visitors)/3, index.ScoreMin, index.ScoreMax))
}

// StaffingMultiplier maps a final score to a relative staffing level.
func StaffingMultiplier(final float64) float64 {
	switch {
	case final >= 4:
		return 1.6
	case final >= 3:
		return 1.3
	case final >= 2:
		return 1.0
	default:
		return 0.7
	}
}
