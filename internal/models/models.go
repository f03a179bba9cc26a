package models

import (
	"database/sql"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used for storage and export.
const DateLayout = "2006-01-02"

type Location struct {
	LocationID    string
	Name          string
	LookbackYears int
	Active        bool
}

// SalesDay is one location's aggregate for a calendar day, as produced by the
// importer. Days with zero revenue are non-operating days.
type SalesDay struct {
	LocationID string
	Date       time.Time
	Revenue    int64
	Visitors   int64
	Source     string // layout version the row was imported with
}

// Operating reports whether the day counts towards demand statistics.
func (d SalesDay) Operating() bool {
	return d.Revenue > 0
}

// DemandScore is the per-day, per-location output record.
type DemandScore struct {
	Date       time.Time
	LocationID string

	Term         string
	TermRank     int
	Season       string
	SeasonPoints float64

	MonthlyIndex    float64
	TermIndex       float64
	WeekIndex       float64
	WeekdayIndex    float64
	SpecialDayIndex sql.NullFloat64
	SpecialDayName  string

	SeasonalComposite  float64
	WeekdayMultiplier  float64
	FinalSeasonal      float64
	RevenueFactor      float64
	VisitorFactor      float64
	FinalScore         float64
	StaffingMultiplier float64

	ForecastRevenue  int64
	ForecastVisitors int64
	ActualRevenue    sql.NullInt64
	ActualVisitors   sql.NullInt64

	// Fallbacks counts inputs that used the neutral midpoint because no
	// history supported them; Flags names them.
	Fallbacks int
	Flags     []string
}

type ScoreRun struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	StartDate    time.Time
	EndDate      time.Time
	Locations    string
	Records      int
	Skipped      int
	Success      bool
	ErrorMessage sql.NullString
}

type ImportRun struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	LocationID   string
	File         string
	Layout       sql.NullString
	RowsParsed   int
	RowsStored   int
	RowsRejected int
	Success      bool
	ErrorMessage sql.NullString
}
