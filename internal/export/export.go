// Package export writes demand score records as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lox/demandpeaks/internal/models"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Columns is the fixed field set of an exported record.
var Columns = []string{
	"date", "location", "term", "term_rank", "season",
	"monthly_index", "term_index", "week_index", "weekday_index", "special_day_index", "special_day_name",
	"seasonal_composite", "weekday_multiplier", "final_seasonal",
	"revenue_factor", "visitor_factor", "final_score", "staffing_multiplier",
	"forecast_revenue", "forecast_visitors", "actual_revenue", "actual_visitors",
	"fallbacks", "flags",
}

// Record is the interchange form of models.DemandScore.
type Record struct {
	Date               string   `json:"date"`
	Location           string   `json:"location"`
	Term               string   `json:"term"`
	TermRank           int      `json:"term_rank"`
	Season             string   `json:"season"`
	MonthlyIndex       float64  `json:"monthly_index"`
	TermIndex          float64  `json:"term_index"`
	WeekIndex          float64  `json:"week_index"`
	WeekdayIndex       float64  `json:"weekday_index"`
	SpecialDayIndex    *float64 `json:"special_day_index"`
	SpecialDayName     string   `json:"special_day_name,omitempty"`
	SeasonalComposite  float64  `json:"seasonal_composite"`
	WeekdayMultiplier  float64  `json:"weekday_multiplier"`
	FinalSeasonal      float64  `json:"final_seasonal"`
	RevenueFactor      float64  `json:"revenue_factor"`
	VisitorFactor      float64  `json:"visitor_factor"`
	FinalScore         float64  `json:"final_score"`
	StaffingMultiplier float64  `json:"staffing_multiplier"`
	ForecastRevenue    int64    `json:"forecast_revenue"`
	ForecastVisitors   int64    `json:"forecast_visitors"`
	ActualRevenue      *int64   `json:"actual_revenue"`
	ActualVisitors     *int64   `json:"actual_visitors"`
	Fallbacks          int      `json:"fallbacks"`
	Flags              []string `json:"flags"`
}

func NewRecord(r models.DemandScore) Record {
	out := Record{
		Date:               r.Date.Format(models.DateLayout),
		Location:           r.LocationID,
		Term:               r.Term,
		TermRank:           r.TermRank,
		Season:             r.Season,
		MonthlyIndex:       r.MonthlyIndex,
		TermIndex:          r.TermIndex,
		WeekIndex:          r.WeekIndex,
		WeekdayIndex:       r.WeekdayIndex,
		SpecialDayName:     r.SpecialDayName,
		SeasonalComposite:  r.SeasonalComposite,
		WeekdayMultiplier:  r.WeekdayMultiplier,
		FinalSeasonal:      r.FinalSeasonal,
		RevenueFactor:      r.RevenueFactor,
		VisitorFactor:      r.VisitorFactor,
		FinalScore:         r.FinalScore,
		StaffingMultiplier: r.StaffingMultiplier,
		ForecastRevenue:    r.ForecastRevenue,
		ForecastVisitors:   r.ForecastVisitors,
		Fallbacks:          r.Fallbacks,
		Flags:              r.Flags,
	}
	if out.Flags == nil {
		out.Flags = []string{}
	}
	if r.SpecialDayIndex.Valid {
		v := r.SpecialDayIndex.Float64
		out.SpecialDayIndex = &v
	}
	if r.ActualRevenue.Valid {
		v := r.ActualRevenue.Int64
		out.ActualRevenue = &v
	}
	if r.ActualVisitors.Valid {
		v := r.ActualVisitors.Int64
		out.ActualVisitors = &v
	}
	return out
}

// Write encodes records in the given format.
func Write(w io.Writer, format Format, records []models.DemandScore) error {
	switch format {
	case FormatCSV, "":
		return WriteCSV(w, records)
	case FormatJSON:
		return WriteJSON(w, records)
	}
	return fmt.Errorf("export: unknown format %q", format)
}

// WriteCSV writes a header row then one row per record. Scores use two
// decimals; missing optional values are empty cells.
func WriteCSV(w io.Writer, records []models.DemandScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		rec := NewRecord(r)
		row := []string{
			rec.Date, rec.Location, rec.Term, strconv.Itoa(rec.TermRank), rec.Season,
			score(rec.MonthlyIndex), score(rec.TermIndex), score(rec.WeekIndex), score(rec.WeekdayIndex),
			optScore(rec.SpecialDayIndex), rec.SpecialDayName,
			score(rec.SeasonalComposite), score(rec.WeekdayMultiplier), score(rec.FinalSeasonal),
			score(rec.RevenueFactor), score(rec.VisitorFactor), score(rec.FinalScore), score(rec.StaffingMultiplier),
			strconv.FormatInt(rec.ForecastRevenue, 10), strconv.FormatInt(rec.ForecastVisitors, 10),
			optInt(rec.ActualRevenue), optInt(rec.ActualVisitors),
			strconv.Itoa(rec.Fallbacks), strings.Join(rec.Flags, ";"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, records []models.DemandScore) error {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = NewRecord(r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optScore(v *float64) string {
	if v == nil {
		return ""
	}
	return score(*v)
}

func optInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
