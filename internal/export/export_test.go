package export

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/demandpeaks/internal/models"
)

func sample() []models.DemandScore {
	return []models.DemandScore{
		{
			Date:               time.Date(2026, time.May, 5, 0, 0, 0, 0, time.UTC),
			LocationID:         "TV_TOWER",
			Term:               "rikka",
			TermRank:           14,
			Season:             "FLOW",
			MonthlyIndex:       3.5,
			TermIndex:          3,
			WeekIndex:          4.25,
			WeekdayIndex:       2.1,
			SpecialDayIndex:    sql.NullFloat64{Float64: 5, Valid: true},
			SpecialDayName:     "Children's Day",
			SeasonalComposite:  3.94,
			WeekdayMultiplier:  0.9,
			FinalSeasonal:      3.55,
			RevenueFactor:      4,
			VisitorFactor:      3.8,
			FinalScore:         3.78,
			StaffingMultiplier: 1.3,
			ForecastRevenue:    15000,
			ForecastVisitors:   120,
			ActualRevenue:      sql.NullInt64{Int64: 16000, Valid: true},
			Fallbacks:          1,
			Flags:              []string{"week_unobserved"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sample()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Columns, ","), lines[0])
	assert.Equal(t,
		"2026-05-05,TV_TOWER,rikka,14,FLOW,3.50,3.00,4.25,2.10,5.00,Children's Day,3.94,0.90,3.55,4.00,3.80,3.78,1.30,15000,120,16000,,1,week_unobserved",
		lines[1])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sample()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "2026-05-05", got[0]["date"])
	assert.Equal(t, 3.78, got[0]["final_score"])
	assert.Equal(t, 5.0, got[0]["special_day_index"])
	assert.Nil(t, got[0]["actual_visitors"])
	assert.Len(t, got[0], len(Columns))
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "xml", nil))
}

func TestWriteJSON_EmptyFlags(t *testing.T) {
	recs := sample()
	recs[0].Flags = nil
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, recs))
	assert.Contains(t, buf.String(), `"flags": []`)
}
