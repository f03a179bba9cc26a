package ingest

import (
	"encoding/json"
	"time"

	"github.com/lox/demandpeaks/internal/models"
)

const (
	FlagDateInvalid      = "date_invalid"
	FlagValueInvalid     = "value_invalid"
	FlagRevenueNegative  = "revenue_negative"
	FlagVisitorsNegative = "visitors_negative"
	FlagDuplicateDate    = "duplicate_date"
)

// Row is one parsed data row before validation.
type Row struct {
	Line     int // 1-based line or spreadsheet row number
	Date     time.Time
	Revenue  int64
	Visitors int64
	Flags    []string
}

// ValidateRow appends the row's validation flags. seen tracks accepted dates
// so repeats are flagged.
func ValidateRow(row *Row, seen map[string]bool) []string {
	flags := row.Flags

	if row.Revenue < 0 {
		flags = append(flags, FlagRevenueNegative)
	}
	if row.Visitors < 0 {
		flags = append(flags, FlagVisitorsNegative)
	}

	if !row.Date.IsZero() {
		key := row.Date.Format(models.DateLayout)
		if seen[key] {
			flags = append(flags, FlagDuplicateDate)
		} else if len(flags) == 0 {
			seen[key] = true
		}
	}

	return flags
}

func FlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}
