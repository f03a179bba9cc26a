package ingest

import (
	"errors"
	"fmt"

	"github.com/lox/demandpeaks/internal/models"
)

var ErrNoHeader = errors.New("ingest: no header row")

// Rejected is a data row that failed validation.
type Rejected struct {
	Line  int
	Flags []string
}

// Result is the outcome of parsing one sheet.
type Result struct {
	Layout   LayoutVersion
	Days     []models.SalesDay
	Rejected []Rejected
	Parsed   int // non-blank data rows
	Stored   int
}

// Parse detects the layout from the first non-blank row and converts the
// remaining rows to daily aggregates for locationID. exclude names channels
// left out of the totals; nil keeps every channel.
func Parse(rows [][]string, locationID string, exclude func(string) bool) (*Result, error) {
	if exclude == nil {
		exclude = func(string) bool { return false }
	}

	headerAt := -1
	for i, row := range rows {
		if !blank(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrNoHeader
	}

	h := NewHeader(rows[headerAt])
	layout, err := Detect(h)
	if err != nil {
		return nil, fmt.Errorf("%w (columns: %v)", err, rows[headerAt])
	}

	res := &Result{Layout: layout.Version}
	seen := make(map[string]bool)
	for i := headerAt + 1; i < len(rows); i++ {
		cells := rows[i]
		if blank(cells) {
			continue
		}
		res.Parsed++

		row := Row{Line: i + 1}
		dateCell := ""
		if col := h["date"]; col < len(cells) {
			dateCell = cells[col]
		}
		if d, err := parseDate(dateCell); err != nil {
			row.Flags = append(row.Flags, FlagDateInvalid)
		} else {
			row.Date = d
		}
		if row.Revenue, row.Visitors, err = layout.totals(h, cells, exclude); err != nil {
			row.Flags = append(row.Flags, FlagValueInvalid)
		}

		if flags := ValidateRow(&row, seen); len(flags) > 0 {
			res.Rejected = append(res.Rejected, Rejected{Line: row.Line, Flags: flags})
			continue
		}
		res.Days = append(res.Days, models.SalesDay{
			LocationID: locationID,
			Date:       row.Date,
			Revenue:    row.Revenue,
			Visitors:   row.Visitors,
			Source:     string(layout.Version),
		})
	}
	return res, nil
}
