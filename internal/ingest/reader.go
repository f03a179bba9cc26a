package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReadFile reads every row of a CSV or XLSX file. sheet selects the
// worksheet of a workbook; empty means the first one.
func ReadFile(path, sheet string) ([][]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(path, content, sheet)
}

// Decode parses file content, choosing the reader by name's extension.
func Decode(name string, content []byte, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(bytes.NewReader(content))
	case ".xlsx", ".xlsm":
		return ReadXLSX(bytes.NewReader(content), sheet)
	default:
		return nil, fmt.Errorf("ingest: unsupported file type %q", filepath.Ext(name))
	}
}

func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func ReadXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006.01.02",
	"01-02-06", // excelize rendering of the built-in date format
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

// Serial day numbers between 1954 and 2119.
const (
	minSerialDate = 20000
	maxSerialDate = 80000
)

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minSerialDate && f < maxSerialDate {
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// cellInt parses a numeric cell. Thousands separators, currency signs and
// surrounding space are ignored; blank and missing cells read as zero.
func cellInt(row []string, col int) (int64, error) {
	if col < 0 || col >= len(row) {
		return 0, nil
	}
	s := strings.TrimSpace(row[col])
	s = strings.NewReplacer(",", "", "¥", "", "￥", "", "$", "", " ", "").Replace(s)
	if s == "" || s == "-" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", row[col])
	}
	return int64(math.Round(f)), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
