package ingest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// LayoutVersion identifies a supported spreadsheet column layout.
type LayoutVersion string

const (
	LayoutGrandTotalV1   LayoutVersion = "grand-total-v1"
	LayoutSimpleTotalV1  LayoutVersion = "simple-total-v1"
	LayoutChannelSplitV2 LayoutVersion = "channel-split-v2"
)

var ErrUnknownLayout = errors.New("ingest: header matches no known layout")

// Header maps normalised column names to their index.
type Header map[string]int

// NewHeader normalises a header row. Blank cells are ignored; the first of
// any duplicated names wins.
func NewHeader(cells []string) Header {
	h := make(Header, len(cells))
	for i, c := range cells {
		name := NormalizeColumn(c)
		if name == "" {
			continue
		}
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

// NormalizeColumn lower-cases a header cell and joins words with
// underscores: "Grand Total" and "grand-total" both become "grand_total".
func NormalizeColumn(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '/':
			return '_'
		}
		return r
	}, s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

func (h Header) has(names ...string) bool {
	for _, n := range names {
		if _, ok := h[n]; !ok {
			return false
		}
	}
	return true
}

// channels lists the channel prefixes with a <ch>_total or <ch>_count
// column, sorted. Names in skip are left out.
func (h Header) channels(skip ...string) []string {
	seen := make(map[string]bool)
	for name := range h {
		for _, suffix := range []string{"_total", "_count"} {
			if ch, ok := strings.CutSuffix(name, suffix); ok && ch != "" {
				seen[ch] = true
			}
		}
	}
	for _, s := range skip {
		delete(seen, s)
	}
	out := make([]string, 0, len(seen))
	for ch := range seen {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Layout describes how one LayoutVersion turns a row into daily totals.
type Layout struct {
	Version LayoutVersion
	// match returns the layout's specificity for a header, or 0 when the
	// header does not carry the required columns.
	match func(Header) int
	// totals sums revenue and visitors for one row, leaving out excluded
	// channels.
	totals func(h Header, row []string, exclude func(string) bool) (revenue, visitors int64, err error)
}

var layouts = []Layout{
	{
		Version: LayoutGrandTotalV1,
		match: func(h Header) int {
			if !h.has("date", "grand_total", "l_count", "d_count") {
				return 0
			}
			return 4
		},
		totals: grandTotals,
	},
	{
		Version: LayoutSimpleTotalV1,
		match: func(h Header) int {
			if !h.has("date", "total", "count") {
				return 0
			}
			return 3
		},
		totals: func(h Header, row []string, _ func(string) bool) (int64, int64, error) {
			rev, err := cellInt(row, h["total"])
			if err != nil {
				return 0, 0, fmt.Errorf("total: %w", err)
			}
			vis, err := cellInt(row, h["count"])
			if err != nil {
				return 0, 0, fmt.Errorf("count: %w", err)
			}
			return rev, vis, nil
		},
	},
	{
		Version: LayoutChannelSplitV2,
		match: func(h Header) int {
			if !h.has("date") || h.has("grand_total") || h.has("total") {
				return 0
			}
			pairs := 0
			for _, ch := range h.channels() {
				if h.has(ch+"_total", ch+"_count") {
					pairs++
				}
			}
			if pairs == 0 {
				return 0
			}
			return 1 + 2*pairs
		},
		totals: channelTotals,
	},
}

// Layouts lists the registered layout versions.
func Layouts() []LayoutVersion {
	out := make([]LayoutVersion, len(layouts))
	for i, l := range layouts {
		out[i] = l.Version
	}
	return out
}

// Detect picks the most specific layout whose required columns are all in
// the header.
func Detect(h Header) (Layout, error) {
	best, bestScore := Layout{}, 0
	for _, l := range layouts {
		if s := l.match(h); s > bestScore {
			best, bestScore = l, s
		}
	}
	if bestScore == 0 {
		return Layout{}, ErrUnknownLayout
	}
	return best, nil
}

// grandTotals takes the grand total and subtracts excluded channels' sales.
// Visitors are the sum of the non-excluded channel counts.
func grandTotals(h Header, row []string, exclude func(string) bool) (int64, int64, error) {
	rev, err := cellInt(row, h["grand_total"])
	if err != nil {
		return 0, 0, fmt.Errorf("grand_total: %w", err)
	}
	var vis int64
	for _, ch := range h.channels("grand") {
		excluded := exclude(ch)
		if col, ok := h[ch+"_total"]; ok && excluded {
			v, err := cellInt(row, col)
			if err != nil {
				return 0, 0, fmt.Errorf("%s_total: %w", ch, err)
			}
			rev -= v
		}
		if col, ok := h[ch+"_count"]; ok && !excluded {
			v, err := cellInt(row, col)
			if err != nil {
				return 0, 0, fmt.Errorf("%s_count: %w", ch, err)
			}
			vis += v
		}
	}
	return rev, vis, nil
}

func channelTotals(h Header, row []string, exclude func(string) bool) (int64, int64, error) {
	var rev, vis int64
	for _, ch := range h.channels() {
		if exclude(ch) {
			continue
		}
		if col, ok := h[ch+"_total"]; ok {
			v, err := cellInt(row, col)
			if err != nil {
				return 0, 0, fmt.Errorf("%s_total: %w", ch, err)
			}
			rev += v
		}
		if col, ok := h[ch+"_count"]; ok {
			v, err := cellInt(row, col)
			if err != nil {
				return 0, 0, fmt.Errorf("%s_count: %w", ch, err)
			}
			vis += v
		}
	}
	return rev, vis, nil
}
