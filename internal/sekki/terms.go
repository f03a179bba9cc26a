// Package sekki resolves calendar dates to the 24 solar terms used as a
// seasonal bucketing dimension.
package sekki

import "math"

// Season groups term ranks into demand bands.
type Season string

const (
	SeasonTop  Season = "TOP"
	SeasonHigh Season = "HIGH"
	SeasonFlow Season = "FLOW"
	SeasonLow  Season = "LOW"
	SeasonOff  Season = "OFF"
)

// Count is the number of terms in a year.
const Count = 24

// Term is one of the 24 solar terms.
type Term struct {
	Name         string  // romanised, lower case
	Kanji        string
	Ordinal      int     // 1 = Shokan (early January) ... 24 = Toji
	Rank         int     // 1 = busiest ... 24 = quietest
	Season       Season
	SeasonPoints float64 // 5.00 for rank 1 down to 1.00 for rank 24
}

type termDef struct {
	name  string
	kanji string
	rank  int
}

// Chronological order within a calendar year. Ranks follow the demand profile
// of the mountain and tower locations: late summer and early autumn peak, the
// thaw and early spring are the quietest.
var termDefs = [Count]termDef{
	{"shokan", "小寒", 18},
	{"daikan", "大寒", 21},
	{"risshun", "立春", 16},
	{"usui", "雨水", 15},
	{"keichitsu", "啓蟄", 23},
	{"shunbun", "春分", 20},
	{"seimei", "清明", 24},
	{"kokuu", "穀雨", 19},
	{"rikka", "立夏", 14},
	{"shoman", "小満", 13},
	{"boshu", "芒種", 11},
	{"geshi", "夏至", 8},
	{"shousho", "小暑", 6},
	{"taisho", "大暑", 4},
	{"risshu", "立秋", 3},
	{"shosho", "処暑", 2},
	{"hakuro", "白露", 1},
	{"shubun", "秋分", 5},
	{"kanro", "寒露", 7},
	{"soko", "霜降", 12},
	{"ritto", "立冬", 17},
	{"shosetsu", "小雪", 22},
	{"taisetsu", "大雪", 9},
	{"toji", "冬至", 10},
}

var (
	terms      [Count]Term
	termByName = make(map[string]Term, Count)
)

func init() {
	for i, d := range termDefs {
		t := Term{
			Name:         d.name,
			Kanji:        d.kanji,
			Ordinal:      i + 1,
			Rank:         d.rank,
			Season:       seasonForRank(d.rank),
			SeasonPoints: seasonPoints(d.rank),
		}
		terms[i] = t
		termByName[t.Name] = t
	}
}

func seasonForRank(rank int) Season {
	switch {
	case rank <= 4:
		return SeasonTop
	case rank <= 9:
		return SeasonHigh
	case rank <= 14:
		return SeasonFlow
	case rank <= 19:
		return SeasonLow
	default:
		return SeasonOff
	}
}

func seasonPoints(rank int) float64 {
	p := 5.0 - float64(rank-1)*4.0/float64(Count-1)
	return math.Round(p*100) / 100
}

// Terms returns all terms in chronological order.
func Terms() []Term {
	out := make([]Term, Count)
	copy(out, terms[:])
	return out
}

// ByOrdinal returns the term with the given chronological ordinal (1..24).
func ByOrdinal(ordinal int) (Term, bool) {
	if ordinal < 1 || ordinal > Count {
		return Term{}, false
	}
	return terms[ordinal-1], true
}

// ByName looks a term up by its romanised name.
func ByName(name string) (Term, bool) {
	t, ok := termByName[name]
	return t, ok
}
