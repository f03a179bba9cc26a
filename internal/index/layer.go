// Package index builds the per-location calendar layer tables from sales
// history and holds them for read-only use during a scoring run.
package index

import (
	"fmt"
	"math"
	"time"

	"github.com/lox/demandpeaks/internal/models"
	"github.com/lox/demandpeaks/internal/sekki"
)

const (
	ScoreMin = 1.00
	ScoreMax = 5.00
	Midpoint = 3.00
)

// Dimension is a calendar bucketing of dates.
type Dimension int

const (
	DimMonth Dimension = iota
	DimTerm
	DimWeek
	DimWeekday
)

func (d Dimension) String() string {
	switch d {
	case DimMonth:
		return "month"
	case DimTerm:
		return "term"
	case DimWeek:
		return "week"
	case DimWeekday:
		return "weekday"
	}
	return fmt.Sprintf("dimension(%d)", int(d))
}

// Domain lists every bucket key of the dimension in order.
func (d Dimension) Domain() []int {
	var lo, hi int
	switch d {
	case DimMonth:
		lo, hi = 1, 12
	case DimTerm:
		lo, hi = 1, sekki.Count
	case DimWeek:
		lo, hi = 1, 52
	case DimWeekday:
		lo, hi = 0, 6
	}
	keys := make([]int, 0, hi-lo+1)
	for k := lo; k <= hi; k++ {
		keys = append(keys, k)
	}
	return keys
}

// KeyFunc maps a date to its bucket key within one dimension.
type KeyFunc func(time.Time) (int, error)

// KeyFunc returns the bucket mapping for the dimension. Term keys are the
// term's chronological ordinal; ISO week 53 folds into 52; weekdays use
// time.Weekday numbering (Sunday = 0).
func (d Dimension) KeyFunc(table *sekki.Table) KeyFunc {
	switch d {
	case DimTerm:
		return func(t time.Time) (int, error) {
			term, err := table.Resolve(t)
			if err != nil {
				return 0, err
			}
			return term.Ordinal, nil
		}
	case DimWeek:
		return func(t time.Time) (int, error) {
			return ISOWeek(t), nil
		}
	case DimWeekday:
		return func(t time.Time) (int, error) {
			return int(t.Weekday()), nil
		}
	default:
		return func(t time.Time) (int, error) {
			return int(t.Month()), nil
		}
	}
}

// ISOWeek returns the ISO week number with week 53 folded into 52.
func ISOWeek(t time.Time) int {
	_, w := t.ISOWeek()
	if w > 52 {
		w = 52
	}
	return w
}

// Layer is one dimension's normalised score table. Unobserved buckets hold
// the neutral midpoint.
type Layer struct {
	Dimension Dimension
	Scores    map[int]float64
	Means     map[int]float64
	Observed  map[int]bool
}

// Score returns the bucket's score and whether history supported it.
func (l *Layer) Score(key int) (float64, bool) {
	s, ok := l.Scores[key]
	if !ok {
		return Midpoint, false
	}
	return s, l.Observed[key]
}

// Unobserved counts buckets that fell back to the midpoint.
func (l *Layer) Unobserved() int {
	n := 0
	for _, ok := range l.Observed {
		if !ok {
			n++
		}
	}
	return n
}

// BuildLayer groups operating days by key and min-max normalises the bucket
// means over domain. Days whose key cannot be computed are skipped and
// counted.
func BuildLayer(days []models.SalesDay, dim Dimension, key KeyFunc, domain []int) (*Layer, int) {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	skipped := 0
	for _, d := range days {
		if !d.Operating() {
			continue
		}
		k, err := key(d.Date)
		if err != nil {
			skipped++
			continue
		}
		sums[k] += float64(d.Revenue)
		counts[k]++
	}

	means := make(map[int]float64, len(counts))
	for _, k := range domain {
		if counts[k] > 0 {
			means[k] = sums[k] / float64(counts[k])
		}
	}

	layer := &Layer{
		Dimension: dim,
		Scores:    Normalize(means, domain),
		Means:     means,
		Observed:  make(map[int]bool, len(domain)),
	}
	for _, k := range domain {
		_, ok := means[k]
		layer.Observed[k] = ok
	}
	return layer, skipped
}

// Normalize rescales the observed means linearly onto [1.00, 5.00] using the
// min and max across observed buckets. Constant means map to the midpoint,
// and domain keys without a mean get the midpoint too.
func Normalize(means map[int]float64, domain []int) map[int]float64 {
	out := make(map[int]float64, len(domain))
	first := true
	var lo, hi float64
	for _, k := range domain {
		v, ok := means[k]
		if !ok {
			continue
		}
		if first || v < lo {
			lo = v
		}
		if first || v > hi {
			hi = v
		}
		first = false
	}

	for _, k := range domain {
		v, ok := means[k]
		if !ok {
			out[k] = Midpoint
			continue
		}
		out[k] = Scale(v, lo, hi)
	}
	return out
}

// Scale maps v from [lo, hi] onto [1.00, 5.00], clamped and rounded. A
// degenerate range maps to the midpoint.
func Scale(v, lo, hi float64) float64 {
	if hi == lo {
		return Midpoint
	}
	s := ScoreMin + (v-lo)/(hi-lo)*(ScoreMax-ScoreMin)
	return Round2(Clamp(s, ScoreMin, ScoreMax))
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
