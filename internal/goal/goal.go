package goal

import (
	"time"
)

// Month identifies a calendar aggregation window for quota tracking.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the Month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Range returns the inclusive [first instant, last instant] bounds of the
// month in the given location.
func (m Month) Range(loc *time.Location) (time.Time, time.Time) {
	first := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return first, last
}

// Contains reports whether t falls within the month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// Record is one dated entry of an arbitrary collection (an activity with
// counts, a sale with amounts). Values holds the numeric fields that may
// be summed.
type Record struct {
	OccurredAt time.Time
	Values     map[string]float64
}

// Aggregate filters records to the month and sums each declared field
// across the filtered set. Pure function of its inputs; the caller owns
// any caching and its invalidation.
func Aggregate(records []Record, m Month, fields []string) map[string]float64 {
	totals := make(map[string]float64, len(fields))
	for _, f := range fields {
		totals[f] = 0
	}

	for _, r := range records {
		if !m.Contains(r.OccurredAt) {
			continue
		}
		for _, f := range fields {
			totals[f] += r.Values[f]
		}
	}
	return totals
}

// Progress returns the canonical display percentage of actual against
// target, clamped to [0,100]. A target of zero (or less) yields 0 rather
// than a division by zero; callers needing over-achievement magnitude
// must compute the raw ratio themselves.
func Progress(actual, target float64) float64 {
	if target <= 0 {
		return 0
	}
	pct := actual / target * 100
	if pct > 100 {
		return 100
	}
	return pct
}
