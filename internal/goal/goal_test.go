package goal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregateFiltersToMonthInclusive(t *testing.T) {
	march := Month{Year: 2026, Month: time.March}

	records := []Record{
		{OccurredAt: time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC), Values: map[string]float64{"amount": 100}},
		{OccurredAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Values: map[string]float64{"amount": 10, "count": 1}},
		{OccurredAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC), Values: map[string]float64{"amount": 25, "count": 1}},
		{OccurredAt: time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC), Values: map[string]float64{"amount": 5, "count": 1}},
		{OccurredAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), Values: map[string]float64{"amount": 999}},
	}

	totals := Aggregate(records, march, []string{"amount", "count"})

	require.Equal(t, 40.0, totals["amount"])
	require.Equal(t, 3.0, totals["count"])
}

func TestAggregateEmptyMonthYieldsZeros(t *testing.T) {
	totals := Aggregate(nil, Month{Year: 2026, Month: time.June}, []string{"amount"})
	require.Equal(t, 0.0, totals["amount"])
}

func TestMonthRange(t *testing.T) {
	first, last := Month{Year: 2026, Month: time.February}.Range(time.UTC)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), first)
	require.Equal(t, time.February, last.Month())
	require.Equal(t, 28, last.Day())
}

func TestProgressClamp(t *testing.T) {
	require.Equal(t, 100.0, Progress(150, 100))
	require.Equal(t, 0.0, Progress(5, 0))
	require.Equal(t, 0.0, Progress(0, 100))
	require.Equal(t, 50.0, Progress(50, 100))
}
