package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pipecrm/internal/model"
)

func ts(t time.Time) *time.Time { return &t }

func TestGroupPartitionsByDueDate(t *testing.T) {
	ref := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	yesterday := ts(ref.AddDate(0, 0, -1))
	lastWeek := ts(ref.AddDate(0, 0, -7))
	todayMorning := ts(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	todayEvening := ts(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC))
	tomorrow := ts(ref.AddDate(0, 0, 1))
	nextWeek := ts(ref.AddDate(0, 0, 7))

	activities := []model.Activity{
		{ID: 1, ScheduledAt: lastWeek},
		{ID: 2, ScheduledAt: yesterday},
		{ID: 3, ScheduledAt: todayMorning},
		{ID: 4, ScheduledAt: todayEvening},
		{ID: 5, ScheduledAt: tomorrow},
		{ID: 6, ScheduledAt: nextWeek},
		{ID: 7, ScheduledAt: nil}, // unscheduled, lands nowhere
	}

	b := Group(activities, ref)

	ids := func(as []model.Activity) []int {
		out := make([]int, 0, len(as))
		for _, a := range as {
			out = append(out, a.ID)
		}
		return out
	}

	require.Equal(t, []int{1, 2}, ids(b.Overdue))
	require.Equal(t, []int{3, 4}, ids(b.Today))
	require.Equal(t, []int{5}, ids(b.Tomorrow))
	require.Equal(t, []int{6}, ids(b.Upcoming))

	// Partition property: buckets cover exactly the scheduled subset.
	total := len(b.Overdue) + len(b.Today) + len(b.Tomorrow) + len(b.Upcoming)
	require.Equal(t, 6, total)
}

func TestGroupScenarioYesterdayAndToday(t *testing.T) {
	ref := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	a := model.Activity{ID: 1, ScheduledAt: ts(ref.AddDate(0, 0, -1))}
	b := model.Activity{ID: 2, ScheduledAt: ts(ref)}

	got := Group([]model.Activity{a, b}, ref)

	require.Len(t, got.Overdue, 1)
	require.Equal(t, 1, got.Overdue[0].ID)
	require.Len(t, got.Today, 1)
	require.Equal(t, 2, got.Today[0].ID)
	require.Empty(t, got.Tomorrow)
	require.Empty(t, got.Upcoming)
}

func TestGroupIsPure(t *testing.T) {
	ref := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	activities := []model.Activity{
		{ID: 1, ScheduledAt: ts(ref.AddDate(0, 0, -2))},
		{ID: 2, ScheduledAt: ts(ref.AddDate(0, 0, 3))},
	}

	first := Group(activities, ref)
	second := Group(activities, ref)
	require.Equal(t, first, second)
}

func TestGroupStatsCountsUnscheduledPending(t *testing.T) {
	ref := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	activities := []model.Activity{
		{ID: 1, ScheduledAt: ts(ref.AddDate(0, 0, -1))},              // overdue
		{ID: 2, ScheduledAt: ts(ref)},                                // today
		{ID: 3, ScheduledAt: ts(ref.AddDate(0, 0, 1))},               // upcoming (tomorrow)
		{ID: 4, ScheduledAt: nil},                                    // unscheduled pending
		{ID: 5, ScheduledAt: ts(ref), IsCompleted: true, Result: "x"}, // completed, excluded
	}

	stats := GroupStats(activities, ref)

	require.Equal(t, 4, stats.Pending)
	require.Equal(t, 1, stats.Overdue)
	require.Equal(t, 1, stats.Today)
	require.Equal(t, 1, stats.Upcoming)

	// Unscheduled pending counts toward pending but lands in no bucket.
	require.Greater(t, stats.Pending, stats.Overdue+stats.Today+stats.Upcoming)
}
