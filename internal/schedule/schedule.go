package schedule

import (
	"time"

	"pipecrm/internal/model"
)

// Buckets is the temporal grouping of scheduled activities relative to a
// reference date. The four buckets are disjoint and together hold exactly
// the activities with a non-nil ScheduledAt.
type Buckets struct {
	Overdue  []model.Activity `json:"overdue"`
	Today    []model.Activity `json:"today"`
	Tomorrow []model.Activity `json:"tomorrow"`
	Upcoming []model.Activity `json:"upcoming"`
}

// Stats summarizes the uncompleted workload. Pending counts every
// uncompleted activity, scheduled or not, so it may exceed the sum of the
// date buckets.
type Stats struct {
	Pending  int `json:"pending"`
	Overdue  int `json:"overdue"`
	Today    int `json:"today"`
	Upcoming int `json:"upcoming"`
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Group buckets activities by their scheduled date relative to ref.
// Unscheduled activities are excluded; input order is preserved within
// each bucket. Pure function, safe to call repeatedly.
func Group(activities []model.Activity, ref time.Time) Buckets {
	today := midnight(ref)
	tomorrow := today.AddDate(0, 0, 1)

	var b Buckets
	for _, a := range activities {
		if a.ScheduledAt == nil {
			continue
		}
		due := midnight(a.ScheduledAt.In(ref.Location()))
		switch {
		case due.Before(today):
			b.Overdue = append(b.Overdue, a)
		case due.Equal(today):
			b.Today = append(b.Today, a)
		case due.Equal(tomorrow):
			b.Tomorrow = append(b.Tomorrow, a)
		default:
			b.Upcoming = append(b.Upcoming, a)
		}
	}
	return b
}

// GroupStats computes summary counts over the uncompleted subset, using
// ref as the reference date.
func GroupStats(activities []model.Activity, ref time.Time) Stats {
	var pending []model.Activity
	for _, a := range activities {
		if !a.IsCompleted {
			pending = append(pending, a)
		}
	}

	b := Group(pending, ref)
	return Stats{
		Pending:  len(pending),
		Overdue:  len(b.Overdue),
		Today:    len(b.Today),
		Upcoming: len(b.Tomorrow) + len(b.Upcoming),
	}
}
