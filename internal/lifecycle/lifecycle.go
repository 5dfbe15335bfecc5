package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"pipecrm/internal/catalog"
	"pipecrm/internal/model"
)

var (
	// ErrMissingResult is returned when completing without a recorded outcome.
	ErrMissingResult = errors.New("activity result is required")
	// ErrMissingChainFields is returned when a chained follow-up lacks a
	// type or description.
	ErrMissingChainFields = errors.New("chained activity requires type and description")
	// ErrUnknownActivityType is returned when the chained type is not in
	// the catalog.
	ErrUnknownActivityType = errors.New("unknown activity type")
	// ErrAlreadyCompleted is returned when completing a completed activity.
	ErrAlreadyCompleted = errors.New("activity is already completed")
)

// ChainError reports that the original completion was persisted but the
// chained follow-up could not be created. The completion is not rolled
// back: completion is the durable fact, chaining is best-effort.
type ChainError struct {
	Err error
}

func (e *ChainError) Error() string {
	return "completed, but failed to create follow-up activity: " + e.Err.Error()
}

func (e *ChainError) Unwrap() error { return e.Err }

// NextActivity describes the follow-up created by chaining.
type NextActivity struct {
	TypeID      string     `json:"type_id"`
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// Feedback carries the completion outcome and the optional chained
// follow-up.
type Feedback struct {
	Result string        `json:"result"`
	Next   *NextActivity `json:"next_activity"`
}

// ActivityStore is the persistence collaborator for the lifecycle.
type ActivityStore interface {
	Get(ctx context.Context, activityID int) (model.Activity, error)
	Complete(ctx context.Context, activityID int, result string, completedAt time.Time) error
	SetCompleted(ctx context.Context, activityID int, completed bool, completedAt *time.Time) error
	Create(ctx context.Context, activity model.Activity) (model.Activity, error)
	ListByLead(ctx context.Context, leadID int) ([]model.Activity, error)
}

// Lifecycle owns the pending → completed state machine for activities,
// including the complete-and-chain transaction.
type Lifecycle struct {
	types *catalog.ActivityTypeCatalog
	store ActivityStore
	now   func() time.Time
}

func New(types *catalog.ActivityTypeCatalog, store ActivityStore) *Lifecycle {
	return &Lifecycle{
		types: types,
		store: store,
		now:   time.Now,
	}
}

// WithClock overrides the completion timestamp source.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	l.now = now
	return l
}

// Complete marks the activity completed with the given feedback, then (if
// requested) creates a chained pending follow-up for the same lead.
//
// Validation happens before any store call. The completion is one store
// operation; the chained creation is a second, separate one — if the
// completion succeeds and the chain fails, the completion stands and a
// ChainError is returned. The refreshed activity list for the lead is
// returned whenever the completion itself succeeded.
func (l *Lifecycle) Complete(ctx context.Context, activityID int, fb Feedback) ([]model.Activity, error) {
	if strings.TrimSpace(fb.Result) == "" {
		return nil, ErrMissingResult
	}
	if fb.Next != nil {
		if strings.TrimSpace(fb.Next.TypeID) == "" || strings.TrimSpace(fb.Next.Description) == "" {
			return nil, ErrMissingChainFields
		}
		if _, ok := l.types.Lookup(fb.Next.TypeID); !ok {
			return nil, ErrUnknownActivityType
		}
	}

	activity, err := l.store.Get(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity.IsCompleted {
		return nil, ErrAlreadyCompleted
	}

	if err := l.store.Complete(ctx, activityID, fb.Result, l.now()); err != nil {
		return nil, err
	}

	var chainErr error
	if fb.Next != nil {
		_, err := l.store.Create(ctx, model.Activity{
			LeadID:      activity.LeadID,
			TypeID:      fb.Next.TypeID,
			Description: fb.Next.Description,
			ScheduledAt: fb.Next.ScheduledAt,
		})
		if err != nil {
			chainErr = &ChainError{Err: err}
		}
	}

	activities, err := l.store.ListByLead(ctx, activity.LeadID)
	if err != nil {
		if chainErr != nil {
			return nil, chainErr
		}
		return nil, err
	}

	return activities, chainErr
}

// ToggleComplete flips the completed flag without requiring feedback. It
// is an administrative override: it bypasses chaining, and flipping to
// completed leaves the result whatever it previously held.
func (l *Lifecycle) ToggleComplete(ctx context.Context, activityID int) (model.Activity, error) {
	activity, err := l.store.Get(ctx, activityID)
	if err != nil {
		return model.Activity{}, err
	}

	if activity.IsCompleted {
		if err := l.store.SetCompleted(ctx, activityID, false, nil); err != nil {
			return model.Activity{}, err
		}
		activity.IsCompleted = false
		activity.CompletedAt = nil
		return activity, nil
	}

	now := l.now()
	if err := l.store.SetCompleted(ctx, activityID, true, &now); err != nil {
		return model.Activity{}, err
	}
	activity.IsCompleted = true
	activity.CompletedAt = &now
	return activity, nil
}
