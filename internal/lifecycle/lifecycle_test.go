package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pipecrm/internal/catalog"
	"pipecrm/internal/model"
)

func testTypes() *catalog.ActivityTypeCatalog {
	return catalog.NewActivityTypeCatalog([]model.ActivityType{
		{ID: "call", Label: "Call"},
		{ID: "message", Label: "Message"},
		{ID: "visit", Label: "Visit"},
	})
}

type stubActivityStore struct {
	activities map[int]model.Activity
	nextID     int

	completeErr error
	createErr   error
	listErr     error

	completeCalls int
	createCalls   int
}

func newStubActivityStore(activities ...model.Activity) *stubActivityStore {
	s := &stubActivityStore{
		activities: make(map[int]model.Activity),
		nextID:     100,
	}
	for _, a := range activities {
		s.activities[a.ID] = a
	}
	return s
}

func (s *stubActivityStore) Get(_ context.Context, id int) (model.Activity, error) {
	a, ok := s.activities[id]
	if !ok {
		return model.Activity{}, errors.New("activity not found")
	}
	return a, nil
}

func (s *stubActivityStore) Complete(_ context.Context, id int, result string, at time.Time) error {
	s.completeCalls++
	if s.completeErr != nil {
		return s.completeErr
	}
	a := s.activities[id]
	a.IsCompleted = true
	a.CompletedAt = &at
	a.Result = result
	s.activities[id] = a
	return nil
}

func (s *stubActivityStore) SetCompleted(_ context.Context, id int, completed bool, at *time.Time) error {
	a := s.activities[id]
	a.IsCompleted = completed
	a.CompletedAt = at
	s.activities[id] = a
	return nil
}

func (s *stubActivityStore) Create(_ context.Context, a model.Activity) (model.Activity, error) {
	s.createCalls++
	if s.createErr != nil {
		return model.Activity{}, s.createErr
	}
	s.nextID++
	a.ID = s.nextID
	s.activities[a.ID] = a
	return a, nil
}

func (s *stubActivityStore) ListByLead(_ context.Context, leadID int) ([]model.Activity, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Activity
	for _, a := range s.activities {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestCompleteRequiresResult(t *testing.T) {
	store := newStubActivityStore(model.Activity{ID: 1, LeadID: 7})
	lc := New(testTypes(), store)

	_, err := lc.Complete(context.Background(), 1, Feedback{Result: "   "})
	require.ErrorIs(t, err, ErrMissingResult)
	require.Equal(t, 0, store.completeCalls)
}

func TestCompleteValidatesChainBeforePersisting(t *testing.T) {
	store := newStubActivityStore(model.Activity{ID: 1, LeadID: 7})
	lc := New(testTypes(), store)

	_, err := lc.Complete(context.Background(), 1, Feedback{
		Result: "spoke with client",
		Next:   &NextActivity{TypeID: "call", Description: ""},
	})
	require.ErrorIs(t, err, ErrMissingChainFields)
	require.Equal(t, 0, store.completeCalls)

	_, err = lc.Complete(context.Background(), 1, Feedback{
		Result: "spoke with client",
		Next:   &NextActivity{TypeID: "telepathy", Description: "follow up"},
	})
	require.ErrorIs(t, err, ErrUnknownActivityType)
	require.Equal(t, 0, store.completeCalls)
}

func TestCompleteRejectsAlreadyCompleted(t *testing.T) {
	done := time.Now()
	store := newStubActivityStore(model.Activity{
		ID: 1, LeadID: 7, IsCompleted: true, CompletedAt: &done, Result: "done",
	})
	lc := New(testTypes(), store)

	_, err := lc.Complete(context.Background(), 1, Feedback{Result: "again"})
	require.ErrorIs(t, err, ErrAlreadyCompleted)
	require.Equal(t, 0, store.completeCalls)
}

func TestCompleteSetsCompletionFields(t *testing.T) {
	store := newStubActivityStore(model.Activity{ID: 1, LeadID: 7})
	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	lc := New(testTypes(), store).WithClock(func() time.Time { return at })

	activities, err := lc.Complete(context.Background(), 1, Feedback{Result: "reached by phone"})
	require.NoError(t, err)
	require.Len(t, activities, 1)

	got := store.activities[1]
	require.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)
	require.Equal(t, at, *got.CompletedAt)
	require.Equal(t, "reached by phone", got.Result)
}

func TestCompleteWithChainCreatesFollowUp(t *testing.T) {
	store := newStubActivityStore(model.Activity{ID: 1, LeadID: 7})
	lc := New(testTypes(), store)

	tomorrow := time.Now().AddDate(0, 0, 1)
	activities, err := lc.Complete(context.Background(), 1, Feedback{
		Result: "done",
		Next: &NextActivity{
			TypeID:      "call",
			Description: "follow up",
			ScheduledAt: &tomorrow,
		},
	})
	require.NoError(t, err)
	require.Len(t, activities, 2)

	var chained *model.Activity
	for _, a := range activities {
		if a.ID != 1 {
			chained = &a
			break
		}
	}
	require.NotNil(t, chained)
	require.Equal(t, 7, chained.LeadID)
	require.Equal(t, "call", chained.TypeID)
	require.Equal(t, "follow up", chained.Description)
	require.False(t, chained.IsCompleted)
}

func TestChainFailureLeavesCompletionIntact(t *testing.T) {
	store := newStubActivityStore(model.Activity{ID: 1, LeadID: 7})
	store.createErr = errors.New("create rejected")
	lc := New(testTypes(), store)

	_, err := lc.Complete(context.Background(), 1, Feedback{
		Result: "done",
		Next:   &NextActivity{TypeID: "call", Description: "follow up"},
	})

	var cerr *ChainError
	require.ErrorAs(t, err, &cerr)

	// Completion was persisted and is not rolled back.
	got := store.activities[1]
	require.True(t, got.IsCompleted)
	require.Equal(t, "done", got.Result)
	require.Equal(t, 1, store.completeCalls)
	require.Equal(t, 1, store.createCalls)
}

func TestToggleCompleteFlipsWithoutFeedback(t *testing.T) {
	store := newStubActivityStore(model.Activity{ID: 1, LeadID: 7})
	lc := New(testTypes(), store)

	a, err := lc.ToggleComplete(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, a.IsCompleted)
	require.NotNil(t, a.CompletedAt)
	require.Empty(t, a.Result)

	a, err = lc.ToggleComplete(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, a.IsCompleted)
	require.Nil(t, a.CompletedAt)

	// Toggle never chains.
	require.Equal(t, 0, store.createCalls)
}

func TestCompleteLostRaceSurfacesAlreadyCompleted(t *testing.T) {
	// The store read sees a pending activity, but a concurrent completion
	// lands before the update. The store reports it; no chain is created.
	store := newStubActivityStore(model.Activity{ID: 1, LeadID: 5, TypeID: "call"})
	store.completeErr = ErrAlreadyCompleted

	lc := New(testTypes(), store)
	_, err := lc.Complete(context.Background(), 1, Feedback{
		Result: "answered",
		Next:   &NextActivity{TypeID: "visit", Description: "On-site demo"},
	})

	require.ErrorIs(t, err, ErrAlreadyCompleted)
	require.Equal(t, 1, store.completeCalls)
	require.Equal(t, 0, store.createCalls)
}
