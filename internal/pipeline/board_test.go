package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"pipecrm/internal/catalog"
	"pipecrm/internal/model"
)

func testStages() *catalog.StatusCatalog {
	return catalog.NewStatusCatalog([]model.Stage{
		{ID: "new", Label: "New", OrderIndex: 0},
		{ID: "contacted", Label: "Contacted", OrderIndex: 1},
		{ID: "qualified", Label: "Qualified", OrderIndex: 2},
		{ID: "won", Label: "Won", OrderIndex: 3, IsTerminal: true},
	})
}

type stubLeadStore struct {
	calls   int
	err     error
	entered chan struct{}
	release chan struct{}
}

func (s *stubLeadStore) UpdateStage(_ context.Context, _ int, _ string) error {
	s.calls++
	if s.entered != nil {
		close(s.entered)
	}
	if s.release != nil {
		<-s.release
	}
	return s.err
}

func TestCompleteDragMovesLead(t *testing.T) {
	store := &stubLeadStore{}
	board := NewBoard(testStages(), store, []model.Lead{
		{ID: 1, Name: "Ada", StageID: "new"},
		{ID: 2, Name: "Ben", StageID: "new"},
	})

	require.NoError(t, board.BeginDrag(1))
	require.NoError(t, board.CompleteDrag(context.Background(), 1, "contacted"))

	require.Equal(t, 1, store.calls)

	grouped := board.LeadsByStage()
	require.Len(t, grouped["contacted"], 1)
	require.Equal(t, 1, grouped["contacted"][0].ID)
	require.Len(t, grouped["new"], 1)
	require.Equal(t, 2, grouped["new"][0].ID)
}

func TestCompleteDragSameStageIsNoop(t *testing.T) {
	store := &stubLeadStore{}
	board := NewBoard(testStages(), store, []model.Lead{
		{ID: 1, StageID: "new"},
	})

	before := board.LeadsByStage()
	require.NoError(t, board.BeginDrag(1))
	require.NoError(t, board.CompleteDrag(context.Background(), 1, "new"))

	require.Equal(t, 0, store.calls)
	require.Equal(t, before, board.LeadsByStage())

	// Pointer was cleared: a new drag may start.
	require.NoError(t, board.BeginDrag(1))
}

func TestCompleteDragUnknownLeadIsNoop(t *testing.T) {
	store := &stubLeadStore{}
	board := NewBoard(testStages(), store, []model.Lead{
		{ID: 1, StageID: "new"},
	})

	require.NoError(t, board.BeginDrag(99))
	require.NoError(t, board.CompleteDrag(context.Background(), 99, "contacted"))
	require.Equal(t, 0, store.calls)
	require.NoError(t, board.BeginDrag(1))
}

func TestCompleteDragUnknownStageRejected(t *testing.T) {
	store := &stubLeadStore{}
	board := NewBoard(testStages(), store, []model.Lead{
		{ID: 1, StageID: "new"},
	})

	err := board.CompleteDrag(context.Background(), 1, "archived")
	require.ErrorIs(t, err, ErrUnknownStage)
	require.Equal(t, 0, store.calls)
	require.Equal(t, "new", board.Leads()[0].StageID)
}

func TestCompleteDragRollsBackOnStoreFailure(t *testing.T) {
	store := &stubLeadStore{err: errors.New("server rejected")}
	board := NewBoard(testStages(), store, []model.Lead{
		{ID: 1, StageID: "new"},
		{ID: 2, StageID: "contacted"},
	})

	err := board.CompleteDrag(context.Background(), 1, "qualified")

	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 1, store.calls)

	// The lead is back at its original stage.
	grouped := board.LeadsByStage()
	require.Len(t, grouped["new"], 1)
	require.Equal(t, 1, grouped["new"][0].ID)
	require.Empty(t, grouped["qualified"])
}

func TestCompleteDragSerializesPersistenceCalls(t *testing.T) {
	store := &stubLeadStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	board := NewBoard(testStages(), store, []model.Lead{
		{ID: 1, StageID: "new"},
		{ID: 2, StageID: "new"},
	})

	done := make(chan error, 1)
	go func() {
		done <- board.CompleteDrag(context.Background(), 1, "contacted")
	}()

	<-store.entered

	// Second completion while the first is in flight is rejected, not queued.
	err := board.CompleteDrag(context.Background(), 2, "qualified")
	require.ErrorIs(t, err, ErrUpdateInFlight)

	close(store.release)
	require.NoError(t, <-done)
	require.Equal(t, 1, store.calls)
}

func TestBeginDragRejectsConcurrentDrag(t *testing.T) {
	board := NewBoard(testStages(), &stubLeadStore{}, []model.Lead{
		{ID: 1, StageID: "new"},
		{ID: 2, StageID: "new"},
	})

	require.NoError(t, board.BeginDrag(1))
	require.ErrorIs(t, board.BeginDrag(2), ErrDragActive)

	board.CancelDrag()
	require.NoError(t, board.BeginDrag(2))
}

func TestLeadsByStagePreservesInsertionOrder(t *testing.T) {
	board := NewBoard(testStages(), &stubLeadStore{}, []model.Lead{
		{ID: 3, StageID: "new"},
		{ID: 1, StageID: "new"},
		{ID: 2, StageID: "new"},
	})

	grouped := board.LeadsByStage()
	require.Equal(t, []int{3, 1, 2}, []int{
		grouped["new"][0].ID,
		grouped["new"][1].ID,
		grouped["new"][2].ID,
	})
}

func TestOptimisticSnapshotVisibleBeforeConfirmation(t *testing.T) {
	store := &stubLeadStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	board := NewBoard(testStages(), store, []model.Lead{
		{ID: 1, StageID: "new"},
	})

	done := make(chan error, 1)
	go func() {
		done <- board.CompleteDrag(context.Background(), 1, "won")
	}()

	<-store.entered
	require.Equal(t, "won", board.Leads()[0].StageID)

	close(store.release)
	require.NoError(t, <-done)
	require.Equal(t, "won", board.Leads()[0].StageID)
}
