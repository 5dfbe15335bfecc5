package pipeline

import (
	"context"
	"errors"
	"sync"

	"pipecrm/internal/catalog"
	"pipecrm/internal/model"
)

var (
	// ErrDragActive is returned by BeginDrag while another drag is active.
	ErrDragActive = errors.New("a drag is already active")
	// ErrUpdateInFlight is returned by CompleteDrag while a previous
	// completion is still waiting on the store.
	ErrUpdateInFlight = errors.New("a stage update is already in flight")
	// ErrUnknownStage is returned for a target stage outside the catalog.
	ErrUnknownStage = errors.New("unknown target stage")
)

// PersistError wraps a store failure. The board has already rolled the
// snapshot back to its last-known-good state when this is returned.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return "failed to persist stage change: " + e.Err.Error()
}

func (e *PersistError) Unwrap() error { return e.Err }

// LeadStore persists stage transitions. Implemented by the repository layer;
// the board itself never touches the database.
type LeadStore interface {
	UpdateStage(ctx context.Context, leadID int, stageID string) error
}

// Board holds the in-memory lead snapshot for one pipeline session and
// drives the drag-and-drop transition protocol: optimistic local apply,
// a single serialized persistence call, and rollback on failure.
type Board struct {
	mu sync.Mutex

	stages *catalog.StatusCatalog
	store  LeadStore

	leads        []model.Lead
	activeLeadID int
	updating     bool
}

func NewBoard(stages *catalog.StatusCatalog, store LeadStore, leads []model.Lead) *Board {
	snapshot := make([]model.Lead, len(leads))
	copy(snapshot, leads)
	return &Board{
		stages: stages,
		store:  store,
		leads:  snapshot,
	}
}

// BeginDrag records the lead being relocated. At most one drag may be
// active at a time.
func (b *Board) BeginDrag(leadID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.activeLeadID != 0 {
		return ErrDragActive
	}
	b.activeLeadID = leadID
	return nil
}

// CancelDrag abandons an active drag without any persistence call.
func (b *Board) CancelDrag() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeLeadID = 0
}

// CompleteDrag finishes a drag onto targetStageID.
//
// Dropping an unknown lead or dropping back onto the current stage is a
// no-op that only clears the active pointer. Otherwise the snapshot is
// updated optimistically, a single store call is issued, and on failure
// the snapshot that was authoritative before the optimistic apply is
// restored. A second invocation while one is in flight is rejected with
// ErrUpdateInFlight and issues no store call.
func (b *Board) CompleteDrag(ctx context.Context, leadID int, targetStageID string) error {
	b.mu.Lock()

	if b.updating {
		b.mu.Unlock()
		return ErrUpdateInFlight
	}

	idx := -1
	for i := range b.leads {
		if b.leads[i].ID == leadID {
			idx = i
			break
		}
	}
	if idx == -1 {
		// Lead removed from the snapshot while being dragged.
		b.activeLeadID = 0
		b.mu.Unlock()
		return nil
	}

	if b.leads[idx].StageID == targetStageID {
		// Dropped back on the same column.
		b.activeLeadID = 0
		b.mu.Unlock()
		return nil
	}

	if _, ok := b.stages.Lookup(targetStageID); !ok {
		b.activeLeadID = 0
		b.mu.Unlock()
		return ErrUnknownStage
	}

	// Optimistic apply: the new snapshot is visible before confirmation.
	prev := b.leads
	next := make([]model.Lead, len(b.leads))
	copy(next, b.leads)
	next[idx].StageID = targetStageID
	b.leads = next
	b.updating = true
	b.mu.Unlock()

	err := b.store.UpdateStage(ctx, leadID, targetStageID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.updating = false
	b.activeLeadID = 0

	if err != nil {
		// Discard the optimistic snapshot, restore last-known-good.
		b.leads = prev
		return &PersistError{Err: err}
	}

	return nil
}

// Leads returns a copy of the current snapshot.
func (b *Board) Leads() []model.Lead {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.Lead, len(b.leads))
	copy(out, b.leads)
	return out
}

// LeadsByStage groups the snapshot by stage, preserving insertion order
// within each stage. Every catalog stage gets an entry, empty or not.
func (b *Board) LeadsByStage() map[string][]model.Lead {
	b.mu.Lock()
	defer b.mu.Unlock()

	grouped := make(map[string][]model.Lead, len(b.stages.Stages()))
	for _, s := range b.stages.Stages() {
		grouped[s.ID] = []model.Lead{}
	}
	for _, l := range b.leads {
		if _, ok := grouped[l.StageID]; !ok {
			continue
		}
		grouped[l.StageID] = append(grouped[l.StageID], l)
	}
	return grouped
}

// Refresh replaces the local snapshot with a fresh pull from the source
// of truth. Callers do this after a confirmed transition.
func (b *Board) Refresh(leads []model.Lead) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make([]model.Lead, len(leads))
	copy(snapshot, leads)
	b.leads = snapshot
}
