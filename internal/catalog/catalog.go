package catalog

import (
	"sort"

	"pipecrm/internal/model"
)

// StatusCatalog is the ordered, read-only list of pipeline stages for a
// session. It is loaded once and injected into the components that need it.
type StatusCatalog struct {
	stages []model.Stage
	byID   map[string]model.Stage
}

func NewStatusCatalog(stages []model.Stage) *StatusCatalog {
	ordered := make([]model.Stage, len(stages))
	copy(ordered, stages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})

	byID := make(map[string]model.Stage, len(ordered))
	for _, s := range ordered {
		byID[s.ID] = s
	}

	return &StatusCatalog{stages: ordered, byID: byID}
}

// Stages returns the stages in column order.
func (c *StatusCatalog) Stages() []model.Stage {
	out := make([]model.Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Lookup returns the stage with the given ID.
func (c *StatusCatalog) Lookup(id string) (model.Stage, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// IsTerminal reports whether the stage exists and is terminal.
func (c *StatusCatalog) IsTerminal(id string) bool {
	s, ok := c.byID[id]
	return ok && s.IsTerminal
}

// ActivityTypeCatalog is the read-only set of interaction kinds.
type ActivityTypeCatalog struct {
	types []model.ActivityType
	byID  map[string]model.ActivityType
}

func NewActivityTypeCatalog(types []model.ActivityType) *ActivityTypeCatalog {
	out := make([]model.ActivityType, len(types))
	copy(out, types)

	byID := make(map[string]model.ActivityType, len(out))
	for _, t := range out {
		byID[t.ID] = t
	}

	return &ActivityTypeCatalog{types: out, byID: byID}
}

func (c *ActivityTypeCatalog) Types() []model.ActivityType {
	out := make([]model.ActivityType, len(c.types))
	copy(out, c.types)
	return out
}

func (c *ActivityTypeCatalog) Lookup(id string) (model.ActivityType, bool) {
	t, ok := c.byID[id]
	return t, ok
}
