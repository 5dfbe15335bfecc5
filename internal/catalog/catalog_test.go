package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pipecrm/internal/model"
)

func TestStatusCatalogOrdersByIndex(t *testing.T) {
	c := NewStatusCatalog([]model.Stage{
		{ID: "won", OrderIndex: 3, IsTerminal: true},
		{ID: "new", OrderIndex: 0},
		{ID: "contacted", OrderIndex: 1},
	})

	stages := c.Stages()
	require.Equal(t, "new", stages[0].ID)
	require.Equal(t, "contacted", stages[1].ID)
	require.Equal(t, "won", stages[2].ID)

	require.True(t, c.IsTerminal("won"))
	require.False(t, c.IsTerminal("new"))
	require.False(t, c.IsTerminal("missing"))

	_, ok := c.Lookup("contacted")
	require.True(t, ok)
	_, ok = c.Lookup("archived")
	require.False(t, ok)
}

func TestActivityTypeCatalogLookup(t *testing.T) {
	c := NewActivityTypeCatalog([]model.ActivityType{
		{ID: "call", Label: "Call"},
		{ID: "visit", Label: "Visit"},
	})

	require.Len(t, c.Types(), 2)
	typ, ok := c.Lookup("call")
	require.True(t, ok)
	require.Equal(t, "Call", typ.Label)
	_, ok = c.Lookup("fax")
	require.False(t, ok)
}
