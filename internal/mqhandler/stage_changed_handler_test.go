package mqhandler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	mqcontracts "pipecrm/contracts/mq"
)

func TestStageChangedEventKeyPerTransition(t *testing.T) {
	morning := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	afternoon := time.Date(2024, 3, 15, 16, 30, 0, 0, time.UTC)

	first := mqcontracts.LeadStageChangedPayload{
		LeadID:      42,
		FromStageID: "new",
		ToStageID:   "contacted",
		ChangedAt:   morning,
	}
	second := mqcontracts.LeadStageChangedPayload{
		LeadID:      42,
		FromStageID: "contacted",
		ToStageID:   "won",
		ChangedAt:   afternoon,
	}

	// Two transitions of the same lead on the same day must not dedupe
	// against each other.
	require.NotEqual(t, stageChangedEventKey(first), stageChangedEventKey(second))

	// A redelivery of the same transition must.
	require.Equal(t, stageChangedEventKey(first), stageChangedEventKey(first))
}
