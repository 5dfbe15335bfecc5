package mq

import "time"

type LeadStageChangedPayload struct {
	LeadID      int       `json:"lead_id"`
	UserID      int       `json:"user_id"`
	FromStageID string    `json:"from_stage_id"`
	ToStageID   string    `json:"to_stage_id"`
	IsTerminal  bool      `json:"is_terminal"`
	ChangedAt   time.Time `json:"changed_at"`
	TraceID     string    `json:"trace_id,omitempty"`
}
