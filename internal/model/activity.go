package model

import (
	"encoding/json"
	"time"
)

// Activity is a scheduled or completed unit of outreach work tied to a lead.
// CompletedAt and Result are set exactly when the activity is completed
// through the lifecycle; Metadata is an opaque pass-through payload the
// engine never branches on.
type Activity struct {
	ID          int             `json:"id"`
	LeadID      int             `json:"lead_id"`
	TypeID      string          `json:"type_id"`
	Description string          `json:"description"`
	ScheduledAt *time.Time      `json:"scheduled_at"`
	IsCompleted bool            `json:"is_completed"`
	CompletedAt *time.Time      `json:"completed_at"`
	Result      string          `json:"result"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ActivityType struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
