package model

import "time"

// StageChange is one audit-trail row of a lead's stage transitions.
type StageChange struct {
	ID          int       `json:"id"`
	LeadID      int       `json:"lead_id"`
	UserID      int       `json:"user_id"`
	FromStageID string    `json:"from_stage_id"`
	ToStageID   string    `json:"to_stage_id"`
	CreatedAt   time.Time `json:"created_at"`
}
