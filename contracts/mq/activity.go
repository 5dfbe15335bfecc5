package mq

import "time"

type ActivityCompletedPayload struct {
	ActivityID  int       `json:"activity_id"`
	LeadID      int       `json:"lead_id"`
	UserID      int       `json:"user_id"`
	TypeID      string    `json:"type_id"`
	Result      string    `json:"result"`
	CompletedAt time.Time `json:"completed_at"`
	TraceID     string    `json:"trace_id,omitempty"`
}

type ActivityCreatedPayload struct {
	ActivityID  int        `json:"activity_id"`
	LeadID      int        `json:"lead_id"`
	UserID      int        `json:"user_id"`
	TypeID      string     `json:"type_id"`
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	TraceID     string     `json:"trace_id,omitempty"`
}

type ActivityOverduePayload struct {
	ActivityID  int       `json:"activity_id"`
	LeadID      int       `json:"lead_id"`
	UserID      int       `json:"user_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}
