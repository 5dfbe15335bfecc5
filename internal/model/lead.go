package model

import "time"

type Lead struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Score     int       `json:"score"`
	StageID   string    `json:"stage_id"`
	CreatedAt time.Time `json:"created_at"`
}
