package model

import "time"

type Sale struct {
	ID     int       `json:"id"`
	LeadID int       `json:"lead_id"`
	UserID int       `json:"user_id"`
	Amount float64   `json:"amount"`
	SoldAt time.Time `json:"sold_at"`
}

// Goal is a per-month numeric target for a metric ("sales_amount",
// "activities_completed", ...).
type Goal struct {
	ID     int     `json:"id"`
	UserID int     `json:"user_id"`
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Metric string  `json:"metric"`
	Target float64 `json:"target"`
}

type Notification struct {
	ID      int    `json:"id"`
	UserID  int    `json:"user_id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}
