package model

// Stage is a pipeline column. The stage set is immutable while a board
// session is open.
type Stage struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Color      string `json:"color"`
	OrderIndex int    `json:"order_index"`
	IsTerminal bool   `json:"is_terminal"`
}
