package models

import "time"

// Game is one finalized rack. Rows are created only when a slot is
// finalized and deleted only by the reversal path.
type Game struct {
	ID           int              `json:"id"`
	SlotID       int              `json:"slot_id"`
	GameNumber   int              `json:"game_number"`
	WinnerID     int              `json:"winner_id"`
	Achievements AchievementFlags `json:"achievements"`
	CreatedAt    time.Time        `json:"created_at"`
}
