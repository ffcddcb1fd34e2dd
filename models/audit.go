package models

import "time"

// FinalizeAudit records the inputs and every intermediate value of a
// finalization, sufficient to reconstruct why a delta was what it was and
// to undo it exactly. Reversal subtracts these stored values — it never
// recomputes a fresh delta.
type FinalizeAudit struct {
	ID     int `json:"id"`
	SlotID int `json:"slot_id"`

	RatingP1     int `json:"rating_p1"`
	ConfidenceP1 int `json:"confidence_p1"`
	RatingP2     int `json:"rating_p2"`
	ConfidenceP2 int `json:"confidence_p2"`
	WinnerID     int `json:"winner_id"`

	ExpectedWinProbP1 float64 `json:"expected_win_prob_p1"`
	BaseDelta         float64 `json:"base_delta"`
	ScaledDeltaP1     float64 `json:"scaled_delta_p1"`
	ScaledDeltaP2     float64 `json:"scaled_delta_p2"`
	FinalDeltaP1      int     `json:"final_delta_p1"`
	FinalDeltaP2      int     `json:"final_delta_p2"`

	// Exact increments applied to each player's record, so reversal can
	// restore the baseline bit for bit.
	ConfidenceIncP1 int                 `json:"confidence_inc_p1"`
	ConfidenceIncP2 int                 `json:"confidence_inc_p2"`
	RacksPlayedInc  int                 `json:"racks_played_inc"`
	RacksWonP1      int                 `json:"racks_won_p1"`
	RacksWonP2      int                 `json:"racks_won_p2"`
	CountersP1      AchievementCounters `json:"counters_p1"`
	CountersP2      AchievementCounters `json:"counters_p2"`

	CreatedAt time.Time `json:"created_at"`
}
