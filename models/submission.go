package models

import "time"

// AchievementFlags отмечает особые события в рамках одной партии.
type AchievementFlags struct {
	BreakAndRun bool `json:"break_and_run"`
	RackAndRun  bool `json:"rack_and_run"`
	SnapWin     bool `json:"snap_win"`
	EarlyWin    bool `json:"early_win"`
}

// GameResult is one rack inside a submitted scorecard.
type GameResult struct {
	WinnerID     int              `json:"winner_id"`
	Achievements AchievementFlags `json:"achievements"`
}

// Submission is one participant's candidate scorecard for a slot. It is
// owned exclusively by the submitter until reconciled and is never merged
// in place — verification only reads both sides and produces a decision.
type Submission struct {
	ID          int          `json:"id"`
	SlotID      int          `json:"slot_id"`
	SubmittedBy int          `json:"submitted_by"`
	ScoreP1     int          `json:"score_p1"`
	ScoreP2     int          `json:"score_p2"`
	WinnerID    int          `json:"winner_id"`
	Games       []GameResult `json:"games"`
	EvidenceKey *string      `json:"evidence_key,omitempty"`
	EvidenceURL *string      `json:"evidence_url,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
}
