package models

import "time"

type Discipline string

const (
	DisciplineEightBall Discipline = "eight_ball"
	DisciplineNineBall  Discipline = "nine_ball"
)

func (d Discipline) Valid() bool {
	return d == DisciplineEightBall || d == DisciplineNineBall
}

type SlotStatus string

const (
	SlotStatusScheduled           SlotStatus = "scheduled"
	SlotStatusInProgress          SlotStatus = "in_progress"
	SlotStatusPendingVerification SlotStatus = "pending_verification"
	SlotStatusDisputed            SlotStatus = "disputed"
	SlotStatusFinalized           SlotStatus = "finalized"
)

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

type RaceLength string

const (
	RaceLengthShort RaceLength = "short"
	RaceLengthLong  RaceLength = "long"
)

func (l RaceLength) Valid() bool {
	return l == RaceLengthShort || l == RaceLengthLong
}

// Match объединяет два независимых слота (по одному на дисциплину).
type Match struct {
	ID            int        `json:"id"`
	LeagueID      int        `json:"league_id"`
	P1ID          int        `json:"p1_id"`
	P2ID          int        `json:"p2_id"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	Timezone      string     `json:"timezone"`
	CreatedAt     time.Time  `json:"created_at"`

	Slots []MatchSlot `json:"slots,omitempty"`
}

// Status is always derived from the slots, never stored independently.
// Both slots finalized => the match is completed.
func (m *Match) Status() MatchStatus {
	if len(m.Slots) == 0 {
		return MatchStatusScheduled
	}
	finalized := 0
	started := 0
	for _, s := range m.Slots {
		if s.Status == SlotStatusFinalized {
			finalized++
		}
		if s.Status != SlotStatusScheduled {
			started++
		}
	}
	switch {
	case finalized == len(m.Slots):
		return MatchStatusCompleted
	case started > 0:
		return MatchStatusInProgress
	default:
		return MatchStatusScheduled
	}
}

func (m *Match) HasParticipant(playerID int) bool {
	return playerID == m.P1ID || playerID == m.P2ID
}

type MatchSlot struct {
	ID         int         `json:"id"`
	MatchID    int         `json:"match_id"`
	Discipline Discipline  `json:"discipline"`
	Status     SlotStatus  `json:"status"`
	RaceLength *RaceLength `json:"race_length,omitempty"`

	// Race targets are set exactly once, at start, and never mutated afterward.
	RaceTargetP1 *int `json:"race_target_p1,omitempty"`
	RaceTargetP2 *int `json:"race_target_p2,omitempty"`

	// Ratings frozen at start time, so later rating drift cannot
	// retroactively change a target or a delta.
	RatingP1     *int `json:"rating_p1,omitempty"`
	ConfidenceP1 *int `json:"confidence_p1,omitempty"`
	RatingP2     *int `json:"rating_p2,omitempty"`
	ConfidenceP2 *int `json:"confidence_p2,omitempty"`

	ScoreP1  *int `json:"score_p1,omitempty"`
	ScoreP2  *int `json:"score_p2,omitempty"`
	WinnerID *int `json:"winner_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
