package models

import "time"

// Значения по умолчанию для игрока без записи рейтинга (см. PlayerRatingRecord).
const (
	DefaultRating     = 450
	DefaultConfidence = 0
)

// AchievementCounters are the cumulative per-player tallies of notable
// in-game events.
type AchievementCounters struct {
	BreakAndRuns int `json:"break_and_runs"`
	RackAndRuns  int `json:"rack_and_runs"`
	SnapWins     int `json:"snap_wins"`
	EarlyWins    int `json:"early_wins"`
}

func (c AchievementCounters) Add(o AchievementCounters) AchievementCounters {
	return AchievementCounters{
		BreakAndRuns: c.BreakAndRuns + o.BreakAndRuns,
		RackAndRuns:  c.RackAndRuns + o.RackAndRuns,
		SnapWins:     c.SnapWins + o.SnapWins,
		EarlyWins:    c.EarlyWins + o.EarlyWins,
	}
}

func (c AchievementCounters) Sub(o AchievementCounters) AchievementCounters {
	return AchievementCounters{
		BreakAndRuns: c.BreakAndRuns - o.BreakAndRuns,
		RackAndRuns:  c.RackAndRuns - o.RackAndRuns,
		SnapWins:     c.SnapWins - o.SnapWins,
		EarlyWins:    c.EarlyWins - o.EarlyWins,
	}
}

// PlayerRatingRecord is the per-league, per-player rating state. It is
// mutated only by finalization (forward) or its reversal (backward).
type PlayerRatingRecord struct {
	ID            int                 `json:"id"`
	LeagueID      int                 `json:"league_id"`
	PlayerID      int                 `json:"player_id"`
	Rating        int                 `json:"rating"`
	Confidence    int                 `json:"confidence"`
	RacksPlayed   int                 `json:"racks_played"`
	RacksWon      int                 `json:"racks_won"`
	MatchesPlayed int                 `json:"matches_played"`
	MatchesWon    int                 `json:"matches_won"`
	Achievements  AchievementCounters `json:"achievements"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
