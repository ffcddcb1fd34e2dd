package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchStatusDerivation(t *testing.T) {
	tests := []struct {
		name  string
		slots []MatchSlot
		want  MatchStatus
	}{
		{"no slots", nil, MatchStatusScheduled},
		{
			"both scheduled",
			[]MatchSlot{{Status: SlotStatusScheduled}, {Status: SlotStatusScheduled}},
			MatchStatusScheduled,
		},
		{
			"one in progress",
			[]MatchSlot{{Status: SlotStatusInProgress}, {Status: SlotStatusScheduled}},
			MatchStatusInProgress,
		},
		{
			"one finalized one disputed",
			[]MatchSlot{{Status: SlotStatusFinalized}, {Status: SlotStatusDisputed}},
			MatchStatusInProgress,
		},
		{
			"both finalized",
			[]MatchSlot{{Status: SlotStatusFinalized}, {Status: SlotStatusFinalized}},
			MatchStatusCompleted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Match{Slots: tt.slots}
			assert.Equal(t, tt.want, m.Status())
		})
	}
}

func TestMatchHasParticipant(t *testing.T) {
	m := Match{P1ID: 10, P2ID: 20}

	assert.True(t, m.HasParticipant(10))
	assert.True(t, m.HasParticipant(20))
	assert.False(t, m.HasParticipant(30))
}

func TestAchievementCountersRoundTrip(t *testing.T) {
	base := AchievementCounters{BreakAndRuns: 2, RackAndRuns: 1}
	inc := AchievementCounters{BreakAndRuns: 1, SnapWins: 3}

	sum := base.Add(inc)
	assert.Equal(t, AchievementCounters{BreakAndRuns: 3, RackAndRuns: 1, SnapWins: 3}, sum)
	assert.Equal(t, base, sum.Sub(inc))
}
