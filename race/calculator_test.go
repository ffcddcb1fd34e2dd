package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// По одному представителю на каждый уровень.
var tierRatings = []int{100, 250, 350, 450, 550, 650, 750}

func TestTier(t *testing.T) {
	tests := []struct {
		rating int
		want   int
	}{
		{-50, 1},
		{0, 1},
		{199, 1},
		{200, 2},
		{299, 2},
		{309, 3},
		{495, 4},
		{600, 6},
		{699, 6},
		{700, 7},
		{1200, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tier(tt.rating), "rating %d", tt.rating)
	}
}

func TestForRatingsKnownPair(t *testing.T) {
	targets := ForRatings(309, 495)

	assert.Equal(t, Pair{P1: 3, P2: 5}, targets.Short)
	assert.Equal(t, Pair{P1: 5, P2: 8}, targets.Long)
}

func TestForRatingsSymmetry(t *testing.T) {
	for _, a := range tierRatings {
		for _, b := range tierRatings {
			ab := ForRatings(a, b)
			ba := ForRatings(b, a)

			require.Equal(t, ab.Short.P1, ba.Short.P2, "short %d vs %d", a, b)
			require.Equal(t, ab.Short.P2, ba.Short.P1, "short %d vs %d", a, b)
			require.Equal(t, ab.Long.P1, ba.Long.P2, "long %d vs %d", a, b)
			require.Equal(t, ab.Long.P2, ba.Long.P1, "long %d vs %d", a, b)
		}
	}
}

// Рост собственного рейтинга при фиксированном сопернике никогда не
// уменьшает собственную цель гонки.
func TestForRatingsMonotonicity(t *testing.T) {
	for _, opponent := range tierRatings {
		prevShort, prevLong := 0, 0
		for _, own := range tierRatings {
			targets := ForRatings(own, opponent)

			require.GreaterOrEqual(t, targets.Short.P1, prevShort,
				"short target dropped at own=%d opponent=%d", own, opponent)
			require.GreaterOrEqual(t, targets.Long.P1, prevLong,
				"long target dropped at own=%d opponent=%d", own, opponent)
			prevShort, prevLong = targets.Short.P1, targets.Long.P1
		}
	}
}

// Внутри одного уровня цели не зависят от точного значения рейтинга.
func TestForRatingsStableWithinTier(t *testing.T) {
	assert.Equal(t, ForRatings(400, 500), ForRatings(499, 599))
	assert.Equal(t, ForRatings(0, 750), ForRatings(199, 9000))
}

func TestForLength(t *testing.T) {
	assert.Equal(t, Pair{P1: 3, P2: 5}, ForLength(309, 495, false))
	assert.Equal(t, Pair{P1: 5, P2: 8}, ForLength(309, 495, true))
}

func TestEqualTiersGetEqualTargets(t *testing.T) {
	for _, r := range tierRatings {
		targets := ForRatings(r, r)
		assert.Equal(t, targets.Short.P1, targets.Short.P2, "short at %d", r)
		assert.Equal(t, targets.Long.P1, targets.Long.P2, "long at %d", r)
	}
}
