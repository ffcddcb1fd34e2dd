package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedWinProb(t *testing.T) {
	assert.InDelta(t, 0.5, ExpectedWinProb(450, 450), 1e-9)

	// Строго возрастает по разнице рейтингов.
	prev := 0.0
	for _, r := range []int{200, 300, 400, 500, 600, 700} {
		p := ExpectedWinProb(r, 450)
		require.Greater(t, p, prev, "rating %d", r)
		prev = p
	}

	// Вероятности двух сторон дополняют друг друга до единицы.
	assert.InDelta(t, 1.0, ExpectedWinProb(309, 495)+ExpectedWinProb(495, 309), 1e-9)
}

func TestConfidenceFactor(t *testing.T) {
	assert.InDelta(t, 2.0, ConfidenceFactor(0), 1e-9)

	prev := ConfidenceFactor(0)
	for c := 1; c <= MaxConfidence; c++ {
		f := ConfidenceFactor(c)
		require.Less(t, f, prev, "confidence %d", c)
		require.Greater(t, f, 1.0, "confidence %d", c)
		prev = f
	}
}

func TestNextConfidence(t *testing.T) {
	assert.Equal(t, 1, NextConfidence(0))
	assert.Equal(t, MaxConfidence, NextConfidence(MaxConfidence-1))
	assert.Equal(t, MaxConfidence, NextConfidence(MaxConfidence))
	assert.Equal(t, MaxConfidence, NextConfidence(MaxConfidence+5))
}

func TestComputeDeltaIsDeterministic(t *testing.T) {
	first := ComputeDelta(309, 4, 495, 31, true)
	second := ComputeDelta(309, 4, 495, 31, true)

	assert.Equal(t, first, second)
}

func TestComputeDeltaSigns(t *testing.T) {
	p1Wins := ComputeDelta(450, 10, 450, 10, true)
	assert.Positive(t, p1Wins.FinalDeltaP1)
	assert.Negative(t, p1Wins.FinalDeltaP2)
	assert.Positive(t, p1Wins.BaseDelta)

	p2Wins := ComputeDelta(450, 10, 450, 10, false)
	assert.Negative(t, p2Wins.FinalDeltaP1)
	assert.Positive(t, p2Wins.FinalDeltaP2)
	assert.Negative(t, p2Wins.BaseDelta)
}

// Аутсайдер получает за победу больше, чем фаворит за такую же.
func TestComputeDeltaUpsetPaysMore(t *testing.T) {
	upset := ComputeDelta(300, 20, 600, 20, true)
	expected := ComputeDelta(600, 20, 300, 20, true)

	assert.Greater(t, upset.FinalDeltaP1, expected.FinalDeltaP1)
}

// При разной уверенности дельты не являются точными противоположностями:
// новичок двигается сильнее ветерана.
func TestComputeDeltaScalesPerPlayer(t *testing.T) {
	d := ComputeDelta(450, 0, 450, MaxConfidence, true)

	assert.Greater(t, d.FinalDeltaP1, -d.FinalDeltaP2)
	assert.InDelta(t, d.BaseDelta*ConfidenceFactor(0), d.ScaledDeltaP1, 1e-9)
	assert.InDelta(t, -d.BaseDelta*ConfidenceFactor(MaxConfidence), d.ScaledDeltaP2, 1e-9)
}

func TestComputeDeltaSurfacesIntermediates(t *testing.T) {
	d := ComputeDelta(309, 4, 495, 31, true)

	assert.InDelta(t, ExpectedWinProb(309, 495), d.ExpectedWinProbP1, 1e-9)
	assert.InDelta(t, 32.0*(1.0-d.ExpectedWinProbP1), d.BaseDelta, 1e-9)
	assert.NotZero(t, d.FinalDeltaP1)
	assert.NotZero(t, d.FinalDeltaP2)
}
