// Package rating computes rating deltas for a finalized slot. Every value
// is a deterministic pure function of the two frozen rating/confidence
// pairs plus the outcome, so the exact same inputs always reproduce the
// exact same deltas — the reversal path depends on that.
package rating

import "math"

const (
	// kFactor и логистическая шкала — как в классическом Эло.
	kFactor      = 32.0
	logisticBase = 10.0
	ratingScale  = 400.0

	// Confidence grows by one per finalized slot, never shrinks, and is
	// bounded so the multiplier bottoms out for long-established players.
	MaxConfidence   = 60
	confidenceDecay = 16.0
)

// Delta carries the final deltas plus every intermediate value, which the
// finalization audit persists for dispute review.
type Delta struct {
	ExpectedWinProbP1 float64 `json:"expected_win_prob_p1"`
	BaseDelta         float64 `json:"base_delta"`
	ScaledDeltaP1     float64 `json:"scaled_delta_p1"`
	ScaledDeltaP2     float64 `json:"scaled_delta_p2"`
	FinalDeltaP1      int     `json:"final_delta_p1"`
	FinalDeltaP2      int     `json:"final_delta_p2"`
}

// ExpectedWinProb returns the probability that the first player wins,
// strictly increasing in the rating difference.
func ExpectedWinProb(ratingP1, ratingP2 int) float64 {
	return 1.0 / (1.0 + math.Pow(logisticBase, float64(ratingP2-ratingP1)/ratingScale))
}

// ConfidenceFactor starts at 2.0 for a player with no recorded results and
// asymptotically approaches 1.0 as confidence accumulates.
func ConfidenceFactor(confidence int) float64 {
	return 1.0 + math.Exp(-float64(confidence)/confidenceDecay)
}

// NextConfidence increments confidence, bounded at MaxConfidence.
func NextConfidence(confidence int) int {
	if confidence >= MaxConfidence {
		return MaxConfidence
	}
	return confidence + 1
}

// ComputeDelta returns the rating movement for both players. The base
// delta is proportional to (actual outcome − expected probability); each
// player's delta is then scaled by their own confidence factor, so the two
// final deltas need not be exact negatives of each other.
func ComputeDelta(ratingP1, confidenceP1, ratingP2, confidenceP2 int, p1Won bool) Delta {
	expectedP1 := ExpectedWinProb(ratingP1, ratingP2)

	outcomeP1 := 0.0
	if p1Won {
		outcomeP1 = 1.0
	}

	// base > 0 когда выиграл P1, base < 0 когда выиграл P2.
	base := kFactor * (outcomeP1 - expectedP1)

	scaledP1 := base * ConfidenceFactor(confidenceP1)
	scaledP2 := -base * ConfidenceFactor(confidenceP2)

	return Delta{
		ExpectedWinProbP1: expectedP1,
		BaseDelta:         base,
		ScaledDeltaP1:     scaledP1,
		ScaledDeltaP2:     scaledP2,
		FinalDeltaP1:      int(math.Round(scaledP1)),
		FinalDeltaP2:      int(math.Round(scaledP2)),
	}
}
