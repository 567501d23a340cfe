package pipeline

import "math"

// Confidence scoring constants. The base reflects that rule-taxonomy
// classification is usually right for everyday captures; adjustments reward
// strong keyword evidence and penalise low-signal fragments.
const (
	confidenceBase        = 0.80
	confidenceEmptyInput  = 0.60
	confidenceJournal     = 0.85
	confidenceStrongBonus = 0.10
	confidencePerItem     = 0.02
	confidenceItemCap     = 0.95
	confidenceWeakPenalty = 0.20
)

// ScoreInput summarises the signals the confidence scorer considers.
type ScoreInput struct {
	// StrongKeyword is true when at least one strong type rule fired.
	StrongKeyword bool

	// ItemCount is the number of items surviving the post-filter.
	ItemCount int

	// Journal is true when any item was classified as Journal.
	Journal bool

	// SoleWeakNote is true when the only produced item is a short (<5 word)
	// keyword-less Note — the weakest possible classification outcome.
	SoleWeakNote bool
}

// Score derives a single confidence value in [0, 1] from the fired rules and
// item count, rounded to two decimals.
//
// Journal detection pins the score to 0.85: reflective text is recognised by
// shape rather than keywords, so neither the strong-keyword bonus nor the
// weak-note penalty applies to it.
func Score(in ScoreInput) float64 {
	if in.Journal {
		return confidenceJournal
	}

	score := confidenceBase
	if in.StrongKeyword {
		score += confidenceStrongBonus
	}

	itemBonus := confidencePerItem * float64(in.ItemCount)
	if score+itemBonus > confidenceItemCap {
		score = confidenceItemCap
	} else {
		score += itemBonus
	}

	if in.SoleWeakNote {
		score -= confidenceWeakPenalty
	}

	return clampRound(score)
}

// clampRound clamps v into [0, 1] and rounds to two decimals.
func clampRound(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return math.Round(v*100) / 100
}
