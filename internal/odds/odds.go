// Package odds converts lane win probabilities into fixed-point decimal
// payout multipliers. All arithmetic is integer basis points
// (Scale = 10000 = 1.0000x); decimal.Decimal is used for presentation only.
package odds

import (
	"github.com/shopspring/decimal"
)

const (
	// Scale is the fixed-point base: 10000 bps = 1.0000x.
	Scale = 10000

	// MinDecimalOddsBps floors every posted multiplier at 1.01x. A
	// near-certain lane would otherwise price at or below stake; the floor
	// can cost the house part of its configured edge on that lane.
	MinDecimalOddsBps = 10100

	scoreMin = 1
	scoreMax = 10
)

// clampAttribute maps a raw attribute into [1,10]. Zero and out-of-range
// values mean missing data and are treated as the maximum.
func clampAttribute(v int) int {
	if v < scoreMin || v > scoreMax {
		return scoreMax
	}
	return v
}

// EffectiveScore reduces three raw attributes to a single 1..10 score:
// each attribute clamped independently, equal-weighted mean rounded half-up.
func EffectiveScore(a, b, c int) int {
	sum := clampAttribute(a) + clampAttribute(b) + clampAttribute(c)
	score := (2*sum + 3) / 6
	if score < scoreMin {
		score = scoreMin
	}
	if score > scoreMax {
		score = scoreMax
	}
	return score
}

// ProbabilityToOdds converts a win probability (bps of certainty) into a
// decimal payout multiplier in bps, keeping the house edge:
//
//	odds = Scale * (Scale - edge) / probability
//
// A zero probability is priced as 1 bps rather than failing the division.
func ProbabilityToOdds(probabilityBps, houseEdgeBps int64) int64 {
	if probabilityBps <= 0 {
		probabilityBps = 1
	}
	o := Scale * (Scale - houseEdgeBps) / probabilityBps
	if o < MinDecimalOddsBps {
		o = MinDecimalOddsBps
	}
	return o
}

// AdjustForSymmetry overwrites the probability of every lane in a
// score-equal group with the group mean (half rounds up). Whatever
// estimator produced the raw numbers, equal skill must price equally.
func AdjustForSymmetry(probs *[6]int64, scores *[6]int) {
	var done [6]bool
	for i := 0; i < len(scores); i++ {
		if done[i] {
			continue
		}
		group := []int{i}
		sum := probs[i]
		for j := i + 1; j < len(scores); j++ {
			if !done[j] && scores[j] == scores[i] {
				group = append(group, j)
				sum += probs[j]
			}
		}
		if len(group) > 1 {
			n := int64(len(group))
			mean := (sum + n/2) / n
			for _, j := range group {
				probs[j] = mean
			}
		}
		for _, j := range group {
			done[j] = true
		}
	}
}

// ValidateOverround checks that the book implied by the probabilities
// realizes at least the overround of the configured edge: the sum of
// ceiling-divided implied probabilities must reach Scale^2/(Scale-edge).
// The check runs on the pre-floor conversion. A lane clamped to the
// MinDecimalOddsBps floor shrinks the realized edge, and a book whose only
// shortfall comes from the floor is accepted.
func ValidateOverround(probs *[6]int64, houseEdgeBps int64) bool {
	if houseEdgeBps < 0 || houseEdgeBps >= Scale {
		return false
	}
	var sum int64
	for _, p := range probs {
		if p <= 0 {
			p = 1
		}
		raw := Scale * (Scale - houseEdgeBps) / p
		if raw < 1 {
			raw = 1
		}
		sum += ceilDiv(Scale*Scale, raw)
	}
	required := ceilDiv(Scale*Scale, Scale-houseEdgeBps)
	return sum >= required
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// Decimal renders a bps multiplier or amount ratio as a decimal value,
// e.g. 19800 -> 1.98.
func Decimal(bps int64) decimal.Decimal {
	return decimal.New(bps, -4)
}
