package services

import "math"

// maxScorePerQuestion is the top of the 1..5 scale every response is
// normalized against before weighting.
const maxScorePerQuestion = 5

// WeightedTotal computes the total evaluation score over the collected
// responses: sum of (score/5 × weight), rounded to two decimals. The result
// is never negative and is bounded by the sum of the weights presented.
func WeightedTotal(responses map[string]EvaluationResponse) float64 {
	total := 0.0
	for _, r := range responses {
		if r.Score <= 0 {
			continue
		}
		total += r.Score / maxScorePerQuestion * r.Weight
	}
	return Round2(total)
}

// BinaryScore maps a yes/no answer onto the 1..5 scale: "yes" earns full
// credit, "no" contributes nothing to the weighted total.
func BinaryScore(yes bool) float64 {
	if yes {
		return maxScorePerQuestion
	}
	return 0
}

// Round2 rounds to two decimal places. Use only at presentation or
// persistence boundaries; accumulate with full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
