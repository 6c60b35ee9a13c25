package scoring

import "math"

// WeightTolerance is how far the weight sum may drift from 1.0.
const WeightTolerance = 0.001

// sumWeights returns the total of all weights.
func sumWeights(weights []float64) float64 {
	var s float64
	for _, w := range weights {
		s += w
	}
	return s
}

// weightSumOK checks that weights sum to 1.0 within WeightTolerance.
func weightSumOK(sum float64) bool {
	return math.Abs(sum-1.0) <= WeightTolerance
}

// pinWeight sets weights[k] to value and spreads the remaining 1-value over
// the other criteria in proportion to their original weights. When the other
// weights sum to zero the remainder is split evenly.
func pinWeight(weights []float64, k int, value float64) []float64 {
	out := make([]float64, len(weights))
	rest := 1.0 - value

	var others float64
	for j, w := range weights {
		if j != k {
			others += w
		}
	}

	n := len(weights) - 1
	for j, w := range weights {
		switch {
		case j == k:
			out[j] = value
		case others > 0:
			out[j] = w * rest / others
		case n > 0:
			out[j] = rest / float64(n)
		}
	}
	return out
}
