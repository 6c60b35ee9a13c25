package scoring

const (
	// DefaultSampleCount is the number of probe weights when none is given.
	DefaultSampleCount = 9
	// MaxSampleCount bounds the probe weights of one sweep.
	MaxSampleCount = 1000

	sweepLow  = 0.1
	sweepHigh = 0.9
)

// SensitivityResult is the outcome of sweeping one criterion's weight.
type SensitivityResult struct {
	Method         Method      `json:"method"`
	Criterion      string      `json:"criterion"`
	CriterionIndex int         `json:"criterion_index"`
	AltNames       []string    `json:"alt_names"`
	Weights        []float64   `json:"weights"`
	WeightVectors  [][]float64 `json:"weight_vectors"`
	Scores         [][]float64 `json:"scores"`
	Ranks          [][]int     `json:"ranks"`
	BaseScores     []float64   `json:"base_scores"`
	BaseRanks      []int       `json:"base_ranks"`
	// RankReversals lists the sample indices whose ranking differs from the
	// ranking at the original weights.
	RankReversals []int `json:"rank_reversals"`
}

// SweepWeights returns n evenly spaced probe weights across [0.1, 0.9].
func SweepWeights(n int) []float64 {
	if n < 1 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = sweepLow
		return out
	}
	step := (sweepHigh - sweepLow) / float64(n-1)
	for s := 0; s < n; s++ {
		out[s] = sweepLow + float64(s)*step
	}
	return out
}

// Sensitivity re-runs method while the weight of criterion k sweeps
// [0.1, 0.9] in samples steps. At each step the other weights are rescaled so
// that all weights still sum to one.
func Sensitivity(p *Problem, method Method, k, samples int, opts Options) (*SensitivityResult, error) {
	if err := ValidateFor(p, method, opts); err != nil {
		return nil, err
	}
	if len(p.Criteria) < 2 {
		return nil, &ProblemError{Kind: KindEmptyProblem, Entity: "criteria", Detail: "sensitivity needs at least 2 criteria"}
	}
	if len(p.Alternatives) < 2 {
		return nil, &ProblemError{Kind: KindEmptyProblem, Entity: "alternatives", Detail: "sensitivity needs at least 2 alternatives"}
	}
	if k < 0 || k >= len(p.Criteria) {
		return nil, newError(KindInvalidSensitivityCriterion, "criterion_index", "index %d is outside [0, %d)", k, len(p.Criteria))
	}
	if err := ValidateSampleCount(samples); err != nil {
		return nil, err
	}

	v := newView(p)
	base, err := analyzeView(v, method, opts)
	if err != nil {
		return nil, err
	}

	probes := SweepWeights(samples)
	out := &SensitivityResult{
		Method:         method,
		Criterion:      v.critNames[k],
		CriterionIndex: k,
		AltNames:       append([]string(nil), v.altNames...),
		Weights:        probes,
		WeightVectors:  make([][]float64, samples),
		Scores:         make([][]float64, samples),
		Ranks:          make([][]int, samples),
		BaseScores:     base.Scores(),
		BaseRanks:      base.Ranks(),
		RankReversals:  []int{},
	}

	for s, w := range probes {
		weights := pinWeight(v.weights, k, w)
		res, err := analyzeView(v.withWeights(weights), method, opts)
		if err != nil {
			return nil, err
		}
		out.WeightVectors[s] = weights
		out.Scores[s] = res.Scores()
		out.Ranks[s] = res.Ranks()
		if !sameRanks(out.Ranks[s], out.BaseRanks) {
			out.RankReversals = append(out.RankReversals, s)
		}
	}
	return out, nil
}

// ValidateSampleCount reports whether samples is within [2, MaxSampleCount].
func ValidateSampleCount(samples int) error {
	if samples < 2 || samples > MaxSampleCount {
		return newError(KindInvalidSampleCount, "sample_count", "sample count %d is outside [2, %d]", samples, MaxSampleCount)
	}
	return nil
}

func sameRanks(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
