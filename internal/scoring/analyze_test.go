package scoring

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeInvariantsForEveryMethod(t *testing.T) {
	for _, method := range Methods() {
		t.Run(string(method), func(t *testing.T) {
			p := laptops()
			res, err := Analyze(p, method, DefaultOptions())
			require.NoError(t, err)

			assert.Equal(t, method, res.Method)
			assert.Equal(t, p.AlternativeNames(), res.AltNames)
			assert.Equal(t, p.CriterionNames(), res.CritNames)
			assert.Equal(t, p.Weights(), res.Weights)
			assert.Equal(t, p.Directions(), res.Directions)
			require.Len(t, res.Ranking, len(p.Alternatives))
			require.Len(t, res.Normalized, len(p.Alternatives))

			// Ranks are a permutation of 1..m in ranking order.
			seen := map[string]bool{}
			for pos, e := range res.Ranking {
				assert.Equal(t, pos+1, e.Rank)
				assert.False(t, seen[e.Alt], "duplicate %s", e.Alt)
				seen[e.Alt] = true
				if pos > 0 {
					assert.LessOrEqual(t, e.Score, res.Ranking[pos-1].Score)
				}
			}
			assert.Equal(t, res.Ranking[0].Alt, res.Best.Alt)
			assert.Equal(t, res.Ranking[len(res.Ranking)-1].Alt, res.Worst.Alt)

			require.NotNil(t, res.Details.Active())
			assert.NotEmpty(t, res.Details.Diagnostics().ParetoFront)
		})
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	for _, method := range Methods() {
		first, err := Analyze(laptops(), method, DefaultOptions())
		require.NoError(t, err)
		second, err := Analyze(laptops(), method, DefaultOptions())
		require.NoError(t, err)

		a, err := json.Marshal(first)
		require.NoError(t, err)
		b, err := json.Marshal(second)
		require.NoError(t, err)
		assert.JSONEq(t, string(a), string(b), "method %s", method)
	}
}

func TestAnalyzeRejectsInvalidProblem(t *testing.T) {
	p := laptops()
	p.Criteria[0].Weight = 0.5

	res, err := Analyze(p, WSM, DefaultOptions())
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrWeightSumMismatch))
}

func TestAnalyzeUnknownMethod(t *testing.T) {
	_, err := Analyze(laptops(), Method("promethee"), DefaultOptions())
	assert.True(t, errors.Is(err, ErrUnknownMethod))
}

func TestAnalyzeSingleAlternative(t *testing.T) {
	p := mkProblem([]Criterion{crit("c", Benefit, 1)}, row("only", 3))
	for _, method := range []Method{WSM, WPM, TOPSIS, MABAC} {
		res, err := Analyze(p, method, DefaultOptions())
		require.NoError(t, err, "method %s", method)
		assert.Equal(t, "only", res.Best.Alt)
		assert.Equal(t, res.Best, res.Worst)
	}
}

func TestAnalyzeParetoFront(t *testing.T) {
	p := mkProblem(
		[]Criterion{crit("c1", Benefit, 0.5), crit("c2", Benefit, 0.5)},
		row("a", 3, 1),
		row("b", 1, 3),
		row("c", 1, 1),
	)
	res, err := Analyze(p, WSM, DefaultOptions())
	require.NoError(t, err)

	diag := res.Details.Diagnostics()
	assert.Equal(t, []string{"a", "b"}, diag.ParetoFront)
	assert.Empty(t, diag.DegenerateColumns)
}

func TestResultJSONRoundTrip(t *testing.T) {
	for _, method := range Methods() {
		t.Run(string(method), func(t *testing.T) {
			res, err := Analyze(laptops(), method, DefaultOptions())
			require.NoError(t, err)

			b, err := json.Marshal(res)
			require.NoError(t, err)

			var envelope map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(b, &envelope))
			for _, key := range []string{"method", "alt_names", "crit_names", "weights", "directions", "normalized", "ranking", "best", "worst", "details"} {
				assert.Contains(t, envelope, key)
			}

			var back Result
			require.NoError(t, json.Unmarshal(b, &back))
			assert.Equal(t, res.Ranking, back.Ranking)
			assert.Equal(t, res.Normalized, back.Normalized)
			require.NotNil(t, back.Details.Active())
			assert.Equal(t, res.Details.Diagnostics(), back.Details.Diagnostics())
		})
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" TOPSIS ")
	require.NoError(t, err)
	assert.Equal(t, TOPSIS, m)

	_, err = ParseMethod("vikor")
	var pe *ProblemError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindUnknownMethod, pe.Kind)
	assert.Equal(t, "method", pe.Entity)
}

func TestRankOrderIsStable(t *testing.T) {
	assert.Equal(t, []int{1, 3, 0, 2}, rankOrder([]float64{0.2, 0.9, 0.2, 0.5}))
	assert.Equal(t, []int{3, 1, 4, 2}, ranksOf([]float64{0.2, 0.9, 0.2, 0.5}))
}
