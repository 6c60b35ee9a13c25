package scoring

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformThree() *Problem {
	third := 1.0 / 3
	return mkProblem(
		[]Criterion{crit("c1", Benefit, third), crit("c2", Benefit, third), crit("c3", Cost, third)},
		row("A", 10, 10, 1),
		row("B", 5, 5, 5),
		row("C", 1, 1, 10),
	)
}

func TestELECTREDominantAlternativeOutranksAll(t *testing.T) {
	opts := Options{ConcordanceThreshold: 0.6, DiscordanceThreshold: 0.4}
	res, err := Analyze(uniformThree(), ELECTRE, opts)
	require.NoError(t, err)
	d := res.Details.ELECTRE
	require.NotNil(t, d)

	assert.Equal(t, 1, d.Outranking[0][1])
	assert.Equal(t, 1, d.Outranking[0][2])
	assert.Equal(t, 0, d.Outranking[1][0])
	assert.Equal(t, 0, d.Outranking[2][0])
	assert.Equal(t, 2, d.NetFlow[0])
	assert.Equal(t, ScoreRef{Alt: "A", Score: 2}, res.Best)
	assert.False(t, d.NoOutranking)
	assert.Equal(t, 0.6, d.ConcordanceThreshold)
	assert.Equal(t, 0.4, d.DiscordanceThreshold)
}

func TestELECTREConcordanceAndDiscordance(t *testing.T) {
	res, err := Analyze(uniformThree(), ELECTRE, DefaultOptions())
	require.NoError(t, err)
	d := res.Details.ELECTRE

	assert.InDelta(t, 1.0, d.Concordance[0][1], 1e-12)
	assert.InDelta(t, 0.0, d.Concordance[1][0], 1e-12)
	assert.InDelta(t, 0.0, d.Discordance[0][2], 1e-12)
	assert.InDelta(t, 1.0, d.Discordance[2][0], 1e-12)

	for i := range d.Concordance {
		assert.True(t, math.IsNaN(d.Concordance[i][i]))
		assert.True(t, math.IsNaN(d.Discordance[i][i]))
		assert.Equal(t, 0, d.Outranking[i][i])
	}
}

func TestELECTREPermissiveThresholdsOutrankEverything(t *testing.T) {
	opts := Options{ConcordanceThreshold: 0, DiscordanceThreshold: 1}
	res, err := Analyze(laptops(), ELECTRE, opts)
	require.NoError(t, err)
	d := res.Details.ELECTRE

	m := len(res.AltNames)
	for i := 0; i < m; i++ {
		for k := 0; k < m; k++ {
			if i != k {
				assert.Equal(t, 1, d.Outranking[i][k])
			}
		}
		assert.Equal(t, 0, d.NetFlow[i])
	}
	assert.Equal(t, []int{1, 2, 3, 4}, res.Ranks())
}

func TestELECTRENoOutranking(t *testing.T) {
	p := mkProblem(
		[]Criterion{crit("c1", Benefit, 0.5), crit("c2", Benefit, 0.5)},
		row("left", 1, 0),
		row("right", 0, 1),
	)
	opts := Options{ConcordanceThreshold: 1, DiscordanceThreshold: 0}
	res, err := Analyze(p, ELECTRE, opts)
	require.NoError(t, err)
	d := res.Details.ELECTRE

	assert.True(t, d.NoOutranking)
	assert.Equal(t, []int{0, 0}, d.NetFlow)
	assert.Equal(t, "left", res.Best.Alt)
}

func TestELECTREDiagonalEncodesAsNull(t *testing.T) {
	res, err := Analyze(uniformThree(), ELECTRE, DefaultOptions())
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `"concordance":[[null,`), string(b))

	var back Result
	require.NoError(t, json.Unmarshal(b, &back))
	require.NotNil(t, back.Details.ELECTRE)
	assert.True(t, math.IsNaN(back.Details.ELECTRE.Discordance[1][1]))
	assert.Equal(t, res.Details.ELECTRE.NetFlow, back.Details.ELECTRE.NetFlow)
}
