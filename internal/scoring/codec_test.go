package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const laptopJSON = `{
  "name": "laptops",
  "description": "pick a travel machine",
  "criteria": {
    "weight":  {"direction": "min", "weight": 0.3},
    "price":   {"direction": "cost", "weight": 0.5},
    "battery": {"direction": "max", "weight": 0.2}
  },
  "alternatives": {
    "zeta":  {"description": "light", "price": 900, "battery": 12, "weight": 1.1},
    "alpha": {"price": "1200", "battery": 15, "weight": 1.3}
  }
}`

func TestProblemJSONPreservesOrder(t *testing.T) {
	var p Problem
	require.NoError(t, json.Unmarshal([]byte(laptopJSON), &p))

	assert.Equal(t, "laptops", p.Name)
	assert.Equal(t, "pick a travel machine", p.Description)
	assert.Equal(t, []string{"weight", "price", "battery"}, p.CriterionNames())
	assert.Equal(t, []string{"zeta", "alpha"}, p.AlternativeNames())
	assert.Equal(t, []Direction{Cost, Cost, Benefit}, p.Directions())
	assert.Equal(t, "light", p.Alternatives[0].Description)
	assert.Equal(t, 1200.0, p.Alternatives[1].Scores["price"], "numeric strings are accepted")
	require.NoError(t, Validate(&p))

	b, err := json.Marshal(p)
	require.NoError(t, err)
	s := string(b)
	assert.Less(t, strings.Index(s, `"weight":{`), strings.Index(s, `"price":{`))
	assert.Less(t, strings.Index(s, `"zeta"`), strings.Index(s, `"alpha"`))

	var back Problem
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, p, back)
}

func TestProblemJSONNonNumericScore(t *testing.T) {
	doc := `{"name":"x","criteria":{"c":{"direction":"benefit","weight":1}},
		"alternatives":{"a":{"c":"lots"},"b":{"c":true}}}`
	var p Problem
	require.NoError(t, json.Unmarshal([]byte(doc), &p))
	assert.True(t, math.IsNaN(p.Alternatives[0].Scores["c"]))
	assert.True(t, math.IsNaN(p.Alternatives[1].Scores["c"]))

	err := Validate(&p)
	assert.True(t, errors.Is(err, ErrNonNumericScore))
}

func TestProblemJSONMissingWeight(t *testing.T) {
	doc := `{"name":"x","criteria":{"c":{"direction":"benefit"}},"alternatives":{"a":{"c":1}}}`
	var p Problem
	require.NoError(t, json.Unmarshal([]byte(doc), &p))
	assert.True(t, math.IsNaN(p.Criteria[0].Weight))
	assert.True(t, errors.Is(Validate(&p), ErrInvalidWeight))
}

func TestProblemJSONKeepsDuplicateNames(t *testing.T) {
	doc := `{"name":"x","criteria":{"c":{"direction":"benefit","weight":0.5},"c":{"direction":"cost","weight":0.5}},
		"alternatives":{"a":{"c":1}}}`
	var p Problem
	require.NoError(t, json.Unmarshal([]byte(doc), &p))
	require.Len(t, p.Criteria, 2)

	var pe *ProblemError
	require.True(t, errors.As(Validate(&p), &pe))
	assert.Equal(t, KindDuplicateName, pe.Kind)
	assert.Equal(t, "c", pe.Entity)
}

func TestProblemJSONMalformed(t *testing.T) {
	for _, doc := range []string{
		`[]`,
		`{"name":"x","criteria":[1,2]}`,
		`{"name":"x","alternatives":{"a":[1]}}`,
		`{"name":42}`,
	} {
		var p Problem
		err := json.Unmarshal([]byte(doc), &p)
		assert.True(t, errors.Is(err, ErrMalformedProblem), "doc %s: got %v", doc, err)
	}
}

const laptopYAML = `
name: laptops
criteria:
  weight:  {direction: min, weight: 0.3}
  price:   {direction: cost, weight: 0.5}
  battery: {direction: benefit, weight: 0.2}
alternatives:
  zeta:
    description: light
    price: 900
    battery: 12
    weight: 1.1
  alpha:
    price: 1200
    battery: fifteen
    weight: 1.3
`

func TestDecodeProblemYAML(t *testing.T) {
	p, err := DecodeProblemYAML(strings.NewReader(laptopYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"weight", "price", "battery"}, p.CriterionNames())
	assert.Equal(t, []string{"zeta", "alpha"}, p.AlternativeNames())
	assert.Equal(t, Cost, p.Criteria[0].Direction)
	assert.Equal(t, 0.5, p.Criteria[1].Weight)
	assert.Equal(t, "light", p.Alternatives[0].Description)
	assert.True(t, math.IsNaN(p.Alternatives[1].Scores["battery"]))
}

func TestProblemYAMLRoundTrip(t *testing.T) {
	p := laptops()
	p.Description = "sample"
	out, err := yaml.Marshal(p)
	require.NoError(t, err)

	back, err := DecodeProblemYAML(strings.NewReader(string(out)))
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestDecodeProblemYAMLMalformed(t *testing.T) {
	for _, doc := range []string{
		"- just\n- a list\n",
		"name: x\ncriteria: [1, 2]\n",
		"name: x\nalternatives:\n  a: 3\n",
		"name: [unterminated\n",
	} {
		_, err := DecodeProblemYAML(strings.NewReader(doc))
		assert.True(t, errors.Is(err, ErrMalformedProblem), "doc %q: got %v", doc, err)
	}
}

func TestParseDirection(t *testing.T) {
	tests := map[string]Direction{
		"benefit":  Benefit,
		"MAX":      Benefit,
		" cost ":   Cost,
		"min":      Cost,
		"sideways": Direction("sideways"),
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseDirection(in), in)
	}
	assert.False(t, Direction("sideways").Valid())
}
