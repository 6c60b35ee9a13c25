package scoring

import "strings"

// Direction says whether larger or smaller values of a criterion are preferred.
type Direction string

const (
	Benefit Direction = "benefit"
	Cost    Direction = "cost"
)

// ParseDirection maps a textual direction onto Benefit or Cost. The legacy
// "max"/"min" spellings are accepted. Unknown values are returned unchanged
// so that Validate can report them.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "benefit", "max":
		return Benefit
	case "cost", "min":
		return Cost
	default:
		return Direction(s)
	}
}

// Valid reports whether d is Benefit or Cost.
func (d Direction) Valid() bool {
	return d == Benefit || d == Cost
}

// Criterion is one dimension along which alternatives are compared.
type Criterion struct {
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	Weight    float64   `json:"weight"`
}

// Alternative is a candidate option with one score per criterion name.
type Alternative struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Scores      map[string]float64 `json:"scores"`
}

// Problem is a decision problem. Criteria and alternatives keep the order in
// which they were given; every matrix produced from a problem uses that order.
type Problem struct {
	Name         string
	Description  string
	Criteria     []Criterion
	Alternatives []Alternative
}

// CriterionNames returns the criterion names in problem order.
func (p *Problem) CriterionNames() []string {
	out := make([]string, len(p.Criteria))
	for j, c := range p.Criteria {
		out[j] = c.Name
	}
	return out
}

// AlternativeNames returns the alternative names in problem order.
func (p *Problem) AlternativeNames() []string {
	out := make([]string, len(p.Alternatives))
	for i, a := range p.Alternatives {
		out[i] = a.Name
	}
	return out
}

// Weights returns the criterion weights in problem order.
func (p *Problem) Weights() []float64 {
	out := make([]float64, len(p.Criteria))
	for j, c := range p.Criteria {
		out[j] = c.Weight
	}
	return out
}

// Directions returns the criterion directions in problem order.
func (p *Problem) Directions() []Direction {
	out := make([]Direction, len(p.Criteria))
	for j, c := range p.Criteria {
		out[j] = c.Direction
	}
	return out
}

// view holds the parallel arrays every ranker works on. It is derived from a
// validated problem and never stored.
type view struct {
	matrix     [][]float64
	directions []Direction
	weights    []float64
	altNames   []string
	critNames  []string
}

func newView(p *Problem) *view {
	v := &view{
		directions: p.Directions(),
		weights:    p.Weights(),
		altNames:   p.AlternativeNames(),
		critNames:  p.CriterionNames(),
	}
	v.matrix = make([][]float64, len(p.Alternatives))
	for i, a := range p.Alternatives {
		row := make([]float64, len(p.Criteria))
		for j, c := range p.Criteria {
			row[j] = a.Scores[c.Name]
		}
		v.matrix[i] = row
	}
	return v
}

// withWeights returns a shallow copy of v using the given weights.
func (v *view) withWeights(weights []float64) *view {
	cp := *v
	cp.weights = weights
	return &cp
}
