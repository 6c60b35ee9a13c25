package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Matrix is a dense row-major matrix. Non-finite cells (undefined diagonals,
// infinite ratios) are written as JSON null and read back as NaN.
type Matrix [][]float64

func (m Matrix) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		for j, v := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				buf.WriteString("null")
				continue
			}
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (m *Matrix) UnmarshalJSON(data []byte) error {
	var raw [][]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}
	out := make(Matrix, len(raw))
	for i, row := range raw {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = *v
		}
	}
	*m = out
	return nil
}

// RankEntry is one line of a ranking. Rank 1 is best.
type RankEntry struct {
	Alt   string  `json:"alt"`
	Rank  int     `json:"rank"`
	Score float64 `json:"score"`
}

// ScoreRef names an alternative and its score.
type ScoreRef struct {
	Alt   string  `json:"alt"`
	Score float64 `json:"score"`
}

// Result is the output of Analyze, shared by all methods.
type Result struct {
	Method     Method      `json:"method"`
	AltNames   []string    `json:"alt_names"`
	CritNames  []string    `json:"crit_names"`
	Weights    []float64   `json:"weights"`
	Directions []Direction `json:"directions"`
	Normalized Matrix      `json:"normalized"`
	Ranking    []RankEntry `json:"ranking"`
	Best       ScoreRef    `json:"best"`
	Worst      ScoreRef    `json:"worst"`
	Details    Details     `json:"details"`
}

// Scores returns the method score of every alternative in problem order.
func (r *Result) Scores() []float64 {
	out := make([]float64, len(r.AltNames))
	idx := indexOf(r.AltNames)
	for _, e := range r.Ranking {
		out[idx[e.Alt]] = e.Score
	}
	return out
}

// Ranks returns the rank of every alternative in problem order.
func (r *Result) Ranks() []int {
	out := make([]int, len(r.AltNames))
	idx := indexOf(r.AltNames)
	for _, e := range r.Ranking {
		out[idx[e.Alt]] = e.Rank
	}
	return out
}

func (r *Result) UnmarshalJSON(data []byte) error {
	type envelope Result
	var aux struct {
		*envelope
		Details json.RawMessage `json:"details"`
	}
	aux.envelope = (*envelope)(r)
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Details = Details{}
	if len(aux.Details) == 0 || string(aux.Details) == "null" {
		return nil
	}

	var target any
	switch r.Method {
	case WSM:
		r.Details.WSM = &WSMDetails{}
		target = r.Details.WSM
	case WPM:
		r.Details.WPM = &WPMDetails{}
		target = r.Details.WPM
	case TOPSIS:
		r.Details.TOPSIS = &TOPSISDetails{}
		target = r.Details.TOPSIS
	case ELECTRE:
		r.Details.ELECTRE = &ELECTREDetails{}
		target = r.Details.ELECTRE
	case MABAC:
		r.Details.MABAC = &MABACDetails{}
		target = r.Details.MABAC
	default:
		return fmt.Errorf("decode details: unknown method %q", r.Method)
	}
	return json.Unmarshal(aux.Details, target)
}

// Details carries the method-specific intermediates. Exactly one field is
// set; its JSON form is that record alone.
type Details struct {
	WSM     *WSMDetails     `msgpack:"wsm,omitempty"`
	WPM     *WPMDetails     `msgpack:"wpm,omitempty"`
	TOPSIS  *TOPSISDetails  `msgpack:"topsis,omitempty"`
	ELECTRE *ELECTREDetails `msgpack:"electre,omitempty"`
	MABAC   *MABACDetails   `msgpack:"mabac,omitempty"`
}

// Active returns the populated details record, or nil.
func (d Details) Active() any {
	switch {
	case d.WSM != nil:
		return d.WSM
	case d.WPM != nil:
		return d.WPM
	case d.TOPSIS != nil:
		return d.TOPSIS
	case d.ELECTRE != nil:
		return d.ELECTRE
	case d.MABAC != nil:
		return d.MABAC
	}
	return nil
}

// Diagnostics returns the shared diagnostics of the populated record.
func (d Details) Diagnostics() Diagnostics {
	switch {
	case d.WSM != nil:
		return d.WSM.Diagnostics
	case d.WPM != nil:
		return d.WPM.Diagnostics
	case d.TOPSIS != nil:
		return d.TOPSIS.Diagnostics
	case d.ELECTRE != nil:
		return d.ELECTRE.Diagnostics
	case d.MABAC != nil:
		return d.MABAC.Diagnostics
	}
	return Diagnostics{}
}

func (d Details) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Active())
}

// Diagnostics are reported alongside every method's details.
type Diagnostics struct {
	// DegenerateColumns lists criteria on which all alternatives score the same.
	DegenerateColumns []string `json:"degenerate_columns,omitempty"`
	// ParetoFront lists alternatives no other alternative dominates.
	ParetoFront []string `json:"pareto_front"`
}

type WSMDetails struct {
	Diagnostics
	Weighted Matrix    `json:"weighted"`
	Totals   []float64 `json:"totals"`
}

// Cell addresses one value of the decision matrix.
type Cell struct {
	Alt       string  `json:"alt"`
	Criterion string  `json:"criterion"`
	Original  float64 `json:"original"`
}

type WPMDetails struct {
	Diagnostics
	Epsilon          float64   `json:"epsilon"`
	Contributions    Matrix    `json:"contributions"`
	Products         []float64 `json:"products"`
	Ratios           Matrix    `json:"ratios"`
	InfiniteRatios   bool      `json:"infinite_ratios"`
	Substituted      bool      `json:"substituted"`
	SubstitutedCells []Cell    `json:"substituted_cells,omitempty"`
}

type TOPSISDetails struct {
	Diagnostics
	VectorNormalized       Matrix    `json:"vector_normalized"`
	Weighted               Matrix    `json:"weighted"`
	Ideal                  []float64 `json:"ideal"`
	AntiIdeal              []float64 `json:"anti_ideal"`
	DistanceIdeal          []float64 `json:"distance_ideal"`
	DistanceAntiIdeal      []float64 `json:"distance_anti_ideal"`
	Closeness              []float64 `json:"closeness"`
	DegenerateAlternatives []string  `json:"degenerate_alternatives,omitempty"`
}

type ELECTREDetails struct {
	Diagnostics
	ConcordanceThreshold float64 `json:"concordance_threshold"`
	DiscordanceThreshold float64 `json:"discordance_threshold"`
	Concordance          Matrix  `json:"concordance"`
	Discordance          Matrix  `json:"discordance"`
	Outranking           [][]int `json:"outranking"`
	Outranks             []int   `json:"outranks"`
	OutrankedBy          []int   `json:"outranked_by"`
	NetFlow              []int   `json:"net_flow"`
	// NoOutranking is set when no alternative outranks any other.
	NoOutranking bool `json:"no_outranking"`
}

// Area locates a MABAC weighted value relative to the border approximation.
type Area string

const (
	AreaUpper  Area = "upper"
	AreaLower  Area = "lower"
	AreaBorder Area = "border"
)

type MABACDetails struct {
	Diagnostics
	Weighted Matrix    `json:"weighted"`
	Border   []float64 `json:"border"`
	Distance Matrix    `json:"distance"`
	Totals   []float64 `json:"totals"`
	Areas    [][]Area  `json:"areas"`
}

func indexOf(names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return idx
}
