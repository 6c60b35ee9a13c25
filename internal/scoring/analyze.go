package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Method selects a ranking algorithm.
type Method string

const (
	WSM     Method = "wsm"
	WPM     Method = "wpm"
	TOPSIS  Method = "topsis"
	ELECTRE Method = "electre"
	MABAC   Method = "mabac"
)

// Methods lists every supported method.
func Methods() []Method {
	return []Method{WSM, WPM, TOPSIS, ELECTRE, MABAC}
}

// ParseMethod maps a case-insensitive method tag onto a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", newError(KindUnknownMethod, "method", "unknown method %q", s)
	}
	return m, nil
}

// Valid reports whether m is a supported method.
func (m Method) Valid() bool {
	switch m {
	case WSM, WPM, TOPSIS, ELECTRE, MABAC:
		return true
	}
	return false
}

// Options carries per-call settings. Only ELECTRE reads them.
type Options struct {
	ConcordanceThreshold float64 `json:"concordance_threshold" yaml:"concordance_threshold"`
	DiscordanceThreshold float64 `json:"discordance_threshold" yaml:"discordance_threshold"`
}

const (
	DefaultConcordanceThreshold = 0.7
	DefaultDiscordanceThreshold = 0.3
)

// DefaultOptions returns the default ELECTRE thresholds.
func DefaultOptions() Options {
	return Options{
		ConcordanceThreshold: DefaultConcordanceThreshold,
		DiscordanceThreshold: DefaultDiscordanceThreshold,
	}
}

// Validate checks that both thresholds lie in [0, 1].
func (o Options) Validate() error {
	if !inUnit(o.ConcordanceThreshold) {
		return newError(KindInvalidThreshold, "concordance_threshold", "%g is outside [0, 1]", o.ConcordanceThreshold)
	}
	if !inUnit(o.DiscordanceThreshold) {
		return newError(KindInvalidThreshold, "discordance_threshold", "%g is outside [0, 1]", o.DiscordanceThreshold)
	}
	return nil
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Analyze validates p once and ranks its alternatives with method. The result
// always includes the min-max normalized matrix, whatever the method.
func Analyze(p *Problem, method Method, opts Options) (*Result, error) {
	if err := ValidateFor(p, method, opts); err != nil {
		return nil, err
	}
	return analyzeView(newView(p), method, opts)
}

// analyzeView runs method on an already validated view.
func analyzeView(v *view, method Method, opts Options) (*Result, error) {
	normalized, degenerate := NormalizeMinMax(v.matrix, v.directions)
	scores, details, err := dispatch(v, normalized, method, opts)
	if err != nil {
		return nil, err
	}

	diag := Diagnostics{ParetoFront: namesAt(v.altNames, ParetoFront(normalized))}
	if len(degenerate) > 0 {
		diag.DegenerateColumns = namesAt(v.critNames, degenerate)
	}
	details = withDiagnostics(details, diag)

	ranking := buildRanking(v.altNames, scores)
	res := &Result{
		Method:     method,
		AltNames:   append([]string(nil), v.altNames...),
		CritNames:  append([]string(nil), v.critNames...),
		Weights:    append([]float64(nil), v.weights...),
		Directions: append([]Direction(nil), v.directions...),
		Normalized: normalized,
		Ranking:    ranking,
		Details:    details,
	}
	if len(ranking) > 0 {
		first, last := ranking[0], ranking[len(ranking)-1]
		res.Best = ScoreRef{Alt: first.Alt, Score: first.Score}
		res.Worst = ScoreRef{Alt: last.Alt, Score: last.Score}
	}
	return res, nil
}

// dispatch returns per-alternative scores in natural order plus the
// method-specific details.
func dispatch(v *view, normalized Matrix, method Method, opts Options) ([]float64, Details, error) {
	switch method {
	case WSM:
		s, d := rankWSM(v, normalized)
		return s, Details{WSM: d}, nil
	case WPM:
		s, d := rankWPM(v)
		return s, Details{WPM: d}, nil
	case TOPSIS:
		s, d := rankTOPSIS(v)
		return s, Details{TOPSIS: d}, nil
	case ELECTRE:
		s, d := rankELECTRE(v, normalized, opts)
		return s, Details{ELECTRE: d}, nil
	case MABAC:
		s, d := rankMABAC(v, normalized)
		return s, Details{MABAC: d}, nil
	default:
		return nil, Details{}, fmt.Errorf("dispatch: %w", newError(KindUnknownMethod, "method", "unknown method %q", string(method)))
	}
}

func withDiagnostics(d Details, diag Diagnostics) Details {
	switch {
	case d.WSM != nil:
		d.WSM.Diagnostics = diag
	case d.WPM != nil:
		d.WPM.Diagnostics = diag
	case d.TOPSIS != nil:
		d.TOPSIS.Diagnostics = diag
	case d.ELECTRE != nil:
		d.ELECTRE.Diagnostics = diag
	case d.MABAC != nil:
		d.MABAC.Diagnostics = diag
	}
	return d
}

func namesAt(names []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, k := range idx {
		out[i] = names[k]
	}
	return out
}
