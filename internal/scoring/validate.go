package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks a problem's structure, directions, weights and scores. It
// stops at the first violation and returns a *ProblemError naming the
// offending entity. The problem is never modified.
func Validate(p *Problem) error {
	if p == nil {
		return &ProblemError{Kind: KindMalformedProblem, Detail: "problem is nil"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &ProblemError{Kind: KindMalformedProblem, Entity: "name", Detail: "problem name is empty"}
	}
	if len(p.Criteria) == 0 {
		return &ProblemError{Kind: KindEmptyProblem, Entity: "criteria", Detail: "no criteria"}
	}
	if len(p.Alternatives) == 0 {
		return &ProblemError{Kind: KindEmptyProblem, Entity: "alternatives", Detail: "no alternatives"}
	}

	seen := make(map[string]struct{}, len(p.Criteria))
	for _, c := range p.Criteria {
		if strings.TrimSpace(c.Name) == "" {
			return &ProblemError{Kind: KindMalformedProblem, Entity: "criteria", Detail: "criterion name is empty"}
		}
		if _, dup := seen[c.Name]; dup {
			return newError(KindDuplicateName, c.Name, "criterion %q is defined more than once", c.Name)
		}
		seen[c.Name] = struct{}{}
	}

	for _, c := range p.Criteria {
		if !c.Direction.Valid() {
			return newError(KindInvalidDirection, c.Name, "direction %q is not benefit or cost", string(c.Direction))
		}
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			return newError(KindInvalidWeight, c.Name, "weight is not a number")
		}
		if c.Weight < 0 || c.Weight > 1 {
			return newError(KindInvalidWeight, c.Name, "weight %g is outside [0, 1]", c.Weight)
		}
	}

	if sum := sumWeights(p.Weights()); !weightSumOK(sum) {
		return newError(KindWeightSumMismatch, "criteria", "weights sum to %.4f, must sum to 1.0", sum)
	}

	alts := make(map[string]struct{}, len(p.Alternatives))
	for _, a := range p.Alternatives {
		if strings.TrimSpace(a.Name) == "" {
			return &ProblemError{Kind: KindMalformedProblem, Entity: "alternatives", Detail: "alternative name is empty"}
		}
		if _, dup := alts[a.Name]; dup {
			return newError(KindDuplicateName, a.Name, "alternative %q is defined more than once", a.Name)
		}
		alts[a.Name] = struct{}{}
	}

	for _, a := range p.Alternatives {
		for _, c := range p.Criteria {
			v, ok := a.Scores[c.Name]
			if !ok {
				return newError(KindMissingScore, scoreEntity(a.Name, c.Name), "no score for criterion %q", c.Name)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return newError(KindNonNumericScore, scoreEntity(a.Name, c.Name), "score is not a finite number")
			}
		}
	}
	return nil
}

// ValidateFor runs Validate and then the checks specific to method and opts.
func ValidateFor(p *Problem, method Method, opts Options) error {
	if !method.Valid() {
		return newError(KindUnknownMethod, "method", "unknown method %q", string(method))
	}
	if err := Validate(p); err != nil {
		return err
	}
	if method == ELECTRE {
		if len(p.Alternatives) < 2 {
			return &ProblemError{Kind: KindEmptyProblem, Entity: "alternatives", Detail: "electre needs at least 2 alternatives"}
		}
		if len(p.Criteria) < 2 {
			return &ProblemError{Kind: KindEmptyProblem, Entity: "criteria", Detail: "electre needs at least 2 criteria"}
		}
		if err := opts.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func scoreEntity(alt, crit string) string {
	return fmt.Sprintf("%s/%s", alt, crit)
}
