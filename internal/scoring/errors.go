package scoring

import "fmt"

// Kind identifies a class of problem or request failure.
type Kind string

const (
	KindEmptyProblem                Kind = "EmptyProblem"
	KindDuplicateName               Kind = "DuplicateName"
	KindInvalidDirection            Kind = "InvalidDirection"
	KindInvalidWeight               Kind = "InvalidWeight"
	KindWeightSumMismatch           Kind = "WeightSumMismatch"
	KindMissingScore                Kind = "MissingScore"
	KindNonNumericScore             Kind = "NonNumericScore"
	KindInvalidThreshold            Kind = "InvalidThreshold"
	KindInvalidSensitivityCriterion Kind = "InvalidSensitivityCriterion"
	KindInvalidSampleCount          Kind = "InvalidSampleCount"
	KindUnknownMethod               Kind = "UnknownMethod"
	KindMalformedProblem            Kind = "MalformedProblem"

	// KindDegenerateColumn is informational only. It is reported in result
	// details and never returned as an error.
	KindDegenerateColumn Kind = "DegenerateColumn"
)

// Sentinels for errors.Is matching against a *ProblemError of the same kind.
var (
	ErrEmptyProblem                = &ProblemError{Kind: KindEmptyProblem}
	ErrDuplicateName               = &ProblemError{Kind: KindDuplicateName}
	ErrInvalidDirection            = &ProblemError{Kind: KindInvalidDirection}
	ErrInvalidWeight               = &ProblemError{Kind: KindInvalidWeight}
	ErrWeightSumMismatch           = &ProblemError{Kind: KindWeightSumMismatch}
	ErrMissingScore                = &ProblemError{Kind: KindMissingScore}
	ErrNonNumericScore             = &ProblemError{Kind: KindNonNumericScore}
	ErrInvalidThreshold            = &ProblemError{Kind: KindInvalidThreshold}
	ErrInvalidSensitivityCriterion = &ProblemError{Kind: KindInvalidSensitivityCriterion}
	ErrInvalidSampleCount          = &ProblemError{Kind: KindInvalidSampleCount}
	ErrUnknownMethod               = &ProblemError{Kind: KindUnknownMethod}
	ErrMalformedProblem            = &ProblemError{Kind: KindMalformedProblem}
)

// ProblemError is the single diagnostic returned when a problem or request is
// rejected. Entity names the offending criterion, alternative or field.
type ProblemError struct {
	Kind   Kind   `json:"kind"`
	Entity string `json:"entity,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (e *ProblemError) Error() string {
	switch {
	case e.Entity != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Detail)
	case e.Entity != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Entity)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	default:
		return string(e.Kind)
	}
}

// Is matches any *ProblemError with the same Kind.
func (e *ProblemError) Is(target error) bool {
	t, ok := target.(*ProblemError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, entity, format string, args ...any) *ProblemError {
	return &ProblemError{Kind: kind, Entity: entity, Detail: fmt.Sprintf(format, args...)}
}
