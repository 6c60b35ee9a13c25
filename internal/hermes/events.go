package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/Decision/internal/scoring"
)

// AnalysisRequestEvent asks the service to queue a run. Either ProblemID
// names a stored problem or Problem carries one inline, which is stored first.
type AnalysisRequestEvent struct {
	ProblemID      string           `json:"problem_id,omitempty"`
	Problem        *scoring.Problem `json:"problem,omitempty"`
	Kind           string           `json:"kind,omitempty"`
	Method         string           `json:"method"`
	Options        *scoring.Options `json:"options,omitempty"`
	CriterionIndex int              `json:"criterion_index,omitempty"`
	SampleCount    int              `json:"sample_count,omitempty"`
	Source         string           `json:"source,omitempty"`
}

type RunCreatedEvent struct {
	RunID     string `json:"run_id"`
	ProblemID string `json:"problem_id"`
	Kind      string `json:"kind"`
	Method    string `json:"method"`
}

type RunStartedEvent struct {
	RunID string `json:"run_id"`
}

type RunCompletedEvent struct {
	RunID      string            `json:"run_id"`
	ProblemID  string            `json:"problem_id"`
	Method     string            `json:"method"`
	Best       *scoring.ScoreRef `json:"best,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	Cached     bool              `json:"cached"`
}

type RunFailedEvent struct {
	RunID     string `json:"run_id"`
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

type ProblemEvent struct {
	ProblemID string `json:"problem_id"`
	Name      string `json:"name"`
}

type StatsEvent struct {
	Problems  int       `json:"problems"`
	Pending   int       `json:"pending"`
	Running   int       `json:"running"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	AvgMs     float64   `json:"avg_duration_ms"`
	Timestamp time.Time `json:"timestamp"`
}
