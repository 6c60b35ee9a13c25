package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Decision/internal/scoring"
)

// ErrNotFound is returned by deletes that match no row. Lookups return
// (nil, nil) instead.
var ErrNotFound = errors.New("not found")

type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Terminal reports whether a run in this status will not change again.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type RunKind string

const (
	KindAnalyze     RunKind = "analyze"
	KindSensitivity RunKind = "sensitivity"
)

// Error kinds recorded on failed runs besides the scoring.Kind values.
const (
	// ErrorKindStale marks runs failed by the reaper after sitting in
	// running for too long.
	ErrorKindStale          = "stale"
	ErrorKindMissingProblem = "ProblemNotFound"
	ErrorKindInternal       = "internal"
)

// ProblemRecord is a stored decision problem.
type ProblemRecord struct {
	ID          uuid.UUID        `json:"problem_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Problem     *scoring.Problem `json:"problem"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type ProblemFilter struct {
	Name   string
	Limit  int
	Offset int
}

// Run is one queued or finished analysis of a stored problem.
type Run struct {
	ID        uuid.UUID `json:"run_id"`
	ProblemID uuid.UUID `json:"problem_id"`
	Kind      RunKind   `json:"kind"`
	Source    string    `json:"source"`

	// Request
	Method         scoring.Method  `json:"method"`
	Options        scoring.Options `json:"options"`
	CriterionIndex int             `json:"criterion_index"`
	SampleCount    int             `json:"sample_count,omitempty"`

	// State
	Status RunStatus `json:"status"`

	// Outcome
	Result      *scoring.Result            `json:"result,omitempty"`
	Sensitivity *scoring.SensitivityResult `json:"sensitivity,omitempty"`
	Error       string                     `json:"error,omitempty"`
	ErrorKind   string                     `json:"error_kind,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type RunFilter struct {
	ProblemID *uuid.UUID
	Status    *RunStatus
	Limit     int
	Offset    int
}

type RunStats struct {
	TotalProblems  int     `json:"total_problems"`
	TotalPending   int     `json:"total_pending"`
	TotalRunning   int     `json:"total_running"`
	TotalCompleted int     `json:"total_completed"`
	TotalFailed    int     `json:"total_failed"`
	AvgDurationMs  float64 `json:"avg_duration_ms"`
}

const defaultListLimit = 100

type Store interface {
	CreateProblem(ctx context.Context, p *ProblemRecord) error
	GetProblem(ctx context.Context, id uuid.UUID) (*ProblemRecord, error)
	ListProblems(ctx context.Context, filter ProblemFilter) ([]*ProblemRecord, error)
	DeleteProblem(ctx context.Context, id uuid.UUID) error

	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	UpdateRun(ctx context.Context, run *Run) error

	GetPendingRuns(ctx context.Context, limit int) ([]*Run, error)
	// ClaimPendingRuns moves up to limit of the oldest pending runs to
	// running in one step and returns them. A run is claimed at most once.
	ClaimPendingRuns(ctx context.Context, limit int, startedAt time.Time) ([]*Run, error)
	GetStaleRuns(ctx context.Context, startedBefore time.Time) ([]*Run, error)

	GetStats(ctx context.Context) (*RunStats, error)

	Close() error
}
