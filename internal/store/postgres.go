package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Decision/internal/scoring"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by *pgxpool.Pool and by pgxmock pools.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db   querier
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{db: pool, pool: pool}, nil
}

func newPostgresStore(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// --- Problems ---

const problemColumns = `problem_id, name, description, problem, created_at, updated_at`

func (s *PostgresStore) CreateProblem(ctx context.Context, p *ProblemRecord) error {
	problemJSON, err := json.Marshal(p.Problem)
	if err != nil {
		return fmt.Errorf("encode problem: %w", err)
	}
	return s.db.QueryRow(ctx, `
		INSERT INTO decision_problems (name, description, problem)
		VALUES ($1, $2, $3)
		RETURNING problem_id, created_at, updated_at`,
		p.Name, p.Description, problemJSON,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s *PostgresStore) GetProblem(ctx context.Context, id uuid.UUID) (*ProblemRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+problemColumns+`
		FROM decision_problems WHERE problem_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	problems, err := scanProblems(rows)
	if err != nil || len(problems) == 0 {
		return nil, err
	}
	return problems[0], nil
}

func (s *PostgresStore) ListProblems(ctx context.Context, filter ProblemFilter) ([]*ProblemRecord, error) {
	query := `SELECT ` + problemColumns + ` FROM decision_problems WHERE 1=1`
	args := []any{}
	n := 0

	if filter.Name != "" {
		n++
		query += fmt.Sprintf(" AND name = $%d", n)
		args = append(args, filter.Name)
	}
	query += " ORDER BY created_at DESC"
	query, args = paginate(query, args, n, filter.Limit, filter.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProblems(rows)
}

func (s *PostgresStore) DeleteProblem(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM decision_problems WHERE problem_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProblems(rows pgx.Rows) ([]*ProblemRecord, error) {
	var out []*ProblemRecord
	for rows.Next() {
		p := &ProblemRecord{}
		var problemJSON []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &problemJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Problem = &scoring.Problem{}
		if err := json.Unmarshal(problemJSON, p.Problem); err != nil {
			return nil, fmt.Errorf("decode problem %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Runs ---

const runColumns = `run_id, problem_id, kind, source,
	method, options, criterion_index, sample_count,
	status, result, sensitivity, error, error_kind,
	created_at, started_at, completed_at, updated_at`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	optionsJSON, _ := json.Marshal(run.Options)
	if run.Status == "" {
		run.Status = StatusPending
	}
	return s.db.QueryRow(ctx, `
		INSERT INTO decision_runs (problem_id, kind, source, method, options,
			criterion_index, sample_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING run_id, created_at, updated_at`,
		run.ProblemID, string(run.Kind), run.Source, string(run.Method), optionsJSON,
		run.CriterionIndex, run.SampleCount, string(run.Status),
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+runColumns+`
		FROM decision_runs WHERE run_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM decision_runs WHERE 1=1`
	args := []any{}
	n := 0

	if filter.ProblemID != nil {
		n++
		query += fmt.Sprintf(" AND problem_id = $%d", n)
		args = append(args, *filter.ProblemID)
	}
	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	query += " ORDER BY created_at DESC"
	query, args = paginate(query, args, n, filter.Limit, filter.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	resultJSON, err := marshalNullable(run.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	sensitivityJSON, err := marshalNullable(run.Sensitivity)
	if err != nil {
		return fmt.Errorf("encode sensitivity: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		UPDATE decision_runs SET
			status = $2, result = $3, sensitivity = $4,
			error = $5, error_kind = $6,
			started_at = $7, completed_at = $8,
			updated_at = now()
		WHERE run_id = $1`,
		run.ID, string(run.Status), resultJSON, sensitivityJSON,
		run.Error, run.ErrorKind,
		run.StartedAt, run.CompletedAt,
	)
	return err
}

func (s *PostgresStore) GetPendingRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+runColumns+`
		FROM decision_runs WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (s *PostgresStore) ClaimPendingRuns(ctx context.Context, limit int, startedAt time.Time) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Query(ctx, `
		UPDATE decision_runs SET status = 'running', started_at = $2, updated_at = now()
		WHERE run_id IN (
			SELECT run_id FROM decision_runs WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+runColumns, limit, startedAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	return runs, nil
}

func (s *PostgresStore) GetStaleRuns(ctx context.Context, startedBefore time.Time) ([]*Run, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+runColumns+`
		FROM decision_runs WHERE status = 'running' AND started_at < $1
		ORDER BY started_at ASC`, startedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (s *PostgresStore) GetStats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM decision_problems),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at)) * 1000) FILTER (WHERE status = 'completed' AND started_at IS NOT NULL AND completed_at IS NOT NULL), 0)
		FROM decision_runs`,
	).Scan(&stats.TotalProblems, &stats.TotalPending, &stats.TotalRunning, &stats.TotalCompleted, &stats.TotalFailed, &stats.AvgDurationMs)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func scanRuns(rows pgx.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var kind, method, status string
		var optionsJSON, resultJSON, sensitivityJSON []byte
		if err := rows.Scan(
			&r.ID, &r.ProblemID, &kind, &r.Source,
			&method, &optionsJSON, &r.CriterionIndex, &r.SampleCount,
			&status, &resultJSON, &sensitivityJSON, &r.Error, &r.ErrorKind,
			&r.CreatedAt, &r.StartedAt, &r.CompletedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		r.Kind = RunKind(kind)
		r.Method = scoring.Method(method)
		r.Status = RunStatus(status)
		if len(optionsJSON) > 0 {
			_ = json.Unmarshal(optionsJSON, &r.Options)
		}
		if len(resultJSON) > 0 {
			r.Result = &scoring.Result{}
			if err := json.Unmarshal(resultJSON, r.Result); err != nil {
				return nil, fmt.Errorf("decode result of run %s: %w", r.ID, err)
			}
		}
		if len(sensitivityJSON) > 0 {
			r.Sensitivity = &scoring.SensitivityResult{}
			if err := json.Unmarshal(sensitivityJSON, r.Sensitivity); err != nil {
				return nil, fmt.Errorf("decode sensitivity of run %s: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// marshalNullable encodes v as JSON, or returns nil for a nil pointer so the
// column is stored as NULL.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func paginate(query string, args []any, n, limit, offset int) (string, []any) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, offset)
	}
	return query, args
}

// IsNotFound reports whether err is ErrNotFound or pgx.ErrNoRows.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
