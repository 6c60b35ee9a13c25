package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Decision/internal/scoring"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPostgresStore(mock), mock
}

func sampleProblem() *scoring.Problem {
	return &scoring.Problem{
		Name: "vendors",
		Criteria: []scoring.Criterion{
			{Name: "price", Direction: scoring.Cost, Weight: 0.6},
			{Name: "support", Direction: scoring.Benefit, Weight: 0.4},
		},
		Alternatives: []scoring.Alternative{
			{Name: "acme", Scores: map[string]float64{"price": 100, "support": 7}},
			{Name: "globex", Scores: map[string]float64{"price": 80, "support": 5}},
		},
	}
}

var problemCols = []string{"problem_id", "name", "description", "problem", "created_at", "updated_at"}

var runCols = []string{
	"run_id", "problem_id", "kind", "source",
	"method", "options", "criterion_index", "sample_count",
	"status", "result", "sensitivity", "error", "error_kind",
	"created_at", "started_at", "completed_at", "updated_at",
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS decision_problems").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateProblem(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO decision_problems").
		WithArgs("vendors", "shortlist", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"problem_id", "created_at", "updated_at"}).
			AddRow(id.String(), now, now))

	rec := &ProblemRecord{Name: "vendors", Description: "shortlist", Problem: sampleProblem()}
	require.NoError(t, s.CreateProblem(context.Background(), rec))
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, now, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetProblemKeepsOrder(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now().UTC()
	body := []byte(`{"name":"vendors","criteria":{"support":{"direction":"benefit","weight":0.4},"price":{"direction":"cost","weight":0.6}},
		"alternatives":{"globex":{"price":80,"support":5},"acme":{"price":100,"support":7}}}`)

	mock.ExpectQuery("SELECT (.+) FROM decision_problems WHERE problem_id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(problemCols).AddRow(id.String(), "vendors", "", body, now, now))

	got, err := s.GetProblem(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"support", "price"}, got.Problem.CriterionNames())
	assert.Equal(t, []string{"globex", "acme"}, got.Problem.AlternativeNames())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetProblemNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM decision_problems").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(problemCols))

	got, err := s.GetProblem(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresListProblemsFilter(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT (.+) FROM decision_problems WHERE 1=1 AND name = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("vendors", 5, 10).
		WillReturnRows(pgxmock.NewRows(problemCols))

	got, err := s.ListProblems(context.Background(), ProblemFilter{Name: "vendors", Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteProblem(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM decision_problems").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, s.DeleteProblem(context.Background(), id))

	mock.ExpectExec("DELETE FROM decision_problems").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	err := s.DeleteProblem(context.Background(), id)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRun(t *testing.T) {
	s, mock := newMockStore(t)
	problemID, runID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO decision_runs").
		WithArgs(problemID, "analyze", "api", "topsis", pgxmock.AnyArg(), 0, 0, "pending").
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "created_at", "updated_at"}).
			AddRow(runID.String(), now, now))

	run := &Run{ProblemID: problemID, Kind: KindAnalyze, Source: "api", Method: scoring.TOPSIS, Options: scoring.DefaultOptions()}
	require.NoError(t, s.CreateRun(context.Background(), run))
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, StatusPending, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRunDecodesResult(t *testing.T) {
	s, mock := newMockStore(t)
	res, err := scoring.Analyze(sampleProblem(), scoring.ELECTRE, scoring.DefaultOptions())
	require.NoError(t, err)
	resultJSON, err := json.Marshal(res)
	require.NoError(t, err)

	runID, problemID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	started := now.Add(-time.Second)

	mock.ExpectQuery("SELECT (.+) FROM decision_runs WHERE run_id").
		WithArgs(runID).
		WillReturnRows(pgxmock.NewRows(runCols).AddRow(
			runID.String(), problemID.String(), "analyze", "hermes",
			"electre", []byte(`{"concordance_threshold":0.7,"discordance_threshold":0.3}`), 0, 0,
			"completed", resultJSON, []byte(nil), "", "",
			now, &started, &now, now,
		))

	run, err := s.GetRun(context.Background(), runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, scoring.ELECTRE, run.Method)
	assert.Equal(t, "hermes", run.Source)
	assert.Equal(t, 0.7, run.Options.ConcordanceThreshold)
	require.NotNil(t, run.Result)
	require.NotNil(t, run.Result.Details.ELECTRE)
	assert.Equal(t, res.Ranking, run.Result.Ranking)
	assert.Nil(t, run.Sensitivity)
	assert.Equal(t, started, *run.StartedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRun(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	run := &Run{
		ID:          uuid.New(),
		Status:      StatusFailed,
		Error:       "WeightSumMismatch: criteria: weights sum to 0.9000, must sum to 1.0",
		ErrorKind:   string(scoring.KindWeightSumMismatch),
		StartedAt:   &now,
		CompletedAt: &now,
	}

	mock.ExpectExec("UPDATE decision_runs SET").
		WithArgs(run.ID, "failed", []byte(nil), []byte(nil), run.Error, run.ErrorKind, run.StartedAt, run.CompletedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetPendingRunsDefaultLimit(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM decision_runs WHERE status = 'pending'").
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows(runCols))

	runs, err := s.GetPendingRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClaimPendingRuns(t *testing.T) {
	s, mock := newMockStore(t)
	started := time.Now().UTC()
	older, newer := started.Add(-2*time.Minute), started.Add(-time.Minute)
	a, b, problemID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`UPDATE decision_runs SET status = 'running'(.+)FOR UPDATE SKIP LOCKED(.+)RETURNING`).
		WithArgs(5, started).
		WillReturnRows(pgxmock.NewRows(runCols).
			AddRow(
				b.String(), problemID.String(), "analyze", "api",
				"wsm", []byte(`{}`), 0, 0,
				"running", []byte(nil), []byte(nil), "", "",
				newer, &started, nil, started,
			).
			AddRow(
				a.String(), problemID.String(), "sensitivity", "nats",
				"topsis", []byte(`{}`), 1, 5,
				"running", []byte(nil), []byte(nil), "", "",
				older, &started, nil, started,
			))

	runs, err := s.ClaimPendingRuns(context.Background(), 5, started)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, a, runs[0].ID, "oldest first")
	assert.Equal(t, b, runs[1].ID)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Equal(t, started, *runs[0].StartedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetStats(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM decision_runs").
		WillReturnRows(pgxmock.NewRows([]string{"problems", "pending", "running", "completed", "failed", "avg"}).
			AddRow(3, 1, 2, 10, 4, 12.5))

	stats, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &RunStats{
		TotalProblems: 3, TotalPending: 1, TotalRunning: 2,
		TotalCompleted: 10, TotalFailed: 4, AvgDurationMs: 12.5,
	}, stats)
}

func TestPostgresQueryError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM decision_runs").
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetStaleRuns(context.Background(), time.Now())
	assert.EqualError(t, err, "connection reset")
}
