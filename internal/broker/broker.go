package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Decision/internal/cache"
	"github.com/MikeSquared-Agency/Decision/internal/config"
	"github.com/MikeSquared-Agency/Decision/internal/hermes"
	"github.com/MikeSquared-Agency/Decision/internal/metrics"
	"github.com/MikeSquared-Agency/Decision/internal/scoring"
	"github.com/MikeSquared-Agency/Decision/internal/store"
)

// Broker owns the run queue. It executes pending runs against their stored
// problems, fronts the scoring core with the result cache and reports run
// lifecycle events over hermes.
type Broker struct {
	store  store.Store
	hermes hermes.Client
	cache  cache.Cache
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a broker. h may be nil to run without events and c may be nil
// to run without a cache.
func New(s store.Store, h hermes.Client, c cache.Cache, cfg *config.Config, logger *slog.Logger) *Broker {
	if c == nil {
		c = cache.Noop{}
	}
	return &Broker{
		store:  s,
		hermes: h,
		cache:  c,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

func (b *Broker) Start(ctx context.Context) {
	b.wg.Add(2)
	go b.runLoop(ctx)
	go b.reapLoop(ctx)
}

func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
}

func (b *Broker) runLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.processPending(ctx)
		}
	}
}

func (b *Broker) processPending(ctx context.Context) {
	runs, err := b.store.ClaimPendingRuns(ctx, b.cfg.Runs.BatchSize, b.now())
	if err != nil {
		b.logger.Error("failed to claim pending runs", "error", err)
		return
	}
	if len(runs) == 0 {
		return
	}

	b.logger.Info("processing pending runs", "count", len(runs))
	for _, run := range runs {
		if b.hermes != nil {
			_ = b.hermes.Publish(hermes.SubjectRunStarted(run.ID.String()), hermes.RunStartedEvent{RunID: run.ID.String()})
		}
		if err := b.Execute(ctx, run); err != nil {
			b.logger.Warn("failed to execute run", "run_id", run.ID, "error", err)
		}
	}
}

// Enqueue fills request defaults, stores run as pending and announces it.
func (b *Broker) Enqueue(ctx context.Context, run *store.Run) error {
	b.applyDefaults(run)
	run.Status = store.StatusPending
	return b.create(ctx, run)
}

// RunNow stores run as already running and executes it inline, so the run
// loop never sees it pending.
func (b *Broker) RunNow(ctx context.Context, run *store.Run) error {
	b.applyDefaults(run)
	now := b.now()
	run.Status = store.StatusRunning
	run.StartedAt = &now
	if err := b.create(ctx, run); err != nil {
		return err
	}
	if b.hermes != nil {
		_ = b.hermes.Publish(hermes.SubjectRunStarted(run.ID.String()), hermes.RunStartedEvent{RunID: run.ID.String()})
	}
	return b.Execute(ctx, run)
}

func (b *Broker) create(ctx context.Context, run *store.Run) error {
	if err := b.store.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	if b.hermes != nil {
		_ = b.hermes.Publish(hermes.SubjectRunCreated(run.ID.String()), hermes.RunCreatedEvent{
			RunID:     run.ID.String(),
			ProblemID: run.ProblemID.String(),
			Kind:      string(run.Kind),
			Method:    string(run.Method),
		})
	}
	return nil
}

func (b *Broker) applyDefaults(run *store.Run) {
	if run.Kind == "" {
		run.Kind = store.KindAnalyze
	}
	if run.Source == "" {
		run.Source = "api"
	}
	if run.Kind == store.KindSensitivity && run.SampleCount == 0 {
		run.SampleCount = b.cfg.Analysis.SampleCount
	}
}

// Execute takes run to a terminal status. Analysis failures are recorded on
// the run; the returned error only reports a store failure.
func (b *Broker) Execute(ctx context.Context, run *store.Run) error {
	if run.Status.Terminal() {
		return nil
	}
	if run.Status != store.StatusRunning {
		now := b.now()
		run.Status = store.StatusRunning
		run.StartedAt = &now
		if err := b.store.UpdateRun(ctx, run); err != nil {
			return fmt.Errorf("mark run running: %w", err)
		}
		if b.hermes != nil {
			_ = b.hermes.Publish(hermes.SubjectRunStarted(run.ID.String()), hermes.RunStartedEvent{RunID: run.ID.String()})
		}
	}

	metrics.RunsActive.Inc()
	defer metrics.RunsActive.Dec()

	rec, err := b.store.GetProblem(ctx, run.ProblemID)
	if err != nil {
		return b.fail(ctx, run, err, store.ErrorKindInternal)
	}
	if rec == nil {
		return b.fail(ctx, run, fmt.Errorf("problem %s not found", run.ProblemID), store.ErrorKindMissingProblem)
	}

	var cached bool
	var best *scoring.ScoreRef
	switch run.Kind {
	case store.KindSensitivity:
		samples := run.SampleCount
		if samples == 0 {
			samples = b.cfg.Analysis.SampleCount
		}
		res, hit, err := b.sensitivity(ctx, rec.Problem, run.Method, run.CriterionIndex, samples, run.Options)
		if err != nil {
			return b.fail(ctx, run, err, errorKind(err))
		}
		run.Sensitivity, cached = res, hit
	default:
		res, hit, err := b.analyze(ctx, rec.Problem, run.Method, run.Options)
		if err != nil {
			return b.fail(ctx, run, err, errorKind(err))
		}
		run.Result, cached = res, hit
		best = &res.Best
	}

	now := b.now()
	run.Status = store.StatusCompleted
	run.CompletedAt = &now
	run.Error, run.ErrorKind = "", ""
	if err := b.store.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("store run result: %w", err)
	}

	duration := durationMs(run)
	b.logger.Info("run completed", "run_id", run.ID, "kind", run.Kind, "method", run.Method,
		"duration_ms", duration, "cached", cached)
	if b.hermes != nil {
		_ = b.hermes.Publish(hermes.SubjectRunCompleted(run.ID.String()), hermes.RunCompletedEvent{
			RunID:      run.ID.String(),
			ProblemID:  run.ProblemID.String(),
			Method:     string(run.Method),
			Best:       best,
			DurationMs: duration,
			Cached:     cached,
		})
	}
	return nil
}

func (b *Broker) fail(ctx context.Context, run *store.Run, cause error, kind string) error {
	now := b.now()
	run.Status = store.StatusFailed
	run.CompletedAt = &now
	run.Error = cause.Error()
	run.ErrorKind = kind
	observeRejection(cause)
	if err := b.store.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("store run failure: %w", err)
	}

	b.logger.Warn("run failed", "run_id", run.ID, "error", cause, "error_kind", kind)
	if b.hermes != nil {
		_ = b.hermes.Publish(hermes.SubjectRunFailed(run.ID.String()), hermes.RunFailedEvent{
			RunID:     run.ID.String(),
			Error:     run.Error,
			ErrorKind: kind,
		})
	}
	return nil
}

// Analyze ranks p with method, serving repeated requests from the cache.
func (b *Broker) Analyze(ctx context.Context, p *scoring.Problem, method scoring.Method, opts scoring.Options) (*scoring.Result, error) {
	res, _, err := b.analyze(ctx, p, method, opts)
	return res, err
}

// Sensitivity sweeps the weight of criterion k, serving repeated requests
// from the cache.
func (b *Broker) Sensitivity(ctx context.Context, p *scoring.Problem, method scoring.Method, k, samples int, opts scoring.Options) (*scoring.SensitivityResult, error) {
	res, _, err := b.sensitivity(ctx, p, method, k, samples, opts)
	return res, err
}

func (b *Broker) analyze(ctx context.Context, p *scoring.Problem, method scoring.Method, opts scoring.Options) (*scoring.Result, bool, error) {
	key, keyErr := cache.ResultKey(p, method, opts)
	if keyErr == nil {
		res, ok, err := b.cache.GetResult(ctx, key)
		if b.countLookup(ok, err) {
			return res, true, nil
		}
	}

	started := time.Now()
	res, err := scoring.Analyze(p, method, opts)
	metrics.ObserveAnalysis(string(store.KindAnalyze), string(method), started, err)
	if err != nil {
		return nil, false, err
	}

	if keyErr == nil {
		if err := b.cache.PutResult(ctx, key, res); err != nil {
			b.logger.Warn("cache put failed", "key", key, "error", err)
		}
	}
	return res, false, nil
}

func (b *Broker) sensitivity(ctx context.Context, p *scoring.Problem, method scoring.Method, k, samples int, opts scoring.Options) (*scoring.SensitivityResult, bool, error) {
	key, keyErr := cache.SensitivityKey(p, method, k, samples, opts)
	if keyErr == nil {
		res, ok, err := b.cache.GetSensitivity(ctx, key)
		if b.countLookup(ok, err) {
			return res, true, nil
		}
	}

	started := time.Now()
	res, err := scoring.Sensitivity(p, method, k, samples, opts)
	metrics.ObserveAnalysis(string(store.KindSensitivity), string(method), started, err)
	if err != nil {
		return nil, false, err
	}

	if keyErr == nil {
		if err := b.cache.PutSensitivity(ctx, key, res); err != nil {
			b.logger.Warn("cache put failed", "key", key, "error", err)
		}
	}
	return res, false, nil
}

// countLookup records a cache lookup and reports whether it was a usable hit.
func (b *Broker) countLookup(ok bool, err error) bool {
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(metrics.OutcomeFailure).Inc()
		b.logger.Warn("cache lookup failed", "error", err)
		return false
	case ok:
		metrics.CacheLookups.WithLabelValues(metrics.OutcomeHit).Inc()
		return true
	default:
		metrics.CacheLookups.WithLabelValues(metrics.OutcomeMiss).Inc()
		return false
	}
}

func observeRejection(err error) {
	var pe *scoring.ProblemError
	if errors.As(err, &pe) {
		metrics.ValidationFailures.WithLabelValues(string(pe.Kind)).Inc()
	}
}

// checkSampleCount rejects an explicit sample count a sensitivity run could
// not execute. Zero selects the configured default.
func checkSampleCount(kind store.RunKind, samples int) error {
	if kind != store.KindSensitivity || samples == 0 {
		return nil
	}
	return scoring.ValidateSampleCount(samples)
}

func errorKind(err error) string {
	var pe *scoring.ProblemError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return store.ErrorKindInternal
}

func durationMs(run *store.Run) int64 {
	if run.StartedAt == nil || run.CompletedAt == nil {
		return 0
	}
	return run.CompletedAt.Sub(*run.StartedAt).Milliseconds()
}

// SetupSubscriptions registers the NATS intake for analysis requests.
func (b *Broker) SetupSubscriptions() {
	if b.hermes == nil {
		return
	}

	_ = b.hermes.Subscribe(hermes.SubjectAnalysisRequest, func(_ string, data []byte) {
		var req hermes.AnalysisRequestEvent
		if err := json.Unmarshal(data, &req); err != nil {
			b.logger.Warn("invalid analysis request event", "error", err)
			return
		}
		run, err := b.HandleAnalysisRequest(context.Background(), req)
		if err != nil {
			b.logger.Error("failed to queue run from NATS request", "error", err)
			return
		}
		b.logger.Info("run queued from NATS request", "run_id", run.ID, "problem_id", run.ProblemID, "method", run.Method)
	})
}

// HandleAnalysisRequest turns an intake event into a pending run. An inline
// problem is validated and stored first.
func (b *Broker) HandleAnalysisRequest(ctx context.Context, req hermes.AnalysisRequestEvent) (*store.Run, error) {
	method, err := scoring.ParseMethod(req.Method)
	if err != nil {
		observeRejection(err)
		return nil, err
	}
	kind := store.RunKind(req.Kind)
	if kind != "" && kind != store.KindAnalyze && kind != store.KindSensitivity {
		return nil, fmt.Errorf("unknown run kind %q", req.Kind)
	}
	if err := checkSampleCount(kind, req.SampleCount); err != nil {
		observeRejection(err)
		return nil, err
	}

	var problemID uuid.UUID
	switch {
	case req.Problem != nil:
		if err := scoring.Validate(req.Problem); err != nil {
			observeRejection(err)
			return nil, err
		}
		rec := &store.ProblemRecord{Name: req.Problem.Name, Problem: req.Problem}
		if err := b.CreateProblem(ctx, rec); err != nil {
			return nil, err
		}
		problemID = rec.ID
	case req.ProblemID != "":
		problemID, err = uuid.Parse(req.ProblemID)
		if err != nil {
			return nil, fmt.Errorf("invalid problem_id %q: %w", req.ProblemID, err)
		}
		rec, err := b.store.GetProblem(ctx, problemID)
		if err != nil {
			return nil, fmt.Errorf("get problem: %w", err)
		}
		if rec == nil {
			return nil, fmt.Errorf("problem %s not found", problemID)
		}
	default:
		return nil, errors.New("request names no problem")
	}

	opts := b.cfg.Options()
	if req.Options != nil {
		opts = *req.Options
	}
	source := req.Source
	if source == "" {
		source = "nats"
	}
	run := &store.Run{
		ProblemID:      problemID,
		Kind:           kind,
		Source:         source,
		Method:         method,
		Options:        opts,
		CriterionIndex: req.CriterionIndex,
		SampleCount:    req.SampleCount,
	}
	if err := b.Enqueue(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// CreateProblem stores rec and announces it.
func (b *Broker) CreateProblem(ctx context.Context, rec *store.ProblemRecord) error {
	if err := b.store.CreateProblem(ctx, rec); err != nil {
		return fmt.Errorf("create problem: %w", err)
	}
	if b.hermes != nil {
		_ = b.hermes.Publish(hermes.SubjectProblemCreated(rec.ID.String()), hermes.ProblemEvent{
			ProblemID: rec.ID.String(),
			Name:      rec.Name,
		})
	}
	return nil
}

// DeleteProblem removes a problem with its runs and announces it.
func (b *Broker) DeleteProblem(ctx context.Context, rec *store.ProblemRecord) error {
	if err := b.store.DeleteProblem(ctx, rec.ID); err != nil {
		return err
	}
	if b.hermes != nil {
		_ = b.hermes.Publish(hermes.SubjectProblemDeleted(rec.ID.String()), hermes.ProblemEvent{
			ProblemID: rec.ID.String(),
			Name:      rec.Name,
		})
	}
	return nil
}
