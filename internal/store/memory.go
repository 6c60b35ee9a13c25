package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps problems and runs in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	problems map[uuid.UUID]*ProblemRecord
	runs     map[uuid.UUID]*Run
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		problems: make(map[uuid.UUID]*ProblemRecord),
		runs:     make(map[uuid.UUID]*Run),
		now:      time.Now,
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) CreateProblem(_ context.Context, p *ProblemRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.problems[p.ID] = &cp
	return nil
}

func (m *MemoryStore) GetProblem(_ context.Context, id uuid.UUID) (*ProblemRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.problems[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ListProblems(_ context.Context, filter ProblemFilter) ([]*ProblemRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ProblemRecord
	for _, p := range m.problems {
		if filter.Name != "" && p.Name != filter.Name {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

func (m *MemoryStore) DeleteProblem(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.problems[id]; !ok {
		return ErrNotFound
	}
	delete(m.problems, id)
	for rid, r := range m.runs {
		if r.ProblemID == id {
			delete(m.runs, rid)
		}
	}
	return nil
}

func (m *MemoryStore) CreateRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = uuid.New()
	if run.Status == "" {
		run.Status = StatusPending
	}
	run.CreatedAt = m.now()
	run.UpdatedAt = run.CreatedAt
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]*Run, error) {
	runs := m.selectRuns(func(r *Run) bool {
		if filter.ProblemID != nil && r.ProblemID != *filter.ProblemID {
			return false
		}
		return filter.Status == nil || r.Status == *filter.Status
	})
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return page(runs, filter.Limit, filter.Offset), nil
}

func (m *MemoryStore) UpdateRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return ErrNotFound
	}
	run.UpdatedAt = m.now()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryStore) GetPendingRuns(_ context.Context, limit int) ([]*Run, error) {
	runs := m.selectRuns(func(r *Run) bool { return r.Status == StatusPending })
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	return page(runs, limit, 0), nil
}

func (m *MemoryStore) ClaimPendingRuns(_ context.Context, limit int, startedAt time.Time) ([]*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*Run
	for _, r := range m.runs {
		if r.Status == StatusPending {
			pending = append(pending, r)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })

	claimed := page(pending, limit, 0)
	out := make([]*Run, 0, len(claimed))
	for _, r := range claimed {
		started := startedAt
		r.Status = StatusRunning
		r.StartedAt = &started
		r.UpdatedAt = m.now()
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) GetStaleRuns(_ context.Context, startedBefore time.Time) ([]*Run, error) {
	runs := m.selectRuns(func(r *Run) bool {
		return r.Status == StatusRunning && r.StartedAt != nil && r.StartedAt.Before(startedBefore)
	})
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.Before(*runs[j].StartedAt) })
	return runs, nil
}

func (m *MemoryStore) GetStats(_ context.Context) (*RunStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &RunStats{TotalProblems: len(m.problems)}
	var totalMs float64
	var timed int
	for _, r := range m.runs {
		switch r.Status {
		case StatusPending:
			stats.TotalPending++
		case StatusRunning:
			stats.TotalRunning++
		case StatusCompleted:
			stats.TotalCompleted++
			if r.StartedAt != nil && r.CompletedAt != nil {
				totalMs += float64(r.CompletedAt.Sub(*r.StartedAt).Milliseconds())
				timed++
			}
		case StatusFailed:
			stats.TotalFailed++
		}
	}
	if timed > 0 {
		stats.AvgDurationMs = totalMs / float64(timed)
	}
	return stats, nil
}

func (m *MemoryStore) selectRuns(keep func(*Run) bool) []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Run
	for _, r := range m.runs {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
