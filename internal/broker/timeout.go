package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/Decision/internal/hermes"
	"github.com/MikeSquared-Agency/Decision/internal/metrics"
	"github.com/MikeSquared-Agency/Decision/internal/store"
)

const reapInterval = 30 * time.Second

func (b *Broker) reapLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.reapStale(ctx)
			b.publishStats(ctx)
		}
	}
}

// reapStale fails runs that have been running for longer than stale_after.
// A process that died mid-run leaves them behind.
func (b *Broker) reapStale(ctx context.Context) {
	staleAfter := b.cfg.StaleAfter()
	runs, err := b.store.GetStaleRuns(ctx, b.now().Add(-staleAfter))
	if err != nil {
		b.logger.Error("failed to get stale runs", "error", err)
		return
	}

	for _, run := range runs {
		b.logger.Warn("run is stale", "run_id", run.ID, "started_at", run.StartedAt)
		cause := fmt.Errorf("run exceeded %s in running", staleAfter)
		if err := b.fail(ctx, run, cause, store.ErrorKindStale); err != nil {
			b.logger.Error("failed to mark run stale", "run_id", run.ID, "error", err)
			continue
		}
		metrics.RunsReaped.Inc()
	}
}

func (b *Broker) publishStats(ctx context.Context) {
	if b.hermes == nil {
		return
	}
	stats, err := b.store.GetStats(ctx)
	if err != nil {
		b.logger.Error("failed to get stats", "error", err)
		return
	}
	_ = b.hermes.Publish(hermes.SubjectStats, hermes.StatsEvent{
		Problems:  stats.TotalProblems,
		Pending:   stats.TotalPending,
		Running:   stats.TotalRunning,
		Completed: stats.TotalCompleted,
		Failed:    stats.TotalFailed,
		AvgMs:     stats.AvgDurationMs,
		Timestamp: b.now(),
	})
}
