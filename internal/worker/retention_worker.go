// Package worker implements the snapshot retention worker. Every
// analysis run persists a new snapshot; the worker caps how many of them
// each owner accumulates.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/store"
)

// RetentionWorker prunes analysis snapshots down to a per-owner cap. It
// reacts to snapshot-created events and also sweeps all owners on a
// timer, so a missed event only delays pruning until the next sweep.
type RetentionWorker struct {
	analyses store.AnalysisStore
	keep     int
}

func NewRetentionWorker(analyses store.AnalysisStore, keep int) *RetentionWorker {
	return &RetentionWorker{
		analyses: analyses,
		keep:     keep,
	}
}

// HandleAnalysisCreated processes a single snapshot-created event by
// pruning the owner it names.
func (w *RetentionWorker) HandleAnalysisCreated(ctx context.Context, msg *amqp.AnalysisCreatedMessage) error {
	slog.InfoContext(ctx, "Processing analysis event",
		"analysis_id", msg.AnalysisID,
		"owner", msg.Owner)

	removed, err := w.analyses.PruneAnalyses(ctx, msg.Owner, w.keep)
	if err != nil {
		return fmt.Errorf("prune analyses: %w", err)
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Pruned analysis snapshots",
			"owner", msg.Owner,
			"removed", removed,
			"keep", w.keep)
	}
	return nil
}

// SweepAll prunes every owner that has snapshots. Per-owner failures are
// logged and do not stop the sweep; the first one is reported back.
func (w *RetentionWorker) SweepAll(ctx context.Context) error {
	owners, err := w.analyses.AnalysisOwners(ctx)
	if err != nil {
		return fmt.Errorf("list analysis owners: %w", err)
	}

	var firstErr error
	removed := 0
	for _, owner := range owners {
		n, err := w.analyses.PruneAnalyses(ctx, owner, w.keep)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to prune analyses",
				"owner", owner,
				"error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("prune analyses for %s: %w", owner, err)
			}
			continue
		}
		removed += n
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Retention sweep complete",
			"owners", len(owners),
			"removed", removed)
	}
	return firstErr
}

// RunSweeper sweeps at the given interval until ctx is cancelled. One
// sweep runs immediately so a restart never waits a full interval.
func (w *RetentionWorker) RunSweeper(ctx context.Context, interval time.Duration) error {
	if err := w.SweepAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial retention sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.SweepAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Retention sweep failed", "error", err)
			}
		}
	}
}
