// Package services holds the request-scoped operations the HTTP layer
// exposes. Services own the store ports and the optional event client;
// handlers never touch persistence directly.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Tag caps for the two narrative modes. The detailed narrative ranks
// more tags than the compact one shown elsewhere.
const (
	detailedTagLimit = 10
	topTagLimit      = 5
)

// AnalysisService orchestrates aggregation runs: read the owner's
// entries, compute aggregates, persist a snapshot, announce it. Each run
// re-reads the full entry set; there is no incremental state.
type AnalysisService struct {
	entries  store.EntryStore
	analyses store.AnalysisStore
	events   *amqp.Client
}

func NewAnalysisService(entries store.EntryStore, analyses store.AnalysisStore, events *amqp.Client) *AnalysisService {
	return &AnalysisService{
		entries:  entries,
		analyses: analyses,
		events:   events,
	}
}

// DetailedAnalysis is the result of a detailed run.
type DetailedAnalysis struct {
	Summary    string              `json:"summary"`
	Dataset    []core.DatasetPoint `json:"dataset"`
	TopTags    []core.TagGroup     `json:"topTags"`
	AnalysisID string              `json:"analysisId"`
}

// LatestAnalysis is the read view of the most recent snapshot. Summary
// is nil when the owner has never run an analysis; that case is a valid
// empty result, not an error.
type LatestAnalysis struct {
	Dataset []core.DatasetPoint `json:"dataset"`
	Summary *string             `json:"summary"`
}

// AggregateOnly runs the engine over the owner's entries and returns the
// structured aggregates without writing anything. ByTag is uncapped.
func (s *AnalysisService) AggregateOnly(ctx context.Context, owner string) (core.Aggregates, error) {
	entries, err := s.entries.List(ctx, owner)
	if err != nil {
		return core.Aggregates{}, fmt.Errorf("fetch entries: %w", err)
	}
	return core.Aggregate(entries, core.Options{MissingValue: 0}), nil
}

// RunDetailedAnalysis computes aggregates with true monetary semantics
// (missing values count as 0), narrates them in detail, and persists the
// day series as a new snapshot.
func (s *AnalysisService) RunDetailedAnalysis(ctx context.Context, owner string) (DetailedAnalysis, error) {
	entries, err := s.entries.List(ctx, owner)
	if err != nil {
		return DetailedAnalysis{}, fmt.Errorf("fetch entries: %w", err)
	}

	agg := core.Aggregate(entries, core.Options{MissingValue: 0, TagLimit: detailedTagLimit})
	summary := core.Narrate(agg)

	snapshot, err := s.analyses.CreateAnalysis(ctx, owner, summary, agg.ByDay)
	if err != nil {
		return DetailedAnalysis{}, fmt.Errorf("persist analysis: %w", err)
	}
	s.announce(ctx, snapshot)

	return DetailedAnalysis{
		Summary:    summary,
		Dataset:    agg.ByDay,
		TopTags:    agg.ByTag,
		AnalysisID: snapshot.ID,
	}, nil
}

// RunBasicAnalysis is the occurrence-counting sibling: an entry with no
// recorded value counts as 1, so the series doubles as an activity
// histogram. The distinct default is deliberate; see core.Options.
func (s *AnalysisService) RunBasicAnalysis(ctx context.Context, owner string) (core.AnalysisSnapshot, error) {
	entries, err := s.entries.List(ctx, owner)
	if err != nil {
		return core.AnalysisSnapshot{}, fmt.Errorf("fetch entries: %w", err)
	}

	agg := core.Aggregate(entries, core.Options{MissingValue: 1})
	summary := core.NarrateBasic(agg.TotalCount, agg.Sum)

	snapshot, err := s.analyses.CreateAnalysis(ctx, owner, summary, agg.ByDay)
	if err != nil {
		return core.AnalysisSnapshot{}, fmt.Errorf("persist analysis: %w", err)
	}
	s.announce(ctx, snapshot)

	return snapshot, nil
}

// Latest returns the owner's most recent snapshot, or the empty sentinel
// when none exists.
func (s *AnalysisService) Latest(ctx context.Context, owner string) (LatestAnalysis, error) {
	snapshot, err := s.analyses.FindLatest(ctx, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LatestAnalysis{Dataset: []core.DatasetPoint{}, Summary: nil}, nil
		}
		return LatestAnalysis{}, fmt.Errorf("fetch latest analysis: %w", err)
	}
	return LatestAnalysis{Dataset: snapshot.Dataset, Summary: &snapshot.Summary}, nil
}

// announce publishes a snapshot-created event. Best effort: the snapshot
// is already durable, so a broker hiccup must not fail the request.
func (s *AnalysisService) announce(ctx context.Context, snapshot core.AnalysisSnapshot) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishAnalysisCreated(ctx, snapshot.ID, snapshot.Owner, snapshot.CreatedAt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish analysis event",
			"error", err,
			"analysis_id", snapshot.ID,
			"owner", snapshot.Owner)
	}
}
