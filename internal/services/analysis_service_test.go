package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

// seededStore returns a memory store with a deterministic clock that
// advances one second per call.
func seededStore() *memory.Store {
	s := memory.New()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	n := 0
	s.SetClock(func() time.Time {
		t := base.Add(time.Duration(n) * time.Second)
		n++
		return t
	})
	return s
}

func addEntry(t *testing.T, s *memory.Store, owner string, value *float64, tags ...string) core.Entry {
	t.Helper()
	e, err := s.Create(context.Background(), owner, store.EntryFields{
		Title:        "entry",
		Content:      "body",
		NumericValue: value,
		Tags:         tags,
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return e
}

func TestRunDetailedAnalysis(t *testing.T) {
	ctx := context.Background()
	s := seededStore()
	addEntry(t, s, "u1", core.FloatPtr(100), "Food")
	addEntry(t, s, "u1", core.FloatPtr(-20), "Food", "Travel")

	svc := NewAnalysisService(s, s, nil)
	got, err := svc.RunDetailedAnalysis(ctx, "u1")
	if err != nil {
		t.Fatalf("RunDetailedAnalysis: %v", err)
	}

	want := "You have 2 entries with total value 80 and average 40.00. Top tags: Food (2), Travel (1) Data spans 2024-01-01 to 2024-01-01."
	if got.Summary != want {
		t.Errorf("summary = %q, want %q", got.Summary, want)
	}
	if len(got.Dataset) != 1 || got.Dataset[0].Value != 80 {
		t.Errorf("dataset = %+v, want single day with value 80", got.Dataset)
	}
	if len(got.TopTags) != 2 || got.TopTags[0].Tag != "Food" || got.TopTags[0].Count != 2 {
		t.Errorf("topTags = %+v", got.TopTags)
	}
	if got.AnalysisID == "" {
		t.Error("expected a persisted analysis ID")
	}

	latest, err := svc.Latest(ctx, "u1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Summary == nil || *latest.Summary != want {
		t.Errorf("latest summary = %v, want %q", latest.Summary, want)
	}
	if len(latest.Dataset) != 1 {
		t.Errorf("latest dataset = %+v", latest.Dataset)
	}
}

func TestRunBasicAnalysisCountsMissingValuesAsOne(t *testing.T) {
	ctx := context.Background()
	s := seededStore()
	addEntry(t, s, "u1", nil)
	addEntry(t, s, "u1", core.FloatPtr(5))

	svc := NewAnalysisService(s, s, nil)
	got, err := svc.RunBasicAnalysis(ctx, "u1")
	if err != nil {
		t.Fatalf("RunBasicAnalysis: %v", err)
	}
	if got.Summary != "You have 2 entries with total value 6." {
		t.Errorf("summary = %q", got.Summary)
	}
	if got.ID == "" || got.Owner != "u1" {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestLatestWithoutSnapshots(t *testing.T) {
	svc := NewAnalysisService(seededStore(), seededStore(), nil)
	got, err := svc.Latest(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.Summary != nil {
		t.Errorf("summary = %v, want nil", got.Summary)
	}
	if got.Dataset == nil || len(got.Dataset) != 0 {
		t.Errorf("dataset = %#v, want empty non-nil slice", got.Dataset)
	}
}

func TestAggregateOnlyIsUncapped(t *testing.T) {
	ctx := context.Background()
	s := seededStore()
	tags := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	for _, tag := range tags {
		addEntry(t, s, "u1", core.FloatPtr(1), tag)
	}

	svc := NewAnalysisService(s, s, nil)
	agg, err := svc.AggregateOnly(ctx, "u1")
	if err != nil {
		t.Fatalf("AggregateOnly: %v", err)
	}
	if len(agg.ByTag) != len(tags) {
		t.Errorf("len(ByTag) = %d, want %d", len(agg.ByTag), len(tags))
	}
}

func TestAnalysisScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s := seededStore()
	addEntry(t, s, "u1", core.FloatPtr(100))
	addEntry(t, s, "u2", core.FloatPtr(999))

	svc := NewAnalysisService(s, s, nil)
	agg, err := svc.AggregateOnly(ctx, "u1")
	if err != nil {
		t.Fatalf("AggregateOnly: %v", err)
	}
	if agg.Sum != 100 {
		t.Errorf("sum = %v, want 100", agg.Sum)
	}
}
