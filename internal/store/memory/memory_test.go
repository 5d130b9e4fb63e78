package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestEntryCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.Create(ctx, "alice", store.EntryFields{
		Title:        "salary",
		NumericValue: core.FloatPtr(1200),
		Tags:         []string{"Income"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Owner != "alice" || created.CreatedAt.IsZero() {
		t.Fatalf("unexpected created entry: %+v", created)
	}

	got, err := s.Get(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "salary" || *got.NumericValue != 1200 {
		t.Fatalf("unexpected entry: %+v", got)
	}

	updated, err := s.Update(ctx, "alice", created.ID, store.EntryFields{
		Title:        "salary (net)",
		NumericValue: core.FloatPtr(1000),
		Tags:         []string{"income", "net"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "salary (net)" || len(updated.Tags) != 2 {
		t.Fatalf("update did not replace fields: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("update must not touch createdAt")
	}

	if err := s.Delete(ctx, "alice", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "alice", created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	e, err := s.Create(ctx, "alice", store.EntryFields{Title: "rent"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.Get(ctx, "bob", e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner get: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Update(ctx, "bob", e.ID, store.EntryFields{Title: "stolen"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner update: expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "bob", e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner delete: expected ErrNotFound, got %v", err)
	}

	// Still intact for the real owner.
	if _, err := s.Get(ctx, "alice", e.ID); err != nil {
		t.Fatalf("entry lost after cross-owner attempts: %v", err)
	}

	entries, err := s.List(ctx, "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("bob sees %d foreign entries", len(entries))
	}
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.SetClock(fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	for _, title := range []string{"first", "second", "third"} {
		if _, err := s.Create(ctx, "alice", store.EntryFields{Title: title}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	entries, err := s.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 || entries[0].Title != "third" || entries[2].Title != "first" {
		t.Fatalf("unexpected order: %+v", entries)
	}
}

func TestAnalysisLatestAndPrune(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.SetClock(fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	if _, err := s.FindLatest(ctx, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty store, got %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := s.CreateAnalysis(ctx, "alice", "run", nil); err != nil {
			t.Fatalf("create analysis %d: %v", i, err)
		}
	}
	last, err := s.CreateAnalysis(ctx, "alice", "latest run", []core.DatasetPoint{{Label: "2024-01-01", Value: 1}})
	if err != nil {
		t.Fatalf("create analysis: %v", err)
	}
	if _, err := s.CreateAnalysis(ctx, "bob", "other owner", nil); err != nil {
		t.Fatalf("create analysis: %v", err)
	}

	latest, err := s.FindLatest(ctx, "alice")
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if latest.ID != last.ID {
		t.Fatalf("latest = %s, want %s", latest.ID, last.ID)
	}

	removed, err := s.PruneAnalyses(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 4 {
		t.Fatalf("removed = %d, want 4", removed)
	}
	// The newest snapshot survives a prune.
	latest, err = s.FindLatest(ctx, "alice")
	if err != nil || latest.ID != last.ID {
		t.Fatalf("latest after prune = %v, %v", latest.ID, err)
	}
	// Other owners untouched.
	if _, err := s.FindLatest(ctx, "bob"); err != nil {
		t.Fatalf("bob's snapshot lost: %v", err)
	}

	owners, err := s.AnalysisOwners(ctx)
	if err != nil {
		t.Fatalf("owners: %v", err)
	}
	if len(owners) != 2 {
		t.Fatalf("owners = %v, want alice and bob", owners)
	}
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, err := s.CreateUser(ctx, "Alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := s.CreateUser(ctx, "Other", "Alice@Example.com", "hash2"); !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("get by email: %v, %v", byEmail.ID, err)
	}
	byID, err := s.GetUserByID(ctx, u.ID)
	if err != nil || byID.Email != "alice@example.com" {
		t.Fatalf("get by id: %v, %v", byID.Email, err)
	}
	if _, err := s.GetUserByID(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
