package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestEntryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created, err := repo.Create(ctx, "alice", store.EntryFields{
		Title:        "groceries",
		Content:      "weekly shop",
		NumericValue: core.FloatPtr(-54.2),
		Tags:         []string{"Food", "weekly"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "groceries" || got.Content != "weekly shop" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.NumericValue == nil || *got.NumericValue != -54.2 {
		t.Fatalf("numeric value = %v, want -54.2", got.NumericValue)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "Food" {
		t.Fatalf("tags = %v", got.Tags)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("createdAt not persisted")
	}
}

func TestEntryNilValuePersists(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created, err := repo.Create(ctx, "alice", store.EntryFields{Title: "no value"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.Get(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.NumericValue != nil {
		t.Fatalf("expected nil numeric value, got %v", *got.NumericValue)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Fatalf("expected empty tags, got %v", got.Tags)
	}
}

func TestEntryUpdateReplacesFields(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created, err := repo.Create(ctx, "alice", store.EntryFields{
		Title:        "old",
		NumericValue: core.FloatPtr(10),
		Tags:         []string{"a"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := repo.Update(ctx, "alice", created.ID, store.EntryFields{
		Title: "new",
		Tags:  []string{"b", "c"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "new" || updated.NumericValue != nil || len(updated.Tags) != 2 {
		t.Fatalf("update not a full replace: %+v", updated)
	}
	if d := updated.CreatedAt.Sub(created.CreatedAt); d < -time.Second || d > time.Second {
		t.Fatalf("createdAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
}

func TestOwnerScoping(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	e, err := repo.Create(ctx, "alice", store.EntryFields{Title: "mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.Get(ctx, "bob", e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner get: %v", err)
	}
	if err := repo.Delete(ctx, "bob", e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner delete: %v", err)
	}
	if _, err := repo.Update(ctx, "bob", e.ID, store.EntryFields{Title: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner update: %v", err)
	}

	entries, err := repo.List(ctx, "alice")
	if err != nil || len(entries) != 1 {
		t.Fatalf("alice's entry affected: %v, %v", entries, err)
	}
}

func TestAnalysisLatestAndPrune(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.FindLatest(ctx, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var lastID string
	for i := 0; i < 4; i++ {
		a, err := repo.CreateAnalysis(ctx, "alice", "run", []core.DatasetPoint{{Label: "2024-01-01", Value: float64(i)}})
		if err != nil {
			t.Fatalf("create analysis %d: %v", i, err)
		}
		lastID = a.ID
	}

	latest, err := repo.FindLatest(ctx, "alice")
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if latest.ID != lastID {
		t.Fatalf("latest = %s, want %s", latest.ID, lastID)
	}
	if len(latest.Dataset) != 1 || latest.Dataset[0].Label != "2024-01-01" {
		t.Fatalf("dataset lost: %+v", latest.Dataset)
	}

	removed, err := repo.PruneAnalyses(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	latest, err = repo.FindLatest(ctx, "alice")
	if err != nil || latest.ID != lastID {
		t.Fatalf("newest snapshot must survive prune: %v, %v", latest.ID, err)
	}

	owners, err := repo.AnalysisOwners(ctx)
	if err != nil || len(owners) != 1 || owners[0] != "alice" {
		t.Fatalf("owners = %v, %v", owners, err)
	}
}

func TestUserUniqueEmail(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u, err := repo.CreateUser(ctx, "Alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := repo.CreateUser(ctx, "Mallory", "alice@example.com", "hash2"); !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := repo.GetUserByEmail(ctx, "alice@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("get by email: %v, %v", got.ID, err)
	}
	if got.PasswordHash != "hash" {
		t.Fatalf("password hash not persisted")
	}
	if _, err := repo.GetUserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
