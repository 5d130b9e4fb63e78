// Package memory provides an in-process implementation of the store
// ports. It backs the memory data backend and the handler and service
// tests; data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	mu       sync.Mutex
	entries  []core.Entry
	analyses []core.AnalysisSnapshot
	users    []core.User

	// now is swappable so tests can pin timestamps.
	now func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// SetClock overrides the timestamp source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) List(_ context.Context, owner string) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Entry
	for _, e := range s.entries {
		if e.Owner == owner {
			out = append(out, copyEntry(e))
		}
	}
	// Newest first; insertion order breaks timestamp ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, owner, id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.ID == id && e.Owner == owner {
			return copyEntry(e), nil
		}
	}
	return core.Entry{}, store.ErrNotFound
}

func (s *Store) Create(_ context.Context, owner string, f store.EntryFields) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := core.Entry{
		ID:           uuid.NewString(),
		Owner:        owner,
		Title:        f.Title,
		Content:      f.Content,
		NumericValue: copyFloat(f.NumericValue),
		Tags:         copyTags(f.Tags),
		CreatedAt:    s.now(),
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	s.entries = append(s.entries, e)
	return copyEntry(e), nil
}

func (s *Store) Update(_ context.Context, owner, id string, f store.EntryFields) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id && e.Owner == owner {
			e.Title = f.Title
			e.Content = f.Content
			e.NumericValue = copyFloat(f.NumericValue)
			e.Tags = copyTags(f.Tags)
			s.entries[i] = e
			return copyEntry(e), nil
		}
	}
	return core.Entry{}, store.ErrNotFound
}

func (s *Store) Delete(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id && e.Owner == owner {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateAnalysis(_ context.Context, owner, summary string, dataset []core.DatasetPoint) (core.AnalysisSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := core.AnalysisSnapshot{
		ID:        uuid.NewString(),
		Owner:     owner,
		Summary:   summary,
		Dataset:   append([]core.DatasetPoint{}, dataset...),
		CreatedAt: s.now(),
	}
	s.analyses = append(s.analyses, a)
	return copyAnalysis(a), nil
}

func (s *Store) FindLatest(_ context.Context, owner string) (core.AnalysisSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := -1
	for i, a := range s.analyses {
		if a.Owner != owner {
			continue
		}
		// >= so that, on equal timestamps, the later write wins.
		if found < 0 || !a.CreatedAt.Before(s.analyses[found].CreatedAt) {
			found = i
		}
	}
	if found < 0 {
		return core.AnalysisSnapshot{}, store.ErrNotFound
	}
	return copyAnalysis(s.analyses[found]), nil
}

func (s *Store) PruneAnalyses(_ context.Context, owner string, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var mine []int
	for i, a := range s.analyses {
		if a.Owner == owner {
			mine = append(mine, i)
		}
	}
	if keep < 0 {
		keep = 0
	}
	if len(mine) <= keep {
		return 0, nil
	}
	// Oldest first by timestamp, insertion order on ties.
	sort.SliceStable(mine, func(i, j int) bool {
		return s.analyses[mine[i]].CreatedAt.Before(s.analyses[mine[j]].CreatedAt)
	})
	drop := make(map[int]bool, len(mine)-keep)
	for _, idx := range mine[:len(mine)-keep] {
		drop[idx] = true
	}
	kept := s.analyses[:0]
	for i, a := range s.analyses {
		if !drop[i] {
			kept = append(kept, a)
		}
	}
	s.analyses = kept
	return len(drop), nil
}

func (s *Store) AnalysisOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var owners []string
	for _, a := range s.analyses {
		if !seen[a.Owner] {
			seen[a.Owner] = true
			owners = append(owners, a.Owner)
		}
	}
	return owners, nil
}

func (s *Store) CreateUser(_ context.Context, name, email, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return core.User{}, store.ErrEmailTaken
		}
	}
	now := s.now()
	u := core.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, store.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, store.ErrNotFound
}

func copyEntry(e core.Entry) core.Entry {
	e.Tags = copyTags(e.Tags)
	e.NumericValue = copyFloat(e.NumericValue)
	return e
}

func copyAnalysis(a core.AnalysisSnapshot) core.AnalysisSnapshot {
	a.Dataset = append([]core.DatasetPoint{}, a.Dataset...)
	return a
}

func copyTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
