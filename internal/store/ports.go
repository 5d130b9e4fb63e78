package store

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

var (
	// ErrNotFound covers both a genuinely missing record and a record
	// owned by someone else; callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")

	ErrEmailTaken = errors.New("email already used")
)

// EntryFields is the mutable part of an entry. Create and Update both
// take the full set; an update is a full replace.
type EntryFields struct {
	Title        string
	Content      string
	NumericValue *float64
	Tags         []string
}

// Ports for the persistence adapters. Every operation is scoped by the
// owning user; nothing ever reads or writes across owners.
type (
	EntryStore interface {
		// List returns all of the owner's entries, newest first.
		List(ctx context.Context, owner string) ([]core.Entry, error)
		Get(ctx context.Context, owner, id string) (core.Entry, error)
		Create(ctx context.Context, owner string, f EntryFields) (core.Entry, error)
		Update(ctx context.Context, owner, id string, f EntryFields) (core.Entry, error)
		Delete(ctx context.Context, owner, id string) error
	}

	AnalysisStore interface {
		CreateAnalysis(ctx context.Context, owner, summary string, dataset []core.DatasetPoint) (core.AnalysisSnapshot, error)
		// FindLatest returns the owner's most recent snapshot by
		// creation time, or ErrNotFound when none exists.
		FindLatest(ctx context.Context, owner string) (core.AnalysisSnapshot, error)
		// PruneAnalyses keeps the owner's most recent keep snapshots
		// and removes the rest, returning how many were removed.
		PruneAnalyses(ctx context.Context, owner string, keep int) (int, error)
		// AnalysisOwners lists every owner with at least one snapshot.
		AnalysisOwners(ctx context.Context) ([]string, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, name, email, passwordHash string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		GetUserByID(ctx context.Context, id string) (core.User, error)
	}
)
