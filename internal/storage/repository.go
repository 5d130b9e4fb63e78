// Package storage implements the store ports on SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, owner string) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, title, content, numeric_value, tags, created_at
		 FROM entries
		 WHERE owner = ?
		 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, owner, id string) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, title, content, numeric_value, tags, created_at
		 FROM entries
		 WHERE id = ? AND owner = ?`, id, owner)

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Entry{}, store.ErrNotFound
		}
		return core.Entry{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, owner string, f store.EntryFields) (core.Entry, error) {
	e := core.Entry{
		ID:           uuid.NewString(),
		Owner:        owner,
		Title:        f.Title,
		Content:      f.Content,
		NumericValue: f.NumericValue,
		Tags:         f.Tags,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	tags, err := marshalTags(e.Tags)
	if err != nil {
		return core.Entry{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entries (id, owner, title, content, numeric_value, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Owner, e.Title, e.Content, nullFloat(e.NumericValue), tags, e.CreatedAt)
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved",
		"id", e.ID,
		"owner", e.Owner,
		"tags", len(e.Tags))
	return e, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, owner, id string, f store.EntryFields) (core.Entry, error) {
	tags, err := marshalTags(f.Tags)
	if err != nil {
		return core.Entry{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries
		 SET title = ?, content = ?, numeric_value = ?, tags = ?
		 WHERE id = ? AND owner = ?`,
		f.Title, f.Content, nullFloat(f.NumericValue), tags, id, owner)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	if affected == 0 {
		return core.Entry{}, store.ErrNotFound
	}
	return r.Get(ctx, owner, id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateAnalysis(ctx context.Context, owner, summary string, dataset []core.DatasetPoint) (core.AnalysisSnapshot, error) {
	a := core.AnalysisSnapshot{
		ID:        uuid.NewString(),
		Owner:     owner,
		Summary:   summary,
		Dataset:   dataset,
		CreatedAt: time.Now().UTC(),
	}
	if a.Dataset == nil {
		a.Dataset = []core.DatasetPoint{}
	}

	ds, err := json.Marshal(a.Dataset)
	if err != nil {
		return core.AnalysisSnapshot{}, fmt.Errorf("marshal dataset: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO analyses (id, owner, summary, dataset, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Owner, a.Summary, string(ds), a.CreatedAt)
	if err != nil {
		return core.AnalysisSnapshot{}, fmt.Errorf("create analysis: %w", err)
	}

	slog.InfoContext(ctx, "Analysis snapshot saved",
		"id", a.ID,
		"owner", a.Owner,
		"points", len(a.Dataset))
	return a, nil
}

func (r *SQLiteRepository) FindLatest(ctx context.Context, owner string) (core.AnalysisSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, summary, dataset, created_at
		 FROM analyses
		 WHERE owner = ?
		 ORDER BY created_at DESC
		 LIMIT 1`, owner)

	var a core.AnalysisSnapshot
	var ds string
	if err := row.Scan(&a.ID, &a.Owner, &a.Summary, &ds, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.AnalysisSnapshot{}, store.ErrNotFound
		}
		return core.AnalysisSnapshot{}, fmt.Errorf("find latest analysis: %w", err)
	}
	if err := json.Unmarshal([]byte(ds), &a.Dataset); err != nil {
		return core.AnalysisSnapshot{}, fmt.Errorf("unmarshal dataset: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) PruneAnalyses(ctx context.Context, owner string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM analyses
		 WHERE owner = ?
		   AND id NOT IN (
		       SELECT id FROM analyses
		       WHERE owner = ?
		       ORDER BY created_at DESC
		       LIMIT ?
		   )`, owner, owner, keep)
	if err != nil {
		return 0, fmt.Errorf("prune analyses: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune analyses: %w", err)
	}
	return int(affected), nil
}

func (r *SQLiteRepository) AnalysisOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner FROM analyses`)
	if err != nil {
		return nil, fmt.Errorf("list analysis owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analysis owners: %w", err)
	}
	return owners, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (core.User, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&exists)
	if err != nil {
		return core.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists > 0 {
		return core.User{}, store.ErrEmailTaken
	}

	now := time.Now().UTC()
	u := core.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at
		 FROM users WHERE email = ?`, email))
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at
		 FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, store.ErrNotFound
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (core.Entry, error) {
	var e core.Entry
	var value sql.NullFloat64
	var tags string
	err := row.Scan(&e.ID, &e.Owner, &e.Title, &e.Content, &value, &tags, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Entry{}, err
		}
		return core.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	if value.Valid {
		e.NumericValue = core.FloatPtr(value.Float64)
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return core.Entry{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	return e, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(b), nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
