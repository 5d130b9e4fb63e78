package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Entry is one user-recorded financial line item. NumericValue is a
	// pointer because legacy rows may carry no value at all; the analysis
	// modes disagree on what an absent value is worth (see Options).
	Entry struct {
		ID           string    `json:"id"`
		Owner        string    `json:"user"`
		Title        string    `json:"title"`
		Content      string    `json:"content"`
		NumericValue *float64  `json:"numericValue"`
		Tags         []string  `json:"tags"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	// DatasetPoint is one bucket of a day series: label is a UTC
	// calendar date in YYYY-MM-DD form.
	DatasetPoint struct {
		Label string  `json:"label"`
		Value float64 `json:"value"`
	}

	// AnalysisSnapshot is the persisted result of one aggregation run.
	// Snapshots are immutable once written.
	AnalysisSnapshot struct {
		ID        string         `json:"id"`
		Owner     string         `json:"user"`
		Summary   string         `json:"summary"`
		Dataset   []DatasetPoint `json:"dataset"`
		CreatedAt time.Time      `json:"createdAt"`
	}

	// User is an account holder. The password hash never leaves the
	// server.
	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}
)

var (
	ErrMissingOwner = errors.New("missing owner")
)

// Validate checks the fields the stores rely on. Title and content are
// free text and may be empty; tags may be empty.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Owner) == "" {
		return ErrMissingOwner
	}
	return nil
}

// Value returns the entry's numeric value, or missing when none was
// recorded.
func (e Entry) Value(missing float64) float64 {
	if e.NumericValue == nil {
		return missing
	}
	return *e.NumericValue
}

// FloatPtr is a convenience for building entries with a present value.
func FloatPtr(v float64) *float64 {
	return &v
}

// NormalizeTags produces the canonical tag slice from the two accepted
// input shapes: a list is kept as-is, a comma-separated string is split
// and trimmed. Anything else normalizes to no tags.
func NormalizeTags(list []string, csv string) []string {
	if list != nil {
		return list
	}
	if csv == "" {
		return []string{}
	}
	parts := strings.Split(csv, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tags = append(tags, strings.TrimSpace(p))
	}
	return tags
}
