package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// csvHeader is the fixed first row of every export.
var csvHeader = []string{"id", "title", "content", "numericValue", "tags", "createdAt"}

// ExportService streams an owner's entries as CSV.
type ExportService struct {
	entries store.EntryStore
}

func NewExportService(entries store.EntryStore) *ExportService {
	return &ExportService{entries: entries}
}

// WriteCSV writes the owner's entries to w, newest first. Quoting and
// escaping follow RFC 4180, which encoding/csv implements. A missing
// numeric value is exported as an empty field, tags join with ";" so the
// column stays single-valued.
func (s *ExportService) WriteCSV(ctx context.Context, owner string, w io.Writer) error {
	entries, err := s.entries.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("fetch entries: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		value := ""
		if e.NumericValue != nil {
			value = core.FormatNumber(*e.NumericValue)
		}
		record := []string{
			e.ID,
			e.Title,
			e.Content,
			value,
			strings.Join(e.Tags, ";"),
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
