package http

import (
	"bytes"
	"net/http"
)

// handleExportCSV renders the owner's entries as a CSV attachment. The
// document is buffered so a store failure can still produce a clean
// error response instead of a truncated download.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.export.WriteCSV(r.Context(), owner(r), &buf); err != nil {
		writeError(w, http.StatusInternalServerError, "Could not export entries")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=entries.csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
