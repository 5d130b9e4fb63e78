package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// tagList accepts the two tag shapes clients send: an array of strings
// or a single comma-separated string. Anything else normalizes to no
// tags rather than erroring.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = core.NormalizeTags(list, "")
		return nil
	}
	var csv string
	if err := json.Unmarshal(data, &csv); err == nil {
		*t = core.NormalizeTags(nil, csv)
		return nil
	}
	*t = []string{}
	return nil
}

type entryRequest struct {
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	NumericValue *float64 `json:"numericValue"`
	Tags         tagList  `json:"tags"`
}

// fields maps the request to store fields. An absent numeric value is
// stored as 0 on write; only legacy rows carry no value.
func (req entryRequest) fields() store.EntryFields {
	value := 0.0
	if req.NumericValue != nil {
		value = *req.NumericValue
	}
	tags := []string(req.Tags)
	if tags == nil {
		tags = []string{}
	}
	return store.EntryFields{
		Title:        req.Title,
		Content:      req.Content,
		NumericValue: &value,
		Tags:         tags,
	}
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.entries.List(r.Context(), owner(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not fetch entries")
		return
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	entry, err := s.entries.Create(r.Context(), owner(r), req.fields())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not create entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.entries.Get(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Could not fetch entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	entry, err := s.entries.Update(r.Context(), owner(r), r.PathValue("id"), req.fields())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Entry not found or unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "Could not update entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.entries.Delete(r.Context(), owner(r), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Entry not found or unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "Could not delete entry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted", "id": id})
}
