package http

import (
	"net/http"

	"fintrack/internal/core"
)

type aggregateResponse struct {
	TotalEntries int                 `json:"totalEntries"`
	SumNumeric   float64             `json:"sumNumeric"`
	AvgNumeric   float64             `json:"avgNumeric"`
	ByDay        []core.DatasetPoint `json:"byDay"`
	ByTag        []core.TagGroup     `json:"byTag"`
}

type powerBIResponse struct {
	Dataset    []core.DatasetPoint `json:"dataset"`
	Summary    string              `json:"summary"`
	EmbedURL   *string             `json:"embedUrl"`
	EmbedToken *string             `json:"embedToken"`
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	agg, err := s.analysis.AggregateOnly(r.Context(), owner(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Aggregation failed")
		return
	}
	writeJSON(w, http.StatusOK, aggregateResponse{
		TotalEntries: agg.TotalCount,
		SumNumeric:   agg.Sum,
		AvgNumeric:   agg.Average,
		ByDay:        agg.ByDay,
		ByTag:        agg.ByTag,
	})
}

func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.analysis.RunBasicAnalysis(r.Context(), owner(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.AnalysisSnapshot{"analysis": snapshot})
}

func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := s.analysis.Latest(r.Context(), owner(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not fetch analysis")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *Server) handleDetailedAnalyze(w http.ResponseWriter, r *http.Request) {
	result, err := s.analysis.RunDetailedAnalysis(r.Context(), owner(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "AI analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePowerBIDataset shapes the latest snapshot for the external
// embedding tool. Unlike the latest-analysis endpoint, a missing
// snapshot surfaces as an empty summary string, not null.
func (s *Server) handlePowerBIDataset(w http.ResponseWriter, r *http.Request) {
	latest, err := s.analysis.Latest(r.Context(), owner(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not prepare PowerBI dataset")
		return
	}
	summary := ""
	if latest.Summary != nil {
		summary = *latest.Summary
	}
	writeJSON(w, http.StatusOK, powerBIResponse{
		Dataset:    latest.Dataset,
		Summary:    summary,
		EmbedURL:   optional(s.powerBIEmbedURL),
		EmbedToken: optional(s.powerBIEmbedToken),
	})
}
