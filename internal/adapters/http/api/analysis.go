package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleAnalysis returns per-exercise trend signals for one athlete.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	athleteID := chi.URLParam(r, "athleteID")
	signals, err := s.deps.AnalyzePerformance(r.Context(), athleteID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signals)
}
