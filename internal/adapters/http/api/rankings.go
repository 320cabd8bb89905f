package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledesport/podio/internal/domain/model"
)

// handleRanking returns the ordered ranking for a weight category.
func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	category := model.WeightCategory(chi.URLParam(r, "category"))
	result, err := s.deps.ComputeRanking(r.Context(), category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRankingFor returns one athlete's position with immediate neighbors.
func (s *Server) handleRankingFor(w http.ResponseWriter, r *http.Request) {
	athleteID := chi.URLParam(r, "athleteID")
	hood, err := s.deps.ComputeRankingFor(r.Context(), athleteID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hood)
}
