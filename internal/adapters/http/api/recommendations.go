package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/internal/domain/workflow"
)

// handleGetRecommendation returns one recommendation with its full
// transition history.
func (s *Server) handleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.deps.GetRecommendation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleListRecommendations lists an athlete's recommendations.
func (s *Server) handleListRecommendations(w http.ResponseWriter, r *http.Request) {
	athleteID := chi.URLParam(r, "athleteID")
	recs, err := s.deps.ListRecommendations(r.Context(), athleteID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

type transitionRequest struct {
	Op            model.Operation     `json:"op"`
	Comment       string              `json:"comment,omitempty"`
	Alternative   string              `json:"alternative,omitempty"`
	Justification string              `json:"justification,omitempty"`
	Modification  *model.Modification `json:"modification,omitempty"`
}

// handleTransition applies one workflow operation. The actor identity and
// role come from request headers set by the identity layer; all guard
// decisions happen inside the workflow engine.
func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req transitionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.deps.Transition(r.Context(), id, actorFrom(r), workflow.Request{
		Op:            req.Op,
		Comment:       req.Comment,
		Alternative:   req.Alternative,
		Justification: req.Justification,
		Modification:  req.Modification,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleSpawn creates a fresh PENDIENTE recommendation from the modification
// content of a MODIFICADA one. Committee members only.
func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if actor.Role != model.RoleComiteTecnico {
		writeError(w, &workflow.UnauthorizedError{Role: actor.Role, Attempted: "spawn"})
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := s.deps.SpawnFromModification(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
