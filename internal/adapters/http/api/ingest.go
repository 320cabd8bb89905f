package api

import (
	"net/http"

	"github.com/ledesport/podio/internal/domain/model"
)

// handleRegisterAthlete creates or replaces an athlete record. A category
// change here triggers re-ranking on the next scan.
func (s *Server) handleRegisterAthlete(w http.ResponseWriter, r *http.Request) {
	var a model.Athlete
	if err := decodeBody(r, &a); err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.RegisterAthlete(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type committeeRequest struct {
	MemberID string `json:"member_id"`
}

// handleRegisterCommitteeMember adds a member to the committee broadcast set.
func (s *Server) handleRegisterCommitteeMember(w http.ResponseWriter, r *http.Request) {
	var req committeeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.MemberID == "" {
		writeError(w, ErrBadRequest)
		return
	}
	if err := s.deps.RegisterCommitteeMember(r.Context(), req.MemberID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// handleIngestTest appends an immutable physical-test snapshot.
func (s *Server) handleIngestTest(w http.ResponseWriter, r *http.Request) {
	var t model.PhysicalTest
	if err := decodeBody(r, &t); err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.IngestPhysicalTest(r.Context(), t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleIngestRecord appends a post-training record.
func (s *Server) handleIngestRecord(w http.ResponseWriter, r *http.Request) {
	var rec model.PostTrainingRecord
	if err := decodeBody(r, &rec); err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.IngestPostTrainingRecord(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
