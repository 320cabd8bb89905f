package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledesport/podio/internal/adapters/repository"
)

// handleListNotifications lists a recipient's inbox newest-first.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	if recipient == "" {
		writeError(w, ErrBadRequest)
		return
	}
	f := repository.NotificationFilter{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, ErrBadRequest)
			return
		}
		f.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, ErrBadRequest)
			return
		}
		f.Offset = n
	}
	items, err := s.deps.ListNotifications(r.Context(), recipient, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type markReadRequest struct {
	Recipient string `json:"recipient"`
}

// handleMarkRead flips the read flag. The recipient check rejects marking
// someone else's notification.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req markReadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Recipient == "" {
		writeError(w, ErrBadRequest)
		return
	}
	if err := s.deps.MarkRead(r.Context(), id, req.Recipient); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
