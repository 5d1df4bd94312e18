package server

import (
	"net/http"

	"deaddrop/internal/api"
	"deaddrop/internal/models"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	dropID, events, err := s.service.Events(r.Context(), r.PathValue("codename"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []models.DropEvent{}
	}
	s.writeJSON(w, http.StatusOK, api.EventsResponse{DropID: dropID, Events: events})
}

func (s *Server) handleDeleteDrop(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	if err := s.service.Delete(r.Context(), r.PathValue("codename")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminSweep(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	result, err := s.service.Sweep(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SweepResponse{
		Expired: result.Expired,
		Deleted: result.Deleted,
		Failed:  result.Failed,
	})
}
