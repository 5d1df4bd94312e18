package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Drops.
	mux.HandleFunc("POST /v1/drops", s.handleCreateDrop)
	mux.HandleFunc("GET /v1/drops/{codename}", s.handleGetDrop)
	mux.HandleFunc("POST /v1/drops/{codename}/retrieve", s.handleRetrieve)

	// Admin.
	mux.HandleFunc("GET /v1/drops/{codename}/events", s.handleListEvents)
	mux.HandleFunc("DELETE /v1/drops/{codename}", s.handleDeleteDrop)
	mux.HandleFunc("POST /v1/admin/sweep", s.handleAdminSweep)

	return mux
}
