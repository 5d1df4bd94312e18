package server

import (
	"net/http"

	"deaddrop/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.StatusCounts(r.Context())
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	resp := api.InfoResponse{
		Version:       s.version,
		DBPath:        s.dbPath,
		SchemaVersion: s.schemaVersion,
		DropCounts:    counts,
		TotalDrops:    total,
	}

	s.writeJSON(w, http.StatusOK, resp)
}
