package api

import (
	"net/http"
	"strconv"
)

// handleEnergyReport returns the caller's session-inclusive energy report.
func (s *Server) handleEnergyReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.EnergyReport(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to build energy report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleListHistory returns recent automation history, newest first.
//
// Query parameters:
//   - limit: max results (default 50, max 200)
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := s.svc.History(r.Context(), userIDFrom(r.Context()), limit)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// handleForceTick runs one scheduler pass immediately.
func (s *Server) handleForceTick(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ForceTick(r.Context()); err != nil {
		s.writeServiceError(w, r, err, "failed to run scheduler")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
