package api

import (
	"net/http"

	"github.com/tracker-tokens/internal/service"
)

// handleRecordVisit handles POST /trackers - record tracker-blocking activity
func (s *Server) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	var req service.RecordVisitInput
	if err := parseJSONBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	result, err := s.engagementService.RecordVisit(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleListSites handles GET /trackers - list a user's tracked sites
func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondBadRequest(w, "userId query parameter is required")
		return
	}

	sites, err := s.engagementService.ListSites(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sites)
}
