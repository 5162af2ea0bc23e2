package api

import (
	"net/http"
)

// handleBreachCheck handles GET /breach-check - anonymous breach lookup
func (s *Server) handleBreachCheck(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		respondBadRequest(w, "email query parameter is required")
		return
	}

	breaches, err := s.breachService.CheckEmail(r.Context(), email)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, breaches)
}

// handleBreachCheckAndNotify handles POST /breach-check - breach lookup for a
// registered user, raising a notification on a hit
func (s *Server) handleBreachCheckAndNotify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	result, err := s.breachService.CheckAndNotify(r.Context(), req.UserID, req.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
