package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tracker-tokens/internal/service"
)

// handleRegisterUser handles POST /users - register a new user
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := parseJSONBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	user, err := s.userService.Register(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// handleGetUser handles GET /users/{id} - fetch a user
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	user, err := s.userService.Get(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleUpdateSettings handles PUT /users/{id} - update privacy settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	var req service.UpdateSettingsInput
	if err := parseJSONBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	user, err := s.userService.UpdateSettings(r.Context(), userID, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}
