package api

import (
	"net/http"

	"github.com/tracker-tokens/internal/service"
)

// handleListNotifications handles GET /notifications - list a user's notifications
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondBadRequest(w, "userId query parameter is required")
		return
	}

	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"

	notifications, err := s.notificationService.List(r.Context(), userID, unreadOnly)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, notifications)
}

// handleCreateNotification handles POST /notifications - create a notification
func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req service.CreateInput
	if err := parseJSONBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	notification, err := s.notificationService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, notification)
}

// handleMarkRead handles PUT /notifications - acknowledge a notification
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NotificationID string `json:"notificationId"`
		Read           bool   `json:"read"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	notification, err := s.notificationService.MarkRead(r.Context(), req.NotificationID, req.Read)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, notification)
}
