package api

import (
	"net/http"
	"strconv"

	"github.com/tracker-tokens/internal/service"
)

// handleQueryTokens handles GET /tokens - query a user's ledger
func (s *Server) handleQueryTokens(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondBadRequest(w, "userId query parameter is required")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			respondBadRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	result, err := s.ledgerService.Query(r.Context(), &service.QueryInput{
		UserID: userID,
		Kind:   r.URL.Query().Get("type"),
		Limit:  limit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleAppendToken handles POST /tokens - append a ledger entry
func (s *Server) handleAppendToken(w http.ResponseWriter, r *http.Request) {
	var req service.AppendInput
	if err := parseJSONBody(r, &req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	tx, err := s.ledgerService.Append(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, tx)
}

// handleGetBalance handles GET /tokens/balance - derived balance for a user
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondBadRequest(w, "userId query parameter is required")
		return
	}

	balance, err := s.ledgerService.BalanceOf(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"userId":  userID,
		"balance": balance,
	})
}
