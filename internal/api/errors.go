package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/logging"
	"github.com/tracker-tokens/internal/types"
)

// ErrorResponse is the wire shape of every error: a string message plus the
// taxonomy code.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError maps an error onto the taxonomy and writes the response.
// User-facing categories surface their message; system failures are logged
// with full context and returned as an opaque message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)

	message := catErr.Message
	code := catErr.Code
	if apperrors.IsSystemError(err) {
		logging.FromContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		// Provider outages keep their taxonomy code and message; only
		// genuinely internal failures are rewritten to an opaque message.
		if catErr.Category != apperrors.CategoryGateway {
			message = "An internal error occurred"
			code = types.CodeInternal
		}
	}

	respondJSON(w, catErr.StatusCode, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondBadRequest writes a 400 with the given message.
func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: message,
		Code:  types.CodeInvalidArgument,
	})
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
