package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/humon/server/internal/auth"
	"github.com/humon/server/internal/events"
	"github.com/humon/server/internal/lib/logger/sl"
)

// validationResponse is the 422 body.
type validationResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// respondJSON writes v as the JSON response body
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondError maps service errors onto status codes. Anything unrecognized is
// logged and reported as 500 without detail.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var verr *events.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Message: "Validation Failed",
			Errors:  verr.Errors,
		})
	case errors.Is(err, auth.ErrInvalidAppSecret):
		http.NotFound(w, r)
	case errors.Is(err, auth.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrInvalidDeviceToken):
		respondJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Message: "Validation Failed",
			Errors:  []string{"Device token is too long"},
		})
	case errors.Is(err, events.ErrEventNotFound):
		respondWithError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, events.ErrNotOwner):
		respondWithError(w, http.StatusForbidden, "forbidden")
	default:
		log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			sl.Err(err),
		)
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
