package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"screentime/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		slog.Error(logMsg, "error", err)
	}

	respondJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps membership errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case service.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyMember), errors.Is(err, service.ErrAlreadyApproved):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidMember), errors.Is(err, service.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrPermissionDenied):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		respondWithError(w, status, ErrInternalServerError, r.Method+" "+r.URL.Path+" failed", err)
		return
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}
