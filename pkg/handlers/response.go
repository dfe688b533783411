package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/datapanel-io/datapanel-engine/pkg/apperrors"
)

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteServiceError maps a service-layer error onto an HTTP status and
// a stable error code.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		_ = ErrorResponse(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrAlreadyRunning):
		_ = ErrorResponse(w, http.StatusConflict, "sync_already_running", err.Error())
	case errors.Is(err, apperrors.ErrNoSuchJob):
		_ = ErrorResponse(w, http.StatusNotFound, "no_such_job", err.Error())
	case errors.Is(err, apperrors.ErrNoSnapshot):
		_ = ErrorResponse(w, http.StatusNotFound, "no_snapshot", err.Error())
	default:
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
