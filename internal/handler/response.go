package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so the API has one
// error shape:
//
//	{"error": "not_found", "message": "user not found with id 42"}
//
// The "error" field is machine-readable, "message" is for humans.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/user-hobbies/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorMapping is the HTTP rendition of one apperror sentinel.
type errorMapping struct {
	sentinel error
	status   int
	code     string
}

// errorMappings is checked in order; the first sentinel found in the chain wins.
var errorMappings = []errorMapping{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrTooLarge, http.StatusRequestEntityTooLarge, "payload_too_large"},
	{apperror.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
	{apperror.ErrConstraint, http.StatusInternalServerError, "constraint_violation"},
	{apperror.ErrPersistence, http.StatusInternalServerError, "internal_error"},
}

// writeError maps a domain error to an HTTP status and sends it.
//
// errors.Is walks the whole chain, so a service error like
//
//	fmt.Errorf("service/user: updating user 7: %w", apperror.StaleRevision(...))
//
// still maps to 409.
//
// 5xx responses never carry the error text: it may contain SQL or driver
// details. They are logged instead.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			status, code = m.status, m.code
			break
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("kind", code),
			slog.String("error", err.Error()),
		)
		message := "an internal error occurred"
		if code == "constraint_violation" {
			message = "the request violated a data constraint"
		}
		writeJSON(w, status, ErrorResponse{Error: code, Message: message})
		return
	}

	message := err.Error()
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
