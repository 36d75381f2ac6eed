package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTooLarge     = errors.New("payload too large")

	// ErrConstraint marks a write rejected by a database constraint
	// (unique, foreign key, not null, check).
	ErrConstraint = errors.New("constraint violation")

	// ErrPersistence marks any other datastore failure: connectivity,
	// driver errors, failed commits.
	ErrPersistence = errors.New("persistence failure")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying driver error, never shown to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches either
// ErrConstraint or, say, context.DeadlineExceeded from the driver.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// UpdateTargetMissing is the NotFound returned when an update addresses a row
// that does not exist for the caller.
func UpdateTargetMissing(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("cannot update %s %s: it does not exist", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// StaleRevision reports a lost-update: the row changed after the caller read it.
func StaleRevision(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s %s was modified concurrently, reload and retry", resource, id),
		Field:   "revision",
	}
}

// PayloadTooLarge reports a request body over the limit of limit bytes.
func PayloadTooLarge(limit int64) *AppError {
	return &AppError{
		Err:     ErrTooLarge,
		Message: fmt.Sprintf("request body must not exceed %d bytes", limit),
		Field:   "body",
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for missing or wrong credentials. The message is
// deliberately the same for "unknown user" and "wrong password".
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "valid authentication required",
	}
}

// Constraint wraps a driver error that violated a table constraint.
func Constraint(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrConstraint,
		Message: op + " violated a constraint",
		Cause:   cause,
	}
}

// Persistence wraps any other datastore error.
func Persistence(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrPersistence,
		Message: op + " failed",
		Cause:   cause,
	}
}
