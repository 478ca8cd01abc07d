package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced to clients. Every storage or broker failure is converted
// to one of these before it leaves the rooms/messages packages.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrTransientIO = errors.New("temporary storage failure")
)

// Validation reports a blank or malformed field.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// NotFound reports a missing (or expired) record.
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Transient wraps a collaborator failure. The caller decides whether to retry;
// nothing in this repository retries automatically.
func Transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransientIO, op, err)
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsTransient(err error) bool  { return errors.Is(err, ErrTransientIO) }

// StatusCode maps an error kind to the HTTP status used by the API.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
