package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every APIError unwraps to exactly one of these so callers can
// branch with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("resource conflict")
	ErrPrecondition    = errors.New("precondition failed")
	ErrInvalidState    = errors.New("invalid state")
	ErrIncomplete      = errors.New("incomplete")
	ErrValidation      = errors.New("validation failed")
)

// APIError represents a structured API error
type APIError struct {
	Kind       error  `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// NewAPIError creates a new API error
func NewAPIError(kind error, code, message string, statusCode int) *APIError {
	return &APIError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Unauthenticated(message string) *APIError {
	return NewAPIError(ErrUnauthenticated, "unauthenticated", message, http.StatusUnauthorized)
}

// NotFound never says whether the resource is missing or owned by someone else.
func NotFound(resource string) *APIError {
	return NewAPIError(ErrNotFound, "not_found", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func Conflict(message string) *APIError {
	return NewAPIError(ErrConflict, "conflict", message, http.StatusConflict)
}

func Precondition(message string) *APIError {
	return NewAPIError(ErrPrecondition, "precondition_failed", message, http.StatusPreconditionFailed)
}

func InvalidState(message string) *APIError {
	return NewAPIError(ErrInvalidState, "invalid_state", message, http.StatusConflict)
}

func InvalidTransition(entity, from, event string) *APIError {
	return InvalidState(fmt.Sprintf("cannot %s %s in status %s", event, entity, from))
}

func Incomplete(message string) *APIError {
	return NewAPIError(ErrIncomplete, "incomplete", message, http.StatusUnprocessableEntity)
}

func Validation(message string) *APIError {
	return NewAPIError(ErrValidation, "validation_error", message, http.StatusBadRequest)
}

func ActiveTripExists() *APIError {
	return Conflict("you already have a trip in progress")
}

func NoPassedSafetyCheck() *APIError {
	return Precondition("a passed safety check is required before starting a trip")
}

// StatusCode maps err to an HTTP status. Anything that is not an APIError is
// an internal failure.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}
