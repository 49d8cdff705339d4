package apierror

import (
	"encoding/json"
	"net/http"
)

// Error codes returned by the engine API.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeTransferInProgress = "TRANSFER_IN_PROGRESS"
	CodeIncompleteLoadout  = "INCOMPLETE_LOADOUT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUpstream           = "UPSTREAM_ERROR"
	CodeNotLoaded          = "ACCOUNT_NOT_LOADED"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// envelope is the body of every error response.
type envelope struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error"`
}

func (e *Error) Error() string {
	return e.Message
}

// ToJSON encodes the error inside the standard response envelope.
func (e *Error) ToJSON() []byte {
	data, _ := json.Marshal(envelope{Error: e})
	return data
}

// Write renders the error as the response.
func (e *Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(e.ToJSON())
}

func newError(status int, code, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{StatusCode: status, Code: code, Message: message}
}

// BadRequest creates a 400 error.
func BadRequest(message string) *Error {
	return newError(http.StatusBadRequest, CodeBadRequest, message, "Bad request")
}

// ValidationError creates a 400 error with field details.
func ValidationError(message string, details ...FieldError) *Error {
	e := newError(http.StatusBadRequest, CodeValidation, message, "Validation failed")
	e.Details = details
	return e
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, CodeUnauthorized, message, "Authentication required")
}

// NotFound creates a 404 error.
func NotFound(message string) *Error {
	return newError(http.StatusNotFound, CodeNotFound, message, "Resource not found")
}

// TransferInProgress creates a 409 error for an item that already has a
// transfer in flight.
func TransferInProgress(message string) *Error {
	return newError(http.StatusConflict, CodeTransferInProgress, message, "A transfer for this item is already in progress")
}

// IncompleteLoadout creates a 422 error for a class that cannot fill every
// equip slot.
func IncompleteLoadout(message string) *Error {
	return newError(http.StatusUnprocessableEntity, CodeIncompleteLoadout, message, "No complete loadout for this class")
}

// InternalError creates a 500 error.
func InternalError(message string) *Error {
	return newError(http.StatusInternalServerError, CodeInternal, message, "An unexpected error occurred")
}

// Upstream creates a 502 error for a failed call to the remote platform.
func Upstream(message string) *Error {
	return newError(http.StatusBadGateway, CodeUpstream, message, "Upstream service failed")
}

// NotLoaded creates a 503 error returned before the first account refresh.
func NotLoaded(message string) *Error {
	return newError(http.StatusServiceUnavailable, CodeNotLoaded, message, "Account not loaded yet")
}
