package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrNotFound is wrapped by collaborators when a file or template does not exist.
var ErrNotFound = stderrors.New("not found")

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Client errors
	ErrCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"

	// Webhook validation errors
	ErrCodeMissingSecret     ErrorCode = "MISSING_SECRET"
	ErrCodeMissingSignature  ErrorCode = "MISSING_SIGNATURE"
	ErrCodeMissingEvent      ErrorCode = "MISSING_EVENT"
	ErrCodeMissingDelivery   ErrorCode = "MISSING_DELIVERY"
	ErrCodeSignatureMismatch ErrorCode = "SIGNATURE_MISMATCH"

	// Sync errors
	ErrCodeNotifyFailed ErrorCode = "NOTIFY_FAILED"

	// Server errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Err        error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether the error rejects a webhook before any sync work ran
func (e *AppError) IsValidation() bool {
	switch e.Code {
	case ErrCodeMissingSecret, ErrCodeMissingSignature, ErrCodeMissingEvent,
		ErrCodeMissingDelivery, ErrCodeSignatureMismatch:
		return true
	}
	return false
}

// New creates a new application error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCodeForError(code),
	}
}

// Wrap wraps an existing error with application context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCodeForError(code),
		Err:        err,
	}
}

// getStatusCodeForError maps error codes to HTTP status codes
func getStatusCodeForError(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeMissingSecret, ErrCodeMissingSignature,
		ErrCodeMissingDelivery, ErrCodeSignatureMismatch:
		return http.StatusUnauthorized
	case ErrCodeMissingEvent:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrCodeNotifyFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors for convenience

// MissingSecret is returned when no webhook secret is configured
func MissingSecret() *AppError {
	return New(ErrCodeMissingSecret, "Must provide a 'GITHUB_WEBHOOK_SECRET' env variable")
}

// MissingSignature is returned when the request carries no X-Hub-Signature header
func MissingSignature() *AppError {
	return New(ErrCodeMissingSignature, "No X-Hub-Signature found on request")
}

// MissingEvent is returned when the request carries no X-GitHub-Event header
func MissingEvent() *AppError {
	return New(ErrCodeMissingEvent, "No X-Github-Event found on request")
}

// MissingDelivery is returned when the request carries no X-GitHub-Delivery header
func MissingDelivery() *AppError {
	return New(ErrCodeMissingDelivery, "No X-Github-Delivery found on request")
}

// SignatureMismatch is returned when the recomputed signature differs from the header
func SignatureMismatch() *AppError {
	return New(ErrCodeSignatureMismatch, "X-Hub-Signature incorrect. Github webhook token doesn't match")
}

// InvalidRequest creates an invalid request error
func InvalidRequest(message string) *AppError {
	return New(ErrCodeInvalidRequest, message)
}

// NotifyFailed wraps a failed summary dispatch
func NotifyFailed(err error) *AppError {
	return Wrap(err, ErrCodeNotifyFailed, "Unable to send sync notification")
}

// DatabaseError creates a database error
func DatabaseError(err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, "Database operation failed")
}
