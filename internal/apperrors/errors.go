package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard application errors
var (
	ErrNotFound     = New("resource_not_found", "The requested resource could not be found.")
	ErrInvalidInput = New("invalid_input", "The input provided is invalid.")
	ErrUnauthorized = New("unauthorized", "Authentication is required.")
	ErrConflict     = New("data_conflict", "The operation conflicts with existing data.")
	ErrRateLimited  = New("rate_limited", "Too many requests, try again later.")
	ErrUpstream     = New("upstream_unavailable", "The backend could not be reached.")
	ErrDatabase     = New("database_error", "A database error occurred.")
	ErrInternal     = New("internal_server_error", "An unexpected error occurred on the server.")
)

// AppError defines a standard application error
type AppError struct {
	Code    string `json:"code"`    // Machine-readable error code
	Message string `json:"message"` // Human-readable message
	Err     error  `json:"-"`       // Underlying error, not exposed in JSON
}

// Error builds and returns an error string
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (code: %s, original_error: %v)", e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (code: %s)", e.Message, e.Code)
}

// Unwrap exposes the underlying error to errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with an AppError, providing additional context.
// If customMessage is provided, it overrides the default message of baseAppErr.
func Wrap(err error, baseAppErr *AppError, customMessage ...string) *AppError {
	msg := baseAppErr.Message
	if len(customMessage) > 0 && customMessage[0] != "" {
		msg = customMessage[0]
	}
	return &AppError{
		Code:    baseAppErr.Code,
		Message: msg,
		Err:     err,
	}
}

// WithMessage returns an error of the same kind as baseAppErr with a specific message
func WithMessage(baseAppErr *AppError, format string, args ...any) *AppError {
	return &AppError{Code: baseAppErr.Code, Message: fmt.Sprintf(format, args...)}
}

// Is checks if an error is of a specific AppError kind by comparing codes
func Is(err error, target *AppError) bool {
	var e *AppError
	if errors.As(err, &e) {
		return e.Code == target.Code
	}
	return false
}

// UserMessage returns the human-readable part of err, suitable for showing to an operator
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *AppError
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the API responds with
func HTTPStatus(err error) int {
	var e *AppError
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case ErrNotFound.Code:
		return http.StatusNotFound
	case ErrInvalidInput.Code:
		return http.StatusBadRequest
	case ErrUnauthorized.Code:
		return http.StatusUnauthorized
	case ErrConflict.Code:
		return http.StatusConflict
	case ErrRateLimited.Code:
		return http.StatusTooManyRequests
	case ErrUpstream.Code:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromStatus returns the error kind matching an HTTP status code
func FromStatus(status int) *AppError {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return ErrUpstream
	case status >= 400 && status < 500:
		return ErrInvalidInput
	default:
		return ErrInternal
	}
}
