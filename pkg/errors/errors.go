package errors

import (
	"context"
	"errors"
	"net/http"
)

// AppError is an error that knows how to present itself to API clients. Code and Message
// are public; Internal is kept for logs only.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Internal != nil:
		return e.Message + ": " + e.Internal.Error()
	default:
		return e.Message
	}
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches any AppError with the same code, so a customised NewNotFound still satisfies
// errors.Is(err, ErrNotFound).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e != nil && t != nil && e.Code == t.Code
}

// WithInternal returns a copy carrying err as the cause.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Internal = err
	return &cp
}

// withMessage returns a copy of e with a caller supplied message.
func (e *AppError) withMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

var (
	ErrUnauthorized       = New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", "Invalid company, email or password", http.StatusUnauthorized)
	ErrNotFound           = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrBadRequest         = New("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrConflict           = New("CONFLICT", "Resource already exists", http.StatusConflict)
	ErrGone               = New("GONE", "Resource is no longer available", http.StatusGone)
	ErrInternalServer     = New("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrServiceUnavailable = New("SERVICE_UNAVAILABLE", "Service temporarily unavailable, please retry", http.StatusServiceUnavailable)
	ErrRateLimit          = New("RATE_LIMIT_EXCEEDED", "Too many requests, please slow down", http.StatusTooManyRequests)
)

func NewBadRequest(message string) *AppError { return ErrBadRequest.withMessage(message) }
func NewNotFound(message string) *AppError   { return ErrNotFound.withMessage(message) }
func NewConflict(message string) *AppError   { return ErrConflict.withMessage(message) }
func NewGone(message string) *AppError       { return ErrGone.withMessage(message) }

// Wrap reports err as an internal server error with a public message.
func Wrap(err error, message string) *AppError {
	return ErrInternalServer.withMessage(message).WithInternal(err)
}

// FromError finds the AppError in err's chain. Deadline expiry maps to a retryable 503 and
// anything else to a 500.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, context.DeadlineExceeded):
		return ErrServiceUnavailable.WithInternal(err)
	default:
		return ErrInternalServer.WithInternal(err)
	}
}
