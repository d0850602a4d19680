// Package errors defines the service's sentinel errors and an AppError type
// that carries an HTTP status code across layer boundaries.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrCorpusLoad    = errors.New("corpus load failed")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptySession  = errors.New("empty session")
	ErrBadTimestamp  = errors.New("unparseable timestamp")
	ErrCacheDisabled = errors.New("caching is disabled")
	ErrInternal      = errors.New("internal error")
)

// AppError wraps a sentinel with a human-readable message and an HTTP status.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the HTTP status the handler should return.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrEmptySession),
		errors.Is(err, ErrBadTimestamp):
		return http.StatusBadRequest
	case errors.Is(err, ErrCacheDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
