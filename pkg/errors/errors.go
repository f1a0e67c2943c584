// Package errors holds the sentinel errors of the pipeline and AppError, an
// error carrying the status and client-facing message the prediction API
// answers with.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedTriple   = errors.New("malformed triple")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrArtifactNotFound  = errors.New("artifact not found")
	ErrUnknownMode       = errors.New("unknown retrieval mode")
	ErrIndexUnavailable  = errors.New("search index unavailable")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
	ErrIncomplete        = errors.New("incomplete results")
)

// AppError wraps a sentinel with the message a client may see.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New wraps sentinel. A zero statusCode is derived from the sentinel.
func New(sentinel error, statusCode int, message string) *AppError {
	if statusCode == 0 {
		statusCode = HTTPStatusCode(sentinel)
	}
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// HTTPStatusCode maps an error chain onto the status the API answers with.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownMode), errors.Is(err, ErrMalformedTriple):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrIndexUnavailable), errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrIncomplete):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the AppError message in err, or fallback when the
// chain holds none. Internal details never leak through it.
func PublicMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
