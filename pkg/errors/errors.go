// Package errors defines the sentinel errors shared across the memory
// service and an AppError type that attaches a message and HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrNoDocuments        = errors.New("no documents found")
	ErrCorruptIndex       = errors.New("corrupt index")
	ErrUnsupportedSchema  = errors.New("unsupported index schema")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

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

// IsExpected reports whether err is one of the conditions a collection is
// normally in (missing directory, no text files) rather than a fault.
func IsExpected(err error) bool {
	return errors.Is(err, ErrCollectionNotFound) || errors.Is(err, ErrNoDocuments)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoDocuments):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
