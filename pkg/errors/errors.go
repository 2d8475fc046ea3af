// Package errors defines the sentinel errors shared by the indexer, the
// index store and the query engine, and maps them to HTTP status codes for
// the query server.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Build errors.
var (
	ErrIO    = errors.New("index store i/o failure")
	ErrEmpty = errors.New("empty index")
)

// Open errors.
var (
	ErrNotFound = errors.New("index store not found")
	ErrCorrupt  = errors.New("index store corrupt")
)

// Query errors.
var (
	ErrSyntax        = errors.New("query syntax error")
	ErrFieldNotFound = errors.New("field not indexed")
)

// Adapter errors.
var (
	ErrNotAFile        = errors.New("source is not a regular file")
	ErrNotADirectory   = errors.New("source is not a directory")
	ErrMalformedRecord = errors.New("malformed record")
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDocNotFound  = errors.New("document not found")
	ErrInternal     = errors.New("internal error")
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

// IsBuildError reports whether err belongs to the build error kind.
func IsBuildError(err error) bool {
	return errors.Is(err, ErrIO) || errors.Is(err, ErrEmpty)
}

// IsOpenError reports whether err belongs to the store open error kind.
func IsOpenError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorrupt)
}

// IsQueryError reports whether err belongs to the query error kind.
func IsQueryError(err error) bool {
	return errors.Is(err, ErrSyntax) || errors.Is(err, ErrFieldNotFound)
}

// IsAdapterError reports whether err belongs to the collection adapter
// error kind.
func IsAdapterError(err error) bool {
	return errors.Is(err, ErrNotAFile) ||
		errors.Is(err, ErrNotADirectory) ||
		errors.Is(err, ErrMalformedRecord)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocNotFound), errors.Is(err, ErrFieldNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSyntax), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorrupt):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
