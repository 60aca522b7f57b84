package store

import (
	"fmt"
	"net/http"
)

// Error is a storage error with an HTTP status code.
type Error struct {
	Err     error  // Underlying error (optional)
	Message string // User-facing message
	Code    int    // HTTP status code
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code and message so wrapped copies compare equal to sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrVersionMismatch = &Error{
		Code:    http.StatusConflict,
		Message: "row changed since it was read",
	}

	ErrUnknownKind = &Error{
		Code:    http.StatusBadRequest,
		Message: "unknown entity kind",
	}

	ErrReadOnly = &Error{
		Code:    http.StatusInternalServerError,
		Message: "session is read-only",
	}
)
