package apierror

import (
	"fmt"
)

const (
	// ErrBadRequest is returned for invalid or unparsable input
	ErrBadRequest = "BadRequest"
	// ErrForbidden is returned when access is denied
	ErrForbidden = "Forbidden"
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = "NotFound"
	// ErrConflict is returned when a resource already exists or is in a conflicting state
	ErrConflict = "Conflict"
	// ErrLimitExceeded is returned when a limit is exceeded
	ErrLimitExceeded = "LimitExceeded"
	// ErrNotImplemented is returned when the requested operation isn't supported by the backend
	ErrNotImplemented = "NotImplemented"
	// ErrServiceUnavailable is returned when a backing service is unavailable
	ErrServiceUnavailable = "ServiceUnavailable"
	// ErrInternalError is returned for unhandled errors
	ErrInternalError = "InternalError"
)

// Error wraps lower level errors with a code, a message and the original error
type Error struct {
	Code    string
	Message string
	OrigErr error
}

// New constructs an apierror Error
func New(code, message string, err error) Error {
	return Error{
		Code:    code,
		Message: message,
		OrigErr: err,
	}
}

// Error satisfies the error interface
func (e Error) Error() string {
	if e.OrigErr != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.OrigErr)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// String returns the string representation of the error
func (e Error) String() string {
	return e.Error()
}

// Unwrap returns the original error
func (e Error) Unwrap() error {
	return e.OrigErr
}
