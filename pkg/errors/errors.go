package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeTransport   ErrorType = "transport"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeFilesystem  ErrorType = "filesystem"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries a failure category alongside the operation that produced it.
// Code is the HTTP status when one is known, 0 otherwise.
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s error (code %d): %s", e.Op, e.Type, e.Code, msg)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given type
func New(t ErrorType, op, message string) *Error {
	return &Error{Type: t, Op: op, Message: message}
}

// Wrap wraps err with a type and operation name. A nil err yields nil.
func Wrap(t ErrorType, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Type: t, Op: op, Err: err}
}

// Transport wraps a failed API call or download
func Transport(op string, err error) error {
	return Wrap(ErrorTypeTransport, op, err)
}

// Validation wraps a malformed or unreachable media reference
func Validation(op string, err error) error {
	return Wrap(ErrorTypeValidation, op, err)
}

// Filesystem wraps a directory creation or file write failure
func Filesystem(op string, err error) error {
	return Wrap(ErrorTypeFilesystem, op, err)
}

// TypeOf returns the ErrorType of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given type
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// FromStatus maps an HTTP status to an ErrorType
func FromStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	case statusCode >= 400:
		return ErrorTypeUnknown
	default:
		return ErrorTypeUnknown
	}
}
