package errors

import (
	"errors"
	"fmt"
)

// Error represents a typed error carrying the upstream HTTP status where one
// applies.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

const (
	CodeAPIFailure = "API_FAILURE"
	CodeTransport  = "TRANSPORT_ERROR"
)

// FromResponse builds an Error out of a non-success API response, keeping a
// short excerpt of the body for the logs.
func FromResponse(method, url string, status int, body []byte) *Error {
	excerpt := string(body)
	if len(excerpt) > 512 {
		excerpt = excerpt[:512]
	}
	return New(CodeAPIFailure, status, fmt.Sprintf("%s %s failed: %d %s", method, url, status, excerpt))
}

// StatusOf extracts the upstream HTTP status from err, or 0 when err carries
// none.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
