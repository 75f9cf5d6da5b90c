package adwatch

import (
	"errors"
	"fmt"
)

// Application error codes.
const (
	ECONFLICT    = "conflict"
	EINTERNAL    = "internal"
	EINVALID     = "invalid"
	ENOTFOUND    = "not_found"
	EUNAVAILABLE = "unavailable"
)

// UnavailableMessage is the only failure text ever shown to a subscriber.
// The underlying cause goes to operator logs.
const UnavailableMessage = "Search is temporarily unavailable. The proxy may need replacing."

// Error represents an application-specific error.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("adwatch error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Fetch failures report EUNAVAILABLE. Other non-application errors
// return EINTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var se *StatusError
	var fe *FetchExhaustedError
	if errors.As(err, &se) || errors.As(err, &fe) {
		return EUNAVAILABLE
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors return "Internal error.".
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// StatusError is returned when the site answers with an HTTP status >= 400
// that is not a block signal. It is not retried.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// FetchExhaustedError is returned when every attempt of a fetch ended in a
// block signal or a transport failure.
type FetchExhaustedError struct {
	URL      string
	Attempts int
	Blocks   int

	// Err is the last transport error, if any attempt failed at that level.
	Err error
}

func (e *FetchExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed after %d attempts (%d blocked): %v", e.URL, e.Attempts, e.Blocks, e.Err)
	}
	return fmt.Sprintf("fetch %s failed after %d attempts (%d blocked)", e.URL, e.Attempts, e.Blocks)
}

func (e *FetchExhaustedError) Unwrap() error {
	return e.Err
}
