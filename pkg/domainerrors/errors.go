// Package domainerrors defines the typed error taxonomy shared by the
// service layer and the HTTP transport. Handlers never translate raw
// errors themselves; they call httputil.WriteError, which switches on
// the Code carried by a domainerrors.Error.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error into one of the taxonomy buckets from the
// error handling design: validation, not-found, authentication,
// authorization, conflict, or internal/storage failure.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
)

// Error is the concrete type carried through the system. The message is
// safe to return to the client for every code except CodeInternal, whose
// detail is logged but suppressed from the response body.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an Error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving it
// for errors.Is/As and for logging while keeping the client-facing
// message short.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the Code from err, defaulting to CodeInternal when err
// is not a domainerrors.Error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-facing message from err, if any.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps a Code to the HTTP status the API surface returns.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
