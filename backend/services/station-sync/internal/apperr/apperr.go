// Package apperr defines the error taxonomy shared by the sync layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups errors by origin.
type Kind string

const (
	KindNetwork    Kind = "NETWORK"
	KindAPI        Kind = "API"
	KindValidation Kind = "VALIDATION"
	KindPermission Kind = "PERMISSION"
	KindLocation   Kind = "LOCATION"
	KindStorage    Kind = "STORAGE"
)

// Code is the machine readable sub-code surfaced to the UI.
type Code string

const (
	CodeBadRequest          Code = "BAD_REQUEST"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeRateLimit           Code = "RATE_LIMIT"
	CodeServerError         Code = "SERVER_ERROR"
	CodeNetworkError        Code = "NETWORK_ERROR"
	CodePermissionDenied    Code = "PERMISSION_DENIED"
	CodePositionUnavailable Code = "POSITION_UNAVAILABLE"
	CodeTimeout             Code = "TIMEOUT"
	CodeStorage             Code = "STORAGE_ERROR"
	CodeInvalid             Code = "INVALID"
)

// Error is the typed error returned across package boundaries.
type Error struct {
	Kind    Kind
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s (status %d): %s", e.Kind, e.Code, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error without a cause.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches kind and code to err.
func Wrap(kind Kind, code Code, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

// Network wraps a transport failure.
func Network(err error) *Error {
	return Wrap(KindNetwork, CodeNetworkError, err)
}

// FromStatus maps a non-2xx HTTP status to an API error.
func FromStatus(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: KindAPI, Code: CodeFromStatus(status), Status: status, Message: message}
}

// CodeFromStatus maps HTTP status codes to API codes.
func CodeFromStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusTooManyRequests:
		return CodeRateLimit
	case status >= 500:
		return CodeServerError
	default:
		return CodeBadRequest
	}
}

// KindOf returns the kind of the first *Error in the chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in the chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
