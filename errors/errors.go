package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error and decides its HTTP mapping.
type Kind string

const (
	KindAuthentication Kind = "authentication" // 401
	KindAuthorization  Kind = "authorization"  // 403
	KindNotFound       Kind = "not_found"      // 404
	KindValidation     Kind = "validation"     // 400
	KindConflict       Kind = "conflict"       // 400
	KindInfrastructure Kind = "infrastructure" // 500, unless recovered by a fallback
)

// Error is the application error type carried through handlers and
// middleware up to the HTTP error handler.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func NewAuthentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func NewAuthorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewValidation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewInfrastructure(message string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Message: message, Err: err}
}

// AsError returns the *Error wrapped in err, or nil.
func AsError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
