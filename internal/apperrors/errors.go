package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error. Kinds are translated to HTTP
// statuses only at the API boundary.
type Kind string

const (
	KindValidation          Kind = "VALIDATION_FAILED"
	KindDuplicateUsername   Kind = "DUPLICATE_USERNAME"
	KindInvalidCredentials  Kind = "INVALID_CREDENTIALS"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindNotFound            Kind = "NOT_FOUND"
	KindMalformedIdentifier Kind = "MALFORMED_IDENTIFIER"
	KindInternal            Kind = "INTERNAL"
)

// Error is the error type returned by services and repositories.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinel comparisons such as
// errors.Is(err, ErrNotFound) work regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrDuplicateUsername   = &Error{Kind: KindDuplicateUsername, Message: "username already registered"}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials, Message: "incorrect username or password"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Message: "could not validate credentials"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrMalformedIdentifier = &Error{Kind: KindMalformedIdentifier, Message: "malformed identifier"}
)

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to a new Error of the given kind.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NewValidation(message string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func NewNotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

func NewMalformedIdentifier(id string, err error) *Error {
	return &Error{Kind: KindMalformedIdentifier, Message: fmt.Sprintf("invalid identifier %q", id), Err: err}
}

func NewInternal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As converts any error to *Error, wrapping unknown errors as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindMalformedIdentifier, KindInvalidCredentials:
		return http.StatusBadRequest
	case KindDuplicateUsername:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
