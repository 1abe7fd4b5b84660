package apperr

import (
	"errors"
	"net/http"
)

// Kind groups failures by what the caller can do about them.
type Kind string

const (
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindNotFound        Kind = "NOT_FOUND"
	KindForbidden       Kind = "FORBIDDEN"
	KindConflict        Kind = "CONFLICT"
	KindDependency      Kind = "DEPENDENCY"
	KindInternal        Kind = "INTERNAL"

	// KindNotModified is a cache-control signal rather than a failure.
	KindNotModified Kind = "NOT_MODIFIED"
)

// Operation-level failure names
const (
	InvalidInput    = "InvalidInput"
	InvalidID       = "InvalidId"
	InvalidKey      = "InvalidKey"
	InvalidEnum     = "InvalidEnum"
	InvalidType     = "InvalidType"
	InvalidTheme    = "InvalidTheme"
	InvalidCategory = "InvalidCategory"
	MissingTheme    = "MissingTheme"
	ThemeMismatch   = "ThemeMismatch"
	NotFound        = "NotFound"
	RootNotFound    = "RootNotFound"
	UserNotFound    = "UserNotFound"
	NoSettings      = "NoSettings"
	Forbidden       = "Forbidden"
	Unauthorized    = "Unauthorized"
	NoOp            = "NoOp"
	AlreadyRemoved  = "AlreadyRemoved"
	AlreadyRead     = "AlreadyRead"
	QuotaExceeded   = "QuotaExceeded"
	NothingToRemove = "NothingToRemove"
	NotModified     = "NotModified"
	AlreadyRunning  = "AlreadyRunning"
	StorageFailure  = "StorageFailure"
	InternalError   = "InternalError"
)

const internalDescription = "internal error, report it if the problem persists"

// Error is the uniform failure returned by every request-shaped operation.
type Error struct {
	Kind        Kind
	Name        string
	Description string
	Origin      error // Original error that caused this error, if any
}

func (e *Error) Error() string {
	if e.Origin != nil {
		return e.Description + ": " + e.Origin.Error()
	}
	return e.Description
}

func (e *Error) Unwrap() error {
	return e.Origin
}

// New creates an error without an origin.
func New(kind Kind, name, description string) *Error {
	return &Error{Kind: kind, Name: name, Description: description}
}

// Wrap creates an error that keeps the underlying cause.
func Wrap(kind Kind, name, description string, origin error) *Error {
	return &Error{Kind: kind, Name: name, Description: description, Origin: origin}
}

// Internal collapses an unrecognised failure into a generic error. Errors that
// already carry a kind pass through untouched.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return Wrap(KindInternal, InternalError, internalDescription, err)
}

// Forbid is the generic authorization failure.
func Forbid() *Error {
	return New(KindForbidden, Forbidden, "access not authorized")
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsName reports whether err is an *Error with the given name.
func IsName(err error, name string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Name == name
	}
	return false
}

// HTTPStatus converts an error kind to an HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindDependency:
		return http.StatusBadGateway
	case KindNotModified:
		return http.StatusNotModified
	default:
		return http.StatusInternalServerError
	}
}

// Describe returns the public {code, name, description} triple for err.
// Foreign errors never leak their message.
func Describe(err error) (int, string, string) {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Kind == KindInternal {
			return HTTPStatus(KindInternal), InternalError, internalDescription
		}
		return HTTPStatus(appErr.Kind), appErr.Name, appErr.Description
	}
	return HTTPStatus(KindInternal), InternalError, internalDescription
}
