// Package apperr defines the typed failures returned by the service layer.
// Services never write HTTP responses themselves; they return an *Error and
// the dispatcher maps its Kind to a status code at the boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.  The zero value is KindInternal so that an
// unclassified error is never reported as a client mistake.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified failure.  Fields is only populated for validation
// failures and maps a field name to its messages.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a validation failure from a field -> messages map.
func Validation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

// Invalid is shorthand for a validation failure on a single field.
func Invalid(field, msg string) *Error {
	return Validation(map[string][]string{field: {msg}})
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Internal wraps an unexpected failure, typically from storage.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "An error occurred", Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err.  Errors that are not *Error are internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
