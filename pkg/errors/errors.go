package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure. The set is closed.
type Kind int

const (
	// KindTransport covers store and messaging connectivity or protocol failures,
	// including pool exhaustion and timeouts. It is also the fallback for
	// unclassified errors.
	KindTransport Kind = iota
	// KindValidation covers malformed or semantically invalid input.
	KindValidation
	// KindNotFound means the target id does not exist.
	KindNotFound
	// KindSerialization covers failures encoding a payload for publication.
	KindSerialization
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindSerialization:
		return "serialization"
	default:
		return "transport"
	}
}

// HTTPStatus maps the kind to the status code reported to HTTP callers.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single error type produced by the action pipeline.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewNotFoundError creates a not found error for the given resource and id.
func NewNotFoundError(resource string, id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s with id %d not found", resource, id)}
}

// NewTransportError wraps a store or messaging failure.
func NewTransportError(message string, err error) *Error {
	return &Error{Kind: KindTransport, Message: message, Err: err}
}

// NewSerializationError wraps a payload encoding failure.
func NewSerializationError(message string, err error) *Error {
	return &Error{Kind: KindSerialization, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
// Errors that carry no kind are treated as transport failures.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == kind
}

// HTTPStatus returns the status code for err.
func HTTPStatus(err error) int {
	return KindOf(err).HTTPStatus()
}
