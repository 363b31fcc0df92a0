package lifecycle

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies an engine failure
type Kind int

// Failure kinds
const (
	Internal Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	InvalidRequest
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not found"
	case InvalidRequest:
		return "invalid request"
	case Conflict:
		return "conflict"
	}
	return "internal"
}

// HTTPStatus maps k to the response code of the action endpoint
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidRequest:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Error is the typed failure returned by the engine
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind carried by err, or Internal when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func fail(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
