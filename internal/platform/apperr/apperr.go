// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindGone
	KindUnauthorized
	KindForbidden
	KindUnavailable
)

// Error is returned by services. Cause is logged, never rendered.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) error     { return &Error{Kind: KindConflict, Message: msg} }
func Gone(msg string) error         { return &Error{Kind: KindGone, Message: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Message: msg} }
func Unavailable(msg string) error  { return &Error{Kind: KindUnavailable, Message: msg} }

func Validation(msg string, details map[string]string) error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// Internal wraps an unexpected failure. The message shown to clients is generic.
func Internal(cause error) error {
	return &Error{Kind: KindInternal, Message: "internal server error", Cause: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindGone:
		return http.StatusGone
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error envelope.
type Body struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// HTTP converts a service error into an *echo.HTTPError. Unknown errors
// become a generic 500 with the cause kept as Internal for logging.
func HTTP(err error) *echo.HTTPError {
	e, ok := As(err)
	if !ok {
		he := echo.NewHTTPError(http.StatusInternalServerError, Body{Message: "internal server error"})
		he.Internal = err
		return he
	}
	he := echo.NewHTTPError(e.Kind.HTTPStatus(), Body{Message: e.Message, Details: e.Details})
	he.Internal = e.Cause
	return he
}
