package errx

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Code identifies one failure, prefixed by the registry that owns it
type Code string

// Type groups codes by how a caller should react
type Type string

const (
	TypeValidation    Type = "VALIDATION"
	TypeAuthorization Type = "AUTHORIZATION"
	TypeNotFound      Type = "NOT_FOUND"
	TypeConflict      Type = "CONFLICT"
	TypeBadRequest    Type = "BAD_REQUEST"
	TypeInternal      Type = "INTERNAL"
	TypeSystem        Type = "SYSTEM"      // our own infrastructure
	TypeExternal      Type = "EXTERNAL"    // an upstream answered badly
	TypeTimeout       Type = "TIMEOUT"     // an upstream did not answer in time
	TypeUnavailable   Type = "UNAVAILABLE" // a dependency is closed or unreachable
)

// CodeInternal marks errors that never went through a registry
const CodeInternal Code = "INTERNAL_ERROR"

// Error is what handlers return and what clients receive as JSON
type Error struct {
	Code       Code           `json:"code"`
	Type       Type           `json:"type"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	cause      error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error by code, so a fresh registry error works as a
// sentinel for errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithDetail sets one detail and returns e for chaining
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// Status is the HTTP status to answer with; 500 when none was registered
func (e *Error) Status() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

// From returns the outermost *Error in err's chain. Any other error becomes
// an opaque internal error with err as its cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var xerr *Error
	if errors.As(err, &xerr) {
		return xerr
	}
	return &Error{
		Code:       CodeInternal,
		Type:       TypeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		cause:      err,
	}
}

func IsCode(err error, code Code) bool {
	var xerr *Error
	return errors.As(err, &xerr) && xerr.Code == code
}

// CodeOf returns the code of the outermost *Error in the chain, or ""
func CodeOf(err error) Code {
	var xerr *Error
	if errors.As(err, &xerr) {
		return xerr.Code
	}
	return ""
}

// StatusOf is the HTTP status err maps to; plain errors are 500
func StatusOf(err error) int {
	return From(err).Status()
}

// Describe renders err on one line for logs, details sorted by key
func Describe(err error) string {
	if err == nil {
		return "<nil>"
	}
	var xerr *Error
	if !errors.As(err, &xerr) || len(xerr.Details) == 0 {
		return err.Error()
	}

	keys := make([]string, 0, len(xerr.Details))
	for k := range xerr.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(err.Error())
	b.WriteString(" {")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, xerr.Details[k])
	}
	b.WriteByte('}')
	return b.String()
}
