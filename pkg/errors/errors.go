package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an application failure the HTTP layer knows how to render. Code
// identifies the kind, Fields names offending input fields, and Err keeps
// the underlying cause for logs only.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"-"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %v", e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s [%s]", e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Code, so errors.Is(err, ErrNotFound) holds for any clone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.Code == t.Code
}

// New declares an error kind.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Kinds surfaced by the API; Code is the stable contract, Message a default.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "email or password is incorrect")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account has been deactivated")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "authentication required")
	ErrInvalidToken       = New("INVALID_TOKEN", http.StatusUnauthorized, "token is invalid")
	ErrTokenExpired       = New("TOKEN_EXPIRED", http.StatusUnauthorized, "session expired, sign in again")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "not allowed")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflicts with current state")
	ErrInvalidTransition  = New("INVALID_TRANSITION", http.StatusConflict, "status transition not allowed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "request is invalid")
	ErrPayloadTooLarge    = New("PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge, "file exceeds the size limit")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "unexpected server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError returns err as an *Error, hiding anything unrecognised behind
// ErrInternal.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies a kind, optionally replacing its message.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Fields = nil
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Internal hides err behind the generic internal message; message only
// reaches the logs.
func Internal(err error, message string) *Error {
	return Wrap(fmt.Errorf("%s: %w", message, err), ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Invalid builds a validation error listing the offending fields.
func Invalid(err error, message string, fields map[string]string) *Error {
	e := Wrap(err, ErrValidation.Code, ErrValidation.Status, message)
	if len(fields) > 0 {
		e.Fields = fields
	}
	return e
}
