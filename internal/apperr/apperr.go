// Package apperr defines the error taxonomy surfaced to API clients.
//
// Every domain failure carries an HTTP status and a client-safe message. The
// centralized gin error middleware renders these verbatim; anything that is
// not an *Error becomes a generic 500.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Client-facing messages used by the authentication pipeline.
const (
	MsgNotLoggedIn      = "You are not logged in! Please log in to get access."
	MsgInvalidToken     = "Invalid token"
	MsgUserGone         = "The user belonging to this token no longer exists."
	MsgNoPermission     = "You do not have permission to perform this action"
	MsgInternal         = "Something went wrong"
	MsgInvalidRefresh   = "Invalid refresh token"
	MsgFailedTokenIssue = "Failed to generate user token"
	MsgAuthFailed       = "Authentication failed"
	MsgGoogleAuthFailed = "Google authentication failed"
)

// Error is a domain error with an explicit HTTP status.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Kind returns "fail" for client errors and "error" for server errors.
func (e *Error) Kind() string { return Kind(e.Status) }

// Kind maps a status code to the response body "status" field.
func Kind(status int) string {
	if status >= 400 && status < 500 {
		return "fail"
	}
	return "error"
}

func New(status int, msg string, err error) *Error {
	return &Error{Status: status, Message: msg, Err: err}
}

// Unauthenticated is a 401: missing, invalid or expired credentials.
func Unauthenticated(msg string) *Error { return New(http.StatusUnauthorized, msg, nil) }

// Forbidden is a 403: role or ownership denial.
func Forbidden(msg string) *Error { return New(http.StatusForbidden, msg, nil) }

// NotFound is a 404 with the message "<resource> not found".
func NotFound(resource string) *Error {
	return New(http.StatusNotFound, resource+" not found", nil)
}

// Validation is a 400 for malformed create/update payloads.
func Validation(msg string, err error) *Error { return New(http.StatusBadRequest, msg, err) }

// Conflict is a 409, e.g. a duplicate email.
func Conflict(msg string) *Error { return New(http.StatusConflict, msg, nil) }

// Internal is a 500; the cause is kept for logs but never rendered.
func Internal(msg string, err error) *Error { return New(http.StatusInternalServerError, msg, err) }

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Status returns the HTTP status err maps to.
func Status(err error) int {
	if ae, ok := As(err); ok {
		return ae.Status
	}
	return http.StatusInternalServerError
}
