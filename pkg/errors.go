// Package pkg holds utilities shared by every layer of the server.
// This file defines the domain-level error sentinels.
//
// Services wrap these with context instead of inventing new error types:
//
//	return fmt.Errorf("%w: site name is required", pkg.ErrBadRequest)
//
// and handlers map them to HTTP status codes with errors.Is, so a wrapped
// error still resolves to the right status.
package pkg

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrAlreadyExists   = errors.New("already exists")
	ErrBadRequest      = errors.New("bad request")
	ErrConflict        = errors.New("conflict")
	ErrTooManyRequests = errors.New("too many requests")
	ErrInternal        = errors.New("internal error")
)

// Error codes sent in the "error_code" field of the envelope. The dashboard
// front end keys its login/redirect behaviour on these.
const (
	CodeMissingToken       = "MISSING_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
)

// APIError is used when a failure needs a fixed status, user-facing message
// and error code that the sentinel mapping cannot express on its own
// (for example a 400 on a duplicate squad, where ErrAlreadyExists would be 409).
type APIError struct {
	Status  int
	Message string
	Code    string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError wraps err with an explicit status and message.
func NewAPIError(status int, message, code string, err error) *APIError {
	return &APIError{Status: status, Message: message, Code: code, Err: err}
}
