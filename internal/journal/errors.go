package journal

import (
	"errors"
	"fmt"
)

// ErrNoSession is the normal logged-out state: the account service found no
// active session. Callers redirect to login rather than surfacing an error.
var ErrNoSession = errors.New("no active session")

// ErrSubmitInFlight is returned when a submit arrives while a previous save
// for the same session has not finished.
var ErrSubmitInFlight = errors.New("a save is already in progress")

// AuthError covers account-service failures: bad credentials, unconfirmed
// email, transport failure. A session-check AuthError is treated the same as
// a missing session (redirect, no retry).
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth %s: %v", e.Op, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// StoreError covers journal-store failures: read/write failure, constraint
// violation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// ValidationError names the first submission field that failed validation.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string { return e.Field + " must not be empty" }
