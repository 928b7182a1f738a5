package supplier

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials = errors.New("supplier email and password not configured")
	ErrNoToken            = errors.New("no stored token")
	ErrShortLived         = errors.New("issued token expires within the safety margin")
)

// AuthenticationError means the supplier refused us or could not be reached
// for a credential exchange. It ends the current sync run.
type AuthenticationError struct {
	Op     string
	Status int
	Err    error
}

func (e *AuthenticationError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("supplier %s: status %d: %v", e.Op, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("supplier %s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("supplier %s: %v", e.Op, e.Err)
	}
	return "supplier " + e.Op + " failed"
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// TransientFetchError is a failed unit of work that the caller may skip.
type TransientFetchError struct {
	Page   int
	Status int
	Err    error
}

func (e *TransientFetchError) Error() string {
	msg := fmt.Sprintf("fetch page %d", e.Page)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

func IsAuth(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

func IsTransient(err error) bool {
	var te *TransientFetchError
	return errors.As(err, &te)
}
