package service

import (
	"errors"
	"fmt"
)

// Domain errors for auth and chat flows.
var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAuthentication     = errors.New("authentication error")
	ErrEmptyPassword      = errors.New("password is empty")
	ErrEmptyMessage       = errors.New("message text is empty")
	ErrUnknownAuthor      = errors.New("message author cannot be resolved")
)

// PersistenceError reports a store that was unreachable or rejected a write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
