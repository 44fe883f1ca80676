package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when an email has no prior start registration.
	ErrUserNotFound = errors.New("user not found")
	// ErrAttemptNotFound is returned when a user has not submitted yet.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAlreadySubmitted is returned in single-attempt mode on a second submit.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	// ErrInvalidQuestion indicates a malformed question in the bank.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrAdminExists is returned when signing up an email twice.
	ErrAdminExists = errors.New("admin already exists")
	// ErrAdminNotFound is returned by admin lookups.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for missing, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced resource that does not exist.
type NotFoundError struct {
	Resource string
	Key      string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// PersistenceError reports a failed, rolled back write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
