package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	ErrNotFound     = NewObjectNotFoundError("", "resource")
	ErrDuplicateKey = NewDuplicateKeyError("", "duplicate key", nil)
)

// ObjectNotFoundError is returned when a lookup by id matches no record.
type ObjectNotFoundError struct {
	ID   string
	Type string
}

// NewObjectNotFoundError creates a new not found error for the given id and entity type
func NewObjectNotFoundError(id, typ string) *ObjectNotFoundError {
	return &ObjectNotFoundError{
		ID:   id,
		Type: typ,
	}
}

// Error implements the error interface
func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("Object not found, Id: %s, Type: %s", e.ID, e.Type)
}

// Is reports any *ObjectNotFoundError as a match so callers can test against ErrNotFound
func (e *ObjectNotFoundError) Is(target error) bool {
	_, ok := target.(*ObjectNotFoundError)
	return ok
}

// DuplicateKeyError represents a uniqueness violation raised by the data store.
// Message keeps the driver wording, which the HTTP layer inspects.
type DuplicateKeyError struct {
	Index   string
	Message string
	Err     error
}

// NewDuplicateKeyError creates a new duplicate key error
func NewDuplicateKeyError(index, message string, err error) *DuplicateKeyError {
	return &DuplicateKeyError{
		Index:   index,
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *DuplicateKeyError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("index: %s dup key", e.Index)
}

// Unwrap returns the wrapped driver error
func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// Is reports any *DuplicateKeyError as a match
func (e *DuplicateKeyError) Is(target error) bool {
	_, ok := target.(*DuplicateKeyError)
	return ok
}

// InternalError wraps a store failure the client cannot act on. The HTTP layer
// answers 500 without exposing Message or Err.
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is or wraps an ObjectNotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateKey reports whether err is or wraps a DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
