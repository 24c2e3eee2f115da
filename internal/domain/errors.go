package domain

import (
	"errors"
	"fmt"
)

// Error classes. Each typed error below unwraps to one of these, and the
// HTTP and CLI adapters switch on them rather than on concrete types.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a record or request was rejected at the boundary.
	ErrValidation = errors.New("validation failed")

	// ErrStorage indicates the durable key-value store could not be read or written.
	ErrStorage = errors.New("storage failure")

	// ErrFetch indicates a remote call failed or returned a non-success status.
	ErrFetch = errors.New("fetch failed")

	// ErrParse indicates a JSON document (import or persisted state) was malformed.
	ErrParse = errors.New("parse failed")
)

// NotFoundError names the missing record, conflict or category.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError rejects a draft or request; Field is empty for
// whole-value failures.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a validation error including the invalid value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// StorageError wraps a failed read or write against the durable store.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}

	return fmt.Sprintf("storage %s %q failed", e.Op, e.Key)
}

// Unwrap returns the sentinel so errors.Is(err, ErrStorage) holds.
// The underlying cause stays reachable through errors.As on Err.
func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorage}
	}

	return []error{ErrStorage, e.Err}
}

// NewStorageError creates a storage error for the given operation and key.
func NewStorageError(op, key string, err error) error {
	return &StorageError{Op: op, Key: key, Err: err}
}

// FetchError provides context for failed remote calls.
type FetchError struct {
	Service   string
	Operation string
	Status    int
	Reason    string
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Service, e.Operation, e.Status, e.Reason)
	}

	return fmt.Sprintf("%s %s: %s", e.Service, e.Operation, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return ErrFetch
}

// NewFetchError creates a fetch error for a transport-level failure.
func NewFetchError(service, operation, reason string) error {
	return &FetchError{Service: service, Operation: operation, Reason: reason}
}

// NewFetchStatusError creates a fetch error for a non-success HTTP status.
func NewFetchStatusError(service, operation string, status int, reason string) error {
	return &FetchError{Service: service, Operation: operation, Status: status, Reason: reason}
}

// ParseError provides context for malformed JSON input.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Source, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// NewParseError creates a parse error for the named input.
func NewParseError(source, reason string) error {
	return &ParseError{Source: source, Reason: reason}
}

// IsNotFound and the helpers below test the error class through any
// amount of wrapping.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }

func IsFetch(err error) bool { return errors.Is(err, ErrFetch) }

func IsParse(err error) bool { return errors.Is(err, ErrParse) }
