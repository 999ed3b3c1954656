package ports

import (
	"errors"
	"fmt"
)

// Common boundary errors shared across implementations.
var (
	// ErrUnknownProvider indicates a provider identifier that no adapter
	// implementation exists for.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrJudgeNotFound indicates a judge lookup for an ID the store does
	// not contain.
	ErrJudgeNotFound = errors.New("judge not found")
)

// NotConfiguredError indicates a provider that exists but was not
// registered because its credential is absent, or an identifier that is
// not known at all. The executor catches this and degrades the task to
// an inconclusive result.
type NotConfiguredError struct {
	// Provider is the requested provider identifier.
	Provider string

	// Err is the underlying cause, typically ErrUnknownProvider or a
	// missing-credential description.
	Err error
}

// Error implements the error interface.
func (e *NotConfiguredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %q is not configured: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider %q is not configured", e.Provider)
}

// Unwrap returns the underlying error.
func (e *NotConfiguredError) Unwrap() error { return e.Err }

// NewNotConfiguredError creates a NotConfiguredError for the provider.
func NewNotConfiguredError(provider string, err error) *NotConfiguredError {
	return &NotConfiguredError{Provider: provider, Err: err}
}

// StorageError indicates a persistence failure for one evaluation row.
// It is the only error class that surfaces in an EvaluationSummary's
// failure list; it is per-task, never batch-fatal.
type StorageError struct {
	// Operation names the store operation that failed.
	Operation string

	// Key identifies the affected row where known.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError creates a StorageError with the given details.
func NewStorageError(operation, key string, err error) *StorageError {
	return &StorageError{Operation: operation, Key: key, Err: err}
}
