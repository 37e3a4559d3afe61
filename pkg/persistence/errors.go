package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrTaskNotFound indicates no task matched the lookup.
	ErrTaskNotFound = errors.New("task not found")

	// ErrBriefingNotFound indicates no briefing has been saved yet.
	ErrBriefingNotFound = errors.New("briefing not found")

	// ErrInvalidRecord indicates a record is missing its key fields.
	ErrInvalidRecord = errors.New("invalid record")
)

// StoreError wraps a backend failure with the operation and record key.
type StoreError struct {
	Op  string // Operation being performed (e.g., "UpsertTask", "WriteAudit")
	Key string // Record key if applicable
	Err error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for store errors.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// IsTaskNotFound checks if an error indicates a task was not found.
func IsTaskNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}

// IsBriefingNotFound checks if an error indicates no briefing exists.
func IsBriefingNotFound(err error) bool {
	return errors.Is(err, ErrBriefingNotFound)
}
