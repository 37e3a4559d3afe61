package engine

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates the workflow or execution does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the API key was rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnreachable indicates the engine could not be contacted at all.
	ErrUnreachable = errors.New("orchestration engine unreachable")
)

// APIError is a non-2xx response from the engine.
type APIError struct {
	Op         string // Client method, e.g. "RetryExecution"
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error // ErrNotFound or ErrUnauthorized when applicable
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: %s %s returned %d: %s", e.Op, e.Method, e.Path, e.StatusCode, e.Body)
	}

	return fmt.Sprintf("%s: %s %s returned %d", e.Op, e.Method, e.Path, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for API errors.
func (e *APIError) Is(target error) bool {
	return e.Err != nil && errors.Is(e.Err, target)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func newAPIError(op, method, path string, status int, body string) *APIError {
	apiErr := &APIError{
		Op:         op,
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       body,
	}

	switch status {
	case http.StatusNotFound:
		apiErr.Err = ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Err = ErrUnauthorized
	}

	return apiErr
}

// IsNotFound checks if an error indicates a missing workflow or execution.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnreachable checks if an error indicates a transport failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
