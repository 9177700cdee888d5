package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Error kinds. Every failure surfaced to a caller wraps exactly one of these.

	// ErrConfiguration indicates a missing API key, unknown model name or
	// absent client configuration. Fatal and surfaced immediately.
	ErrConfiguration = errors.New("configuration error")

	// ErrCredential indicates a missing, revoked or non-refreshable token.
	ErrCredential = errors.New("credential error")

	// ErrTransport indicates a network failure, timeout or upstream 5xx.
	ErrTransport = errors.New("transport error")

	// ErrGeneration indicates the model backend failed mid-stream.
	ErrGeneration = errors.New("generation error")

	// Refinements.

	// ErrNotConnected indicates the user holds no credential for a service.
	ErrNotConnected = errors.New("service not connected")

	// ErrUnknownService indicates no connector type is registered for a service.
	ErrUnknownService = errors.New("unknown service")

	// ErrUnknownModel indicates no backend is bound to a model name.
	ErrUnknownModel = errors.New("unknown model")

	// ErrJobTerminal indicates a transition was attempted on a finished job.
	ErrJobTerminal = errors.New("job already in terminal state")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ErrorKind names one of the four failure classes.
type ErrorKind string

const (
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindCredential    ErrorKind = "credential"
	ErrorKindTransport     ErrorKind = "transport"
	ErrorKindGeneration    ErrorKind = "generation"
	ErrorKindUnknown       ErrorKind = "unknown"
)

// ErrorKindOf classifies err by the kind sentinel it wraps.
func ErrorKindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return ErrorKindConfiguration
	case errors.Is(err, ErrCredential):
		return ErrorKindCredential
	case errors.Is(err, ErrTransport):
		return ErrorKindTransport
	case errors.Is(err, ErrGeneration):
		return ErrorKindGeneration
	default:
		return ErrorKindUnknown
	}
}

// ServiceError attributes a failure to a single external service.
// Aggregation records these as data instead of aborting.
type ServiceError struct {
	ServiceID string
	Err       error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.ServiceID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Kind returns the failure class of the wrapped error.
func (e *ServiceError) Kind() ErrorKind {
	return ErrorKindOf(e.Err)
}
