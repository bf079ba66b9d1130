package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the assistant.

// ErrNotFound indicates a resource was not found.
// Detail, when set, replaces the generic message.
type ErrNotFound struct {
	Resource string
	ID       string
	Detail   string
}

func (e *ErrNotFound) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConflict indicates a resource already exists (e.g. a duplicate project name).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrNoProjectSelected is returned by actions that need a selected project.
var ErrNoProjectSelected = errors.New("no project selected")

// IsExternal reports whether err came from an outbound dependency.
func IsExternal(err error) bool {
	var ext *ErrExternalService
	var open *ErrCircuitOpen
	return errors.As(err, &ext) || errors.As(err, &open)
}
