// Package errors provides centralized error definitions and error
// handling utilities for the driverpool codebase. It defines the pool's
// error taxonomy, constructors with context wrapping, and classification
// helpers used by the creation and teardown pipelines.
//
// # Error Types
//
// Sentinel errors represent the pool's failure taxonomy:
//   - ErrPoolExhausted: the worker's scope is at capacity
//   - ErrDuplicateName: the name is already registered in scope
//   - ErrDriverInitFailed: every creation attempt was exhausted
//   - ErrDriverNotFound: a required lookup matched no session
//   - ErrProtocol: a failure native to the automation protocol
//   - ErrTimeout: an operation exceeded its configured bound
//
// Structured errors carry context:
//   - DriverError: creation/lookup failures with driver name, worker
//     identity, and attempt counts
//   - ProtocolError: wraps driver-protocol-native failures so teardown
//     can classify them separately from unexpected errors
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewDriverError("initialization failed", cause).
//		WithName("default").WithWorker(workerID).WithAttempts(3)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrPoolExhausted) { ... }
//	if errors.IsProtocol(err) { ... }
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrPoolExhausted indicates the calling worker's scope already holds
	// the configured maximum number of drivers.
	ErrPoolExhausted = New("driver pool exhausted")
	// ErrDuplicateName indicates a driver with the requested name is
	// already registered in the calling worker's scope.
	ErrDuplicateName = New("driver name already registered")
	// ErrDriverInitFailed indicates all creation attempts were exhausted.
	ErrDriverInitFailed = New("driver initialization failed")
	// ErrDriverNotFound indicates a required lookup matched no session.
	ErrDriverNotFound = New("driver not found")
	// ErrProtocol marks failures native to the underlying automation
	// protocol. They commonly mean the remote side already terminated
	// the session and are swallowed by the teardown pipeline.
	ErrProtocol = New("automation protocol error")
	// ErrTimeout indicates an operation exceeded its configured bound.
	ErrTimeout = New("operation timed out")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for the structured error types.
type baseError struct {
	message   string
	cause     error
	retryable bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// IsRetryable returns whether the error is transient.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// DriverError
// -----------------------------------------------------------------------------

// DriverError represents a failure while creating, looking up, or
// restarting a pooled driver session.
//
// Example:
//
//	err := errors.NewDriverError("initialization failed", cause).WithName("default")
//	fmt.Println(err) // "driver error [driver=default]: initialization failed: ..."
type DriverError struct {
	baseError
	Name     string
	WorkerID string
	Attempts int
}

// NewDriverError creates a new DriverError.
func NewDriverError(message string, cause error) *DriverError {
	return &DriverError{
		baseError: baseError{
			message: message,
			cause:   cause,
		},
	}
}

// WithName adds the driver name to the error context.
func (e *DriverError) WithName(name string) *DriverError {
	e.Name = name
	return e
}

// WithWorker adds the owning worker identity to the error context.
func (e *DriverError) WithWorker(id string) *DriverError {
	e.WorkerID = id
	return e
}

// WithAttempts records how many creation attempts were made.
func (e *DriverError) WithAttempts(n int) *DriverError {
	e.Attempts = n
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *DriverError) WithRetryable(r bool) *DriverError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *DriverError) Error() string {
	var parts []string
	if e.Name != "" {
		parts = append(parts, fmt.Sprintf("driver=%s", e.Name))
	}
	if e.WorkerID != "" {
		parts = append(parts, fmt.Sprintf("worker=%s", e.WorkerID))
	}
	if e.Attempts > 0 {
		parts = append(parts, fmt.Sprintf("attempts=%d", e.Attempts))
	}

	prefix := "driver error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("driver error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *DriverError) Is(target error) bool {
	if _, ok := target.(*DriverError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// ProtocolError
// -----------------------------------------------------------------------------

// ProtocolError wraps a failure native to the underlying automation
// protocol. Driver handle implementations should return it (or wrap
// ErrProtocol) so the teardown pipeline logs it at debug level instead
// of error level.
type ProtocolError struct {
	baseError
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(message string, cause error) *ProtocolError {
	return &ProtocolError{
		baseError: baseError{
			message: message,
			cause:   cause,
		},
	}
}

// Error returns the formatted error message.
func (e *ProtocolError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.message, e.cause)
	}
	return fmt.Sprintf("protocol error: %s", e.message)
}

// Is checks if this error matches the target.
func (e *ProtocolError) Is(target error) bool {
	if _, ok := target.(*ProtocolError); ok {
		return true
	}
	if errors.Is(target, ErrProtocol) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// NotFoundError
// -----------------------------------------------------------------------------

// NotFoundError represents a required lookup that matched nothing.
//
// Example:
//
//	err := errors.NewNotFoundError("driver", "default")
//	fmt.Println(err) // "driver 'default' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message: fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if errors.Is(target, ErrDriverNotFound) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// retryable is implemented by errors that know whether they are transient.
type retryable interface {
	IsRetryable() bool
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r retryable
	if As(err, &r) {
		return r.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsProtocol returns true if the error is native to the underlying
// automation protocol. Teardown logs such errors at debug level and
// swallows them.
func IsProtocol(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProtocolError
	if As(err, &pe) {
		return true
	}

	return Is(err, ErrProtocol)
}

// IsFatalCreate returns true for creation failures that must not be
// retried: exhausted capacity and duplicate names are caller or
// configuration mistakes, not transient conditions.
func IsFatalCreate(err error) bool {
	return Is(err, ErrPoolExhausted) || Is(err, ErrDuplicateName)
}
