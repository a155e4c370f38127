package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnitNotFound is returned when no definition resolves for a unit name.
var ErrUnitNotFound = errors.New("unit not found")

// ErrConstructionFailed is returned when a unit's zero-argument constructor is
// missing, panics, or yields something that is not a pointer to a struct.
var ErrConstructionFailed = errors.New("unit construction failed")

// ErrOperationNotFound is returned when the unit has no runnable method with the requested name.
var ErrOperationNotFound = errors.New("operation not found")

// ErrOperationFailed matches every *OperationFailedError.
var ErrOperationFailed = errors.New("operation failed")

// ErrCancelled is returned when a worker was interrupted before it completed.
var ErrCancelled = errors.New("operation cancelled")

// ErrSignalDeleteFailed is returned by cancellation signals that were observed but could not be consumed.
var ErrSignalDeleteFailed = errors.New("cancellation signal could not be removed")

// ErrKernelClosed is returned by operations attempted after Shutdown.
var ErrKernelClosed = errors.New("kernel is shut down")

// OperationFailedError carries the failure raised by an operation body.
type OperationFailedError struct {
	Unit      string
	Operation string
	Cause     error
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("%s.%s failed: %v", e.Unit, e.Operation, e.Cause)
}

func (e *OperationFailedError) Unwrap() error { return e.Cause }

func (e *OperationFailedError) Is(target error) bool { return target == ErrOperationFailed }

// PanicError wraps a value recovered from a panicking operation.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// AttributeSkippedError records one attribute that migration could not carry over.
// It is never fatal to the enclosing migration.
type AttributeSkippedError struct {
	Unit      string
	Attribute string
	Reason    error
}

func (e AttributeSkippedError) Error() string {
	return fmt.Sprintf("attribute %s.%s skipped: %v", e.Unit, e.Attribute, e.Reason)
}

func (e AttributeSkippedError) Unwrap() error { return e.Reason }

// ReleaseError records a resource whose Close failed during teardown.
type ReleaseError struct {
	Path []string
	Err  error
}

func (e ReleaseError) Error() string {
	return fmt.Sprintf("release %s: %v", strings.Join(e.Path, "."), e.Err)
}

func (e ReleaseError) Unwrap() error { return e.Err }
