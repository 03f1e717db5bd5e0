// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Wrong argument count or unparseable argument
	ErrTypeUsage ErrorType = iota
	// Invalid argument errors
	ErrTypeInvalidArg
	// Memory errors
	ErrTypeMemory
	// Execution errors
	ErrTypeExecution
	// Numerical errors
	ErrTypeNumerical
	// Not implemented errors
	ErrTypeNotImplemented
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gemmbench %s error in %s: %s (caused by: %v)",
			e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("gemmbench %s error in %s: %s", e.Type, e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeUsage:
		return "Usage"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeNumerical:
		return "Numerical"
	case ErrTypeNotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewUsageError creates a command-line usage error. message is shown to
// the user as-is.
func NewUsageError(op string, message string) error {
	return &Error{Type: ErrTypeUsage, Op: op, Message: message}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{Type: ErrTypeInvalidArg, Op: op, Message: message}
}

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &Error{Type: ErrTypeMemory, Op: op, Message: message, Err: err}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &Error{Type: ErrTypeExecution, Op: op, Message: message, Err: err}
}

// NewNumericalError creates a numerical error
func NewNumericalError(op string, message string) error {
	return &Error{Type: ErrTypeNumerical, Op: op, Message: message}
}

// NewNotImplementedError creates an error for a missing capability
func NewNotImplementedError(op string, message string, err error) error {
	return &Error{Type: ErrTypeNotImplemented, Op: op, Message: message, Err: err}
}

var (
	// ErrDoubleRelease indicates a buffer returned to its pool twice
	ErrDoubleRelease = NewMemoryError("Put", "buffer released twice", nil)

	// ErrForeignBuffer indicates a buffer the pool never handed out
	ErrForeignBuffer = NewMemoryError("Put", "buffer not owned by this pool", nil)
)

func isType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// IsUsageError checks if an error is a usage error
func IsUsageError(err error) bool { return isType(err, ErrTypeUsage) }

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool { return isType(err, ErrTypeInvalidArg) }

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool { return isType(err, ErrTypeMemory) }

// IsExecutionError checks if an error is an execution error
func IsExecutionError(err error) bool { return isType(err, ErrTypeExecution) }

// IsNumericalError checks if an error is a numerical error
func IsNumericalError(err error) bool { return isType(err, ErrTypeNumerical) }

// IsNotImplementedError checks if an error is a not implemented error
func IsNotImplementedError(err error) bool { return isType(err, ErrTypeNotImplemented) }
