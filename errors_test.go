// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"errors"
	"fmt"
	"testing"
)

func TestStructuredErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantOp   string
		wantMsg  string
		checkFn  func(error) bool
	}{
		{
			name:     "Usage Error",
			err:      NewUsageError("Args", "Input error, ./mm M N K"),
			wantType: ErrTypeUsage,
			wantOp:   "Args",
			wantMsg:  "Input error, ./mm M N K",
			checkFn:  IsUsageError,
		},
		{
			name:     "Invalid Arg Error",
			err:      Dims{M: 0, N: 1, K: 1}.Validate(),
			wantType: ErrTypeInvalidArg,
			wantOp:   "Dims",
			wantMsg:  "dimensions must be positive, got M=0 N=1 K=1",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Double Release",
			err:      ErrDoubleRelease,
			wantType: ErrTypeMemory,
			wantOp:   "Put",
			wantMsg:  "buffer released twice",
			checkFn:  IsMemoryError,
		},
		{
			name:     "Foreign Buffer",
			err:      ErrForeignBuffer,
			wantType: ErrTypeMemory,
			wantOp:   "Put",
			wantMsg:  "buffer not owned by this pool",
			checkFn:  IsMemoryError,
		},
		{
			name:     "Numerical Error",
			err:      NewNumericalError("Verify", "FAIL"),
			wantType: ErrTypeNumerical,
			wantOp:   "Verify",
			wantMsg:  "FAIL",
			checkFn:  IsNumericalError,
		},
		{
			name:     "Not Implemented Error",
			err:      NewNotImplementedError("Lookup", "backend \"mkl\" is not built in", nil),
			wantType: ErrTypeNotImplemented,
			wantOp:   "Lookup",
			wantMsg:  "backend \"mkl\" is not built in",
			checkFn:  IsNotImplementedError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gerr *Error
			if !errors.As(tt.err, &gerr) {
				t.Fatalf("expected *Error, got %T", tt.err)
			}
			if gerr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", gerr.Type, tt.wantType)
			}
			if gerr.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", gerr.Op, tt.wantOp)
			}
			if gerr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", gerr.Message, tt.wantMsg)
			}
			if !tt.checkFn(tt.err) {
				t.Errorf("check function returned false for %v", tt.err)
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("context canceled")
	err := NewExecutionError("Run", "stopped after 2 of 5 rounds", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is failed to find the cause")
	}
	want := "gemmbench Execution error in Run: stopped after 2 of 5 rounds (caused by: context canceled)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !IsExecutionError(wrapped) {
		t.Error("IsExecutionError failed through fmt.Errorf wrapping")
	}
	if IsNumericalError(wrapped) {
		t.Error("IsNumericalError matched an execution error")
	}
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		t    ErrorType
		want string
	}{
		{ErrTypeUsage, "Usage"},
		{ErrTypeInvalidArg, "InvalidArgument"},
		{ErrTypeMemory, "Memory"},
		{ErrTypeExecution, "Execution"},
		{ErrTypeNumerical, "Numerical"},
		{ErrTypeNotImplemented, "NotImplemented"},
		{ErrorType(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("ErrorType(%d).String() = %q, want %q", int(tt.t), got, tt.want)
		}
	}
}
