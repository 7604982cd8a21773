// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for the war room.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies war room errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeToolNotFound indicates a tool name that was never registered.
	CodeToolNotFound ErrorCode = "TOOL_NOT_FOUND"

	// CodeToolFailure indicates a tool execution failed.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeContextLost indicates the caller's context was canceled mid-operation.
	CodeContextLost ErrorCode = "CONTEXT_LOST"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates rate limiting was triggered.
	CodeRateLimit ErrorCode = "RATE_LIMITED"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnauthorized indicates authorization failed.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeConfig indicates a missing or invalid configuration value.
	CodeConfig ErrorCode = "CONFIG_ERROR"

	// CodeLLMError indicates a reasoning backend error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeNoReasoner indicates LLM reasoning was requested from an agent without a backend.
	CodeNoReasoner ErrorCode = "NO_REASONER"

	// CodeCircuitOpen indicates a call was rejected by an open circuit breaker.
	CodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"

	// CodeInvalidConfidence indicates a confidence value outside [0, 1].
	CodeInvalidConfidence ErrorCode = "INVALID_CONFIDENCE"
)

// Sentinels match any *WarRoomError carrying the same code under errors.Is.
var (
	ErrToolNotFound      = &WarRoomError{Code: CodeToolNotFound, Message: "tool not found"}
	ErrNoReasoner        = &WarRoomError{Code: CodeNoReasoner, Message: "no reasoning backend configured"}
	ErrInvalidConfidence = &WarRoomError{Code: CodeInvalidConfidence, Message: "confidence must be within [0, 1]"}
	ErrCircuitOpen       = &WarRoomError{Code: CodeCircuitOpen, Message: "circuit breaker is open"}
)

// WarRoomError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type WarRoomError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
}

// Error implements the error interface.
func (e *WarRoomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *WarRoomError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a WarRoomError with the same code.
func (e *WarRoomError) Is(target error) bool {
	t, ok := target.(*WarRoomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *WarRoomError) MarshalJSON() ([]byte, error) {
	out := struct {
		Message     string                 `json:"message"`
		Code        string                 `json:"code"`
		Err         string                 `json:"error,omitempty"`
		Recoverable bool                   `json:"recoverable"`
		Context     map[string]interface{} `json:"context,omitempty"`
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Recoverable: e.Recoverable,
		Context:     e.Context,
	}
	if e.Err != nil {
		out.Err = e.Err.Error()
	}
	return json.Marshal(out)
}

// New creates a new WarRoomError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *WarRoomError {
	return &WarRoomError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *WarRoomError) WithContext(key string, value interface{}) *WarRoomError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *WarRoomError) WithAttribute(key, value string) *WarRoomError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *WarRoomError) WithRecoverable(recoverable bool) *WarRoomError {
	e.Recoverable = recoverable
	return e
}

// AsWarRoomError finds the first WarRoomError in err's chain.
// Unknown errors are wrapped as internal.
func AsWarRoomError(err error) *WarRoomError {
	if err == nil {
		return nil
	}
	var we *WarRoomError
	if stderrors.As(err, &we) {
		return we
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the code of the first WarRoomError in err's chain, or "" when none.
func CodeOf(err error) ErrorCode {
	var we *WarRoomError
	if stderrors.As(err, &we) {
		return we.Code
	}
	return ""
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *WarRoomError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}
