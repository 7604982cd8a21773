// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"sync"

	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/telemetry"
)

// ErrorMetricsIntegration wraps telemetry.ErrorMetrics with nil-safe helpers.
// A nil or disabled integration records nothing.
type ErrorMetricsIntegration struct {
	metrics *telemetry.ErrorMetrics
	enabled bool
}

var (
	globalErrorMetrics     *ErrorMetricsIntegration
	globalErrorMetricsOnce sync.Once
)

// NewErrorMetricsIntegration wraps m. A nil m yields a disabled integration.
func NewErrorMetricsIntegration(m *telemetry.ErrorMetrics) *ErrorMetricsIntegration {
	return &ErrorMetricsIntegration{metrics: m, enabled: m != nil}
}

// InitErrorMetrics initializes the process-wide error metrics once, using the
// global meter provider. Initialization failures yield a disabled integration.
func InitErrorMetrics(ctx context.Context) *ErrorMetricsIntegration {
	globalErrorMetricsOnce.Do(func() {
		metrics, err := telemetry.NewErrorMetrics(ctx)
		if err != nil {
			globalErrorMetrics = &ErrorMetricsIntegration{enabled: false}
			return
		}
		globalErrorMetrics = NewErrorMetricsIntegration(metrics)
	})
	return globalErrorMetrics
}

// GetErrorMetrics returns the global error metrics integration, or nil.
func GetErrorMetrics() *ErrorMetricsIntegration {
	return globalErrorMetrics
}

// RecordError records an error metric with the error code and component.
func (e *ErrorMetricsIntegration) RecordError(ctx context.Context, err error, component string) {
	if e == nil || !e.enabled || e.metrics == nil {
		return
	}
	e.metrics.RecordErrorMetric(ctx, err, component)
}

// RecordRecovery records a successful recovery for the given error code.
func (e *ErrorMetricsIntegration) RecordRecovery(ctx context.Context, code errors.ErrorCode) {
	if e == nil || !e.enabled || e.metrics == nil {
		return
	}
	e.metrics.RecordRecovery(ctx, code)
}

// RecordCircuitBreakerState records the breaker state for a component.
// state: 0=OPEN (failing), 1=HALF_OPEN (testing), 2=CLOSED (healthy)
func (e *ErrorMetricsIntegration) RecordCircuitBreakerState(ctx context.Context, component string, state int64) {
	if e == nil || !e.enabled || e.metrics == nil {
		return
	}
	e.metrics.RecordCircuitBreakerState(ctx, component, state)
}

// WrapLLMError wraps a reasoning backend error with the model. Errors that
// already carry LLM_ERROR keep their code and recoverability.
func WrapLLMError(err error, model string) *errors.WarRoomError {
	if err == nil {
		return nil
	}
	if errors.CodeOf(err) == errors.CodeLLMError {
		return errors.AsWarRoomError(err).WithContext("model", model)
	}
	return errors.New(errors.CodeLLMError, "LLM call failed", err).
		WithContext("model", model).
		WithAttribute("llm.model", model).
		WithRecoverable(true)
}

// WrapToolError wraps a tool execution error with appropriate context.
func WrapToolError(err error, toolName string) *errors.WarRoomError {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeToolFailure, "tool execution failed", err).
		WithContext("tool_name", toolName).
		WithAttribute("tool.name", toolName).
		WithRecoverable(true)
}

// WrapTimeoutError wraps a timeout error with appropriate context.
func WrapTimeoutError(err error, operation string) *errors.WarRoomError {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeTimeout, "operation timed out", err).
		WithContext("operation", operation).
		WithRecoverable(false)
}

// NewInvalidInputError creates a new invalid input error.
func NewInvalidInputError(msg string) *errors.WarRoomError {
	return errors.New(errors.CodeInvalidInput, msg, nil).
		WithRecoverable(false)
}
