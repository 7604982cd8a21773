// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// MetricsOption configures metric instruments.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	provider metric.MeterProvider
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) MetricsOption {
	return func(c *metricsConfig) {
		if mp != nil {
			c.provider = mp
		}
	}
}

func meterFor(name string, opts []MetricsOption) metric.Meter {
	cfg := metricsConfig{provider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg.provider.Meter(name)
}

// ErrorMetrics tracks error rates and recoveries for the war room components.
type ErrorMetrics struct {
	errorCounter    metric.Int64Counter
	recoveryCounter metric.Int64Counter
	// breakerState: 0=open, 1=half-open, 2=closed
	breakerState metric.Int64Gauge
}

// NewErrorMetrics creates the error instruments.
func NewErrorMetrics(ctx context.Context, opts ...MetricsOption) (*ErrorMetrics, error) {
	meter := meterFor("warroom/errors", opts)

	errorCounter, err := meter.Int64Counter(
		"warroom.errors.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, err
	}
	recoveryCounter, err := meter.Int64Counter(
		"warroom.errors.recovered",
		metric.WithDescription("Errors handled by a fallback, by code"),
	)
	if err != nil {
		return nil, err
	}
	breakerState, err := meter.Int64Gauge(
		"warroom.circuitbreaker.state",
		metric.WithDescription("Circuit breaker state per component (0=open, 1=half-open, 2=closed)"),
	)
	if err != nil {
		return nil, err
	}
	return &ErrorMetrics{
		errorCounter:    errorCounter,
		recoveryCounter: recoveryCounter,
		breakerState:    breakerState,
	}, nil
}

// RecordErrorMetric increments the error counter for err's code and component.
func (em *ErrorMetrics) RecordErrorMetric(ctx context.Context, err error, component string) {
	if em == nil || err == nil {
		return
	}
	code, recoverable := "UNKNOWN", "unknown"
	if we := errors.AsWarRoomError(err); we != nil && errors.CodeOf(err) != "" {
		code = string(we.Code)
		recoverable = we.RecoverableString()
	}
	em.errorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", code),
			attribute.String("component", component),
			attribute.String("recoverable", recoverable),
		),
	)
}

// RecordRecovery increments the recovery counter for code.
func (em *ErrorMetrics) RecordRecovery(ctx context.Context, code errors.ErrorCode) {
	if em == nil {
		return
	}
	em.recoveryCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("error.code", string(code))),
	)
}

// RecordCircuitBreakerState records the breaker state for component.
func (em *ErrorMetrics) RecordCircuitBreakerState(ctx context.Context, component string, state int64) {
	if em == nil {
		return
	}
	em.breakerState.Record(ctx, state,
		metric.WithAttributes(attribute.String("component", component)),
	)
}

// EventMetrics is a core.Listener counting emitted events by type and agent.
type EventMetrics struct {
	events metric.Int64Counter
}

// NewEventMetrics creates the event counter.
func NewEventMetrics(opts ...MetricsOption) (*EventMetrics, error) {
	counter, err := meterFor("warroom/events", opts).Int64Counter(
		"warroom.events.total",
		metric.WithDescription("Agent events emitted by type and agent"),
	)
	if err != nil {
		return nil, err
	}
	return &EventMetrics{events: counter}, nil
}

// OnEvent implements core.Listener.
func (m *EventMetrics) OnEvent(ctx context.Context, ev core.Event) error {
	m.events.Add(ctx, 1, metric.WithAttributes(EventAttributes(ev)...))
	return nil
}
