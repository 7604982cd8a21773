// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestRecordErrorMetric(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	em, err := NewErrorMetrics(context.Background(), WithMeterProvider(mp))
	if err != nil {
		t.Fatalf("failed to create error metrics: %v", err)
	}
	ctx := context.Background()

	em.RecordErrorMetric(ctx, errors.New(errors.CodeLLMError, "stream failed", nil), "commander")
	em.RecordErrorMetric(ctx, context.DeadlineExceeded, "commander")
	em.RecordErrorMetric(ctx, nil, "commander")
	em.RecordRecovery(ctx, errors.CodeLLMError)
	em.RecordCircuitBreakerState(ctx, "reasoning-backend", 2)

	if got := collectSum(t, reader, "warroom.errors.total"); got != 2 {
		t.Errorf("expected 2 errors, got %d", got)
	}
	if got := collectSum(t, reader, "warroom.errors.recovered"); got != 1 {
		t.Errorf("expected 1 recovery, got %d", got)
	}

	var nilMetrics *ErrorMetrics
	nilMetrics.RecordErrorMetric(ctx, context.Canceled, "x")
	nilMetrics.RecordRecovery(ctx, errors.CodeLLMError)
	nilMetrics.RecordCircuitBreakerState(ctx, "x", 0)
}

func TestEventMetricsCountsEvents(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewEventMetrics(WithMeterProvider(mp))
	if err != nil {
		t.Fatalf("NewEventMetrics: %v", err)
	}

	em := core.NewEmitter("Commander", core.WithListeners(metrics))
	em.Think(context.Background(), "a", core.ThinkingPayload{})
	em.Think(context.Background(), "b", core.ThinkingPayload{})
	em.Decide(context.Background(), "c", core.DecisionPayload{})

	if got := collectSum(t, reader, "warroom.events.total"); got != 3 {
		t.Errorf("expected 3 events, got %d", got)
	}
}
