package instrumentation

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	metrics, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	return metrics, reader
}

func collectMetricNames(t *testing.T, reader *sdkmetric.ManualReader) map[string]bool {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestRecordNotification(t *testing.T) {
	metrics, reader := newTestMetrics(t)

	metrics.RecordNotification(context.Background(), StatusSuccess, 120*time.Millisecond)

	names := collectMetricNames(t, reader)
	if !names["calendar_notifications_total"] {
		t.Error("Expected calendar_notifications_total to be recorded")
	}
	if !names["calendar_notification_duration_seconds"] {
		t.Error("Expected calendar_notification_duration_seconds to be recorded")
	}
}

func TestRecordCalendarOperation(t *testing.T) {
	metrics, reader := newTestMetrics(t)

	metrics.RecordCalendarOperation(context.Background(), "update", StatusSuccess, 50*time.Millisecond)
	metrics.RecordCalendarOperation(context.Background(), "delete", StatusError, 10*time.Millisecond)

	names := collectMetricNames(t, reader)
	if !names["calendar_api_operations_total"] {
		t.Error("Expected calendar_api_operations_total to be recorded")
	}
}

func TestRecordSplitOutcome(t *testing.T) {
	metrics, reader := newTestMetrics(t)

	metrics.RecordSplitOutcome(context.Background(), OutcomeTruncate)
	metrics.RecordSplitOutcome(context.Background(), OutcomeMove)
	metrics.RecordSplitOutcome(context.Background(), OutcomeNoop)

	names := collectMetricNames(t, reader)
	if !names["event_split_outcomes_total"] {
		t.Error("Expected event_split_outcomes_total to be recorded")
	}
}

func TestRecordPropagationWrites_ZeroIsSkipped(t *testing.T) {
	metrics, reader := newTestMetrics(t)

	metrics.RecordPropagationWrites(context.Background(), 0)

	names := collectMetricNames(t, reader)
	if names["project_propagation_writes_total"] {
		t.Error("Expected no data points for zero writes")
	}

	metrics.RecordPropagationWrites(context.Background(), 3)
	names = collectMetricNames(t, reader)
	if !names["project_propagation_writes_total"] {
		t.Error("Expected project_propagation_writes_total to be recorded")
	}
}

func TestZeroValueMetricsAreNoop(t *testing.T) {
	// A zero-value Metrics (disabled instrumentation) must not panic.
	m := &Metrics{}
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/", 200, time.Millisecond)
	m.RecordNotification(ctx, StatusSuccess, time.Millisecond)
	m.RecordCalendarOperation(ctx, "list", StatusSuccess, time.Millisecond)
	m.RecordPropagationWrites(ctx, 5)
	m.RecordSplitOutcome(ctx, OutcomeNoop)
}

func TestProviderDisabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	if provider.Enabled() {
		t.Error("Expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("Expected no-op metrics recorder, got nil")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown of disabled provider should be nil, got %v", err)
	}
}
