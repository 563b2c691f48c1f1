package instrumentation

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collectSchedulingAttempts records one attempt through a manual reader and
// returns the attribute set of the resulting data point.
func collectSchedulingAttempts(t *testing.T, detailedLabels bool, userHash string) attribute.Set {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })

	m, err := NewMetrics(provider.Meter("test"), detailedLabels)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.RecordSchedulingAttemptForUser(t.Context(), "GOOGLE", "BOT_INVITED", userHash)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(t.Context(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			if metric.Name != "scheduling_attempts_total" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) == 0 {
				t.Fatalf("scheduling_attempts_total has no data points")
			}
			return sum.DataPoints[0].Attributes
		}
	}
	t.Fatal("scheduling_attempts_total was not recorded")
	return attribute.Set{}
}

func TestRecordSchedulingAttemptForUser(t *testing.T) {
	t.Run("detailed labels include the user hash", func(t *testing.T) {
		attrs := collectSchedulingAttempts(t, true, "user:1a2b3c4d")

		if v, ok := attrs.Value(attribute.Key(attrUser)); !ok || v.AsString() != "user:1a2b3c4d" {
			t.Errorf("expected user label, got attributes %v", attrs.ToSlice())
		}
		if v, ok := attrs.Value(attribute.Key(attrPlatform)); !ok || v.AsString() != "GOOGLE" {
			t.Errorf("expected platform label, got attributes %v", attrs.ToSlice())
		}
	})

	t.Run("user label withheld by default", func(t *testing.T) {
		attrs := collectSchedulingAttempts(t, false, "user:1a2b3c4d")

		if _, ok := attrs.Value(attribute.Key(attrUser)); ok {
			t.Errorf("user label must not appear without detailed labels, got %v", attrs.ToSlice())
		}
	})

	t.Run("empty hash is never labeled", func(t *testing.T) {
		attrs := collectSchedulingAttempts(t, true, "")

		if _, ok := attrs.Value(attribute.Key(attrUser)); ok {
			t.Errorf("empty user hash must not be labeled, got %v", attrs.ToSlice())
		}
	})
}
