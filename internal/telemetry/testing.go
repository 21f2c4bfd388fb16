package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry records spans synchronously and collects metrics on demand.
// Its providers are not installed globally.
type TestTelemetry struct {
	*Telemetry

	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

// NewTestTelemetry returns an enabled Telemetry backed by in-memory sinks.
func NewTestTelemetry() *TestTelemetry {
	cfg := DefaultConfig()
	cfg.Enabled = true

	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	return &TestTelemetry{
		Telemetry: &Telemetry{
			cfg: cfg,
			tp:  sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
			mp:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		},
		spans:  spans,
		reader: reader,
	}
}

// Span returns the first ended span called name, or nil.
func (t *TestTelemetry) Span(name string) sdktrace.ReadOnlySpan {
	for _, s := range t.spans.Ended() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// SpanNames lists ended spans in end order.
func (t *TestTelemetry) SpanNames() []string {
	var names []string
	for _, s := range t.spans.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	assert.Contains(tb, t.SpanNames(), name)
}

// AssertSpanAttribute compares the attribute as its natural Go type:
// string, bool, int64, float64 or a slice thereof.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, span, key string, want interface{}) {
	tb.Helper()
	s := t.Span(span)
	require.NotNil(tb, s, "span %q not recorded; have %v", span, t.SpanNames())
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			assert.Equal(tb, want, kv.Value.AsInterface(), "span %q attribute %q", span, key)
			return
		}
	}
	tb.Errorf("span %q has no attribute %q", span, key)
}

// CounterValue sums the int64 counter name over data points whose
// attributes include every kv in attrs.
func (t *TestTelemetry) CounterValue(tb testing.TB, name string, attrs ...attribute.KeyValue) int64 {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(tb, t.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(tb, ok, "metric %q is %T, not an int64 sum", name, m.Data)
			for _, dp := range sum.DataPoints {
				if matchAll(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func matchAll(set attribute.Set, want []attribute.KeyValue) bool {
	for _, kv := range want {
		if v, ok := set.Value(kv.Key); !ok || v != kv.Value {
			return false
		}
	}
	return true
}
