package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fyrsmithlabs/intaketriage/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), nil)
	require.NoError(t, err)

	assert.False(t, tel.Enabled())
	assert.Nil(t, tel.LoggerProvider())
	assert.NotNil(t, tel.Tracer("triage"))
	assert.NotNil(t, tel.Meter("triage"))
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = "collector.example.com:4317"

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "invalid telemetry config")
	assert.ErrorContains(t, err, "insecure export")
}

func TestNew_InjectedSinks(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = true

	spans := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	tel, err := New(ctx, cfg, WithSpanExporter(spans), WithMetricReader(reader))
	require.NoError(t, err)

	assert.True(t, tel.Enabled())
	assert.NotNil(t, tel.LoggerProvider())
	assert.False(t, tel.Health().Degraded)

	_, span := tel.Tracer("triage").Start(ctx, "triage.score")
	span.End()

	counter, err := tel.Meter("triage").Int64Counter("intaketriage.triage.decisions")
	require.NoError(t, err)
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("triage.decision", "ACCEPT")))

	require.NoError(t, tel.tp.ForceFlush(ctx))
	require.Len(t, spans.GetSpans(), 1)
	assert.Equal(t, "triage.score", spans.GetSpans()[0].Name)

	require.NoError(t, tel.Shutdown(ctx))
	assert.False(t, tel.Enabled(), "shut down")
	assert.False(t, tel.Health().Healthy)
}

func TestTelemetry_Degraded(t *testing.T) {
	tel := &Telemetry{cfg: DefaultConfig()}
	tel.degrade(assert.AnError)
	h := tel.Health()
	assert.True(t, h.Degraded)
	assert.Equal(t, assert.AnError.Error(), h.Reason)

	tel.degrade(assert.AnError)
	assert.Contains(t, tel.Health().Reason, "(+1 more)")
}

func TestTelemetry_Nil(t *testing.T) {
	var tel *Telemetry
	assert.NotPanics(t, func() {
		_ = tel.Tracer("x")
		_ = tel.Meter("x")
		assert.Nil(t, tel.LoggerProvider())
		assert.False(t, tel.Enabled())
		assert.NoError(t, tel.Shutdown(context.Background()))
	})
	h := tel.Health()
	assert.False(t, h.Healthy)
	assert.True(t, h.Degraded)
}

func TestShutdown_UsesConfiguredTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.ShutdownTimeout = 50 * time.Millisecond
	tel, err := New(context.Background(), cfg,
		WithSpanExporter(tracetest.NewInMemoryExporter()),
		WithMetricReader(sdkmetric.NewManualReader()))
	require.NoError(t, err)

	start := time.Now()
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestTestTelemetry(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	_, span := tt.Tracer("triage").Start(ctx, "triage.build_features")
	span.SetAttributes(
		attribute.Bool("llm.available", true),
		attribute.Int("triage.score", 78),
		attribute.String("triage.case_type", "DOG_BITE"),
	)
	span.End()

	tt.AssertSpanExists(t, "triage.build_features")
	tt.AssertSpanAttribute(t, "triage.build_features", "llm.available", true)
	tt.AssertSpanAttribute(t, "triage.build_features", "triage.score", int64(78))
	tt.AssertSpanAttribute(t, "triage.build_features", "triage.case_type", "DOG_BITE")
	assert.Nil(t, tt.Span("missing"))

	c, err := tt.Meter("triage").Int64Counter("decisions")
	require.NoError(t, err)
	c.Add(ctx, 2, metric.WithAttributes(attribute.String("triage.decision", "REVIEW")))
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("triage.decision", "DECLINE")))

	assert.Equal(t, int64(3), tt.CounterValue(t, "decisions"))
	assert.Equal(t, int64(2), tt.CounterValue(t, "decisions", attribute.String("triage.decision", "REVIEW")))
	assert.Zero(t, tt.CounterValue(t, "absent"))
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(config.TelemetryConfig{
		Enabled:    true,
		Endpoint:   "https://otel.internal:4318",
		Protocol:   ProtocolHTTP,
		SampleRate: 0.25,
	}, "1.4.0")

	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.Insecure)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, 0.25, cfg.SampleRate)
	assert.Equal(t, "1.4.0", cfg.ServiceVersion)
	assert.NoError(t, cfg.Validate())

	blank := FromSettings(config.TelemetryConfig{}, "")
	assert.Equal(t, "localhost:4317", blank.Endpoint)
	assert.Equal(t, ProtocolGRPC, blank.Protocol)
	assert.Equal(t, "dev", blank.ServiceVersion)
}
