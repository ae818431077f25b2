package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/shopfloor/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// newTestMeter returns a meter backed by a manual reader for collection in tests.
func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:     false,
		ServiceName: "shopfloor-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.Equal(t, "shopfloor-test", mp.GetConfig().ServiceName)
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounterAndHistogram(t *testing.T) {
	reader, provider := newTestMeter(t)
	meter := provider.Meter("test")
	ctx := context.Background()

	counter, err := telemetry.NewCounter(meter, "scans_total", "Scans", "{scans}")
	require.NoError(t, err)
	counter.Add(ctx, 5, attribute.String("station", "Sewing"))
	counter.Inc(ctx, attribute.String("station", "Sewing"))

	hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "report_seconds",
		Unit:       "s",
		Boundaries: telemetry.ReportDurationBuckets,
	})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 1500*time.Millisecond)

	metrics := collect(t, reader)

	sum, ok := metrics["scans_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(6), sum.DataPoints[0].Value)

	h, ok := metrics["report_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, telemetry.ReportDurationBuckets, h.DataPoints[0].Bounds)
	assert.InDelta(t, 1.5, h.DataPoints[0].Sum, 1e-9)
}

func TestGauges(t *testing.T) {
	reader, provider := newTestMeter(t)
	meter := provider.Meter("test")
	ctx := context.Background()

	g, err := telemetry.NewGauge(meter, "open_events", "Open events", "{events}")
	require.NoError(t, err)
	g.Record(ctx, 3)
	g.Record(ctx, 7)

	fg, err := telemetry.NewFloatGauge(meter, "score", "Score", "1")
	require.NoError(t, err)
	fg.Record(ctx, 0.82)

	metrics := collect(t, reader)

	ig, ok := metrics["open_events"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(7), ig.DataPoints[0].Value)

	ff, ok := metrics["score"].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	assert.InDelta(t, 0.82, ff.DataPoints[0].Value, 1e-9)
}
