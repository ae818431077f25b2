package telemetry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/shopfloor/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func TestNewAttributionMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewAttributionMetrics(nil, nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestAttributionMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.AttributionMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordReport(ctx, "workflow_gated", "ok", false, time.Second)
		m.RecordWarnings(ctx, map[string]int{"unknown_station": 1})
		m.RecordQuality(ctx, "workflow_gated", 1)
		m.RecordDetection(ctx, "Sewing", 2)
		m.RecordBackfill(ctx, "Sewing", "created")
		m.StartPeriodicCollection(ctx, nil, time.Second)
		m.Stop()
	})
}

func TestAttributionMetrics_Records(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := telemetry.NewAttributionMetrics(provider.Meter("shopfloor"), zaptest.NewLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordReport(ctx, "workflow_gated", "ok", false, 200*time.Millisecond)
	m.RecordReport(ctx, "workflow_gated", "ok", true, time.Millisecond)
	m.RecordWarnings(ctx, map[string]int{"unknown_station": 2, "missing_start_time": 0})
	m.RecordQuality(ctx, "workflow_gated", 0.75)
	m.RecordDetection(ctx, "Sewing", 3)
	m.RecordBackfill(ctx, "Sewing", "created")
	m.RecordBackfill(ctx, "Sewing", "DUPLICATE_ATTRIBUTION")

	metrics := collect(t, reader)

	reports := metrics["shopfloor_reports_total"].Data.(metricdata.Sum[int64])
	assert.Len(t, reports.DataPoints, 2)

	warnings := metrics["shopfloor_data_warnings_total"].Data.(metricdata.Sum[int64])
	require.Len(t, warnings.DataPoints, 1)
	assert.Equal(t, int64(2), warnings.DataPoints[0].Value)
	kind, _ := warnings.DataPoints[0].Attributes.Value(telemetry.AttrWarningKind)
	assert.Equal(t, "unknown_station", kind.AsString())

	missing := metrics["shopfloor_missing_attribution_items"].Data.(metricdata.Gauge[int64])
	require.Len(t, missing.DataPoints, 1)
	assert.Equal(t, int64(3), missing.DataPoints[0].Value)

	quality := metrics["shopfloor_report_quality_score"].Data.(metricdata.Gauge[float64])
	assert.InDelta(t, 0.75, quality.DataPoints[0].Value, 1e-9)

	backfills := metrics["shopfloor_backfills_total"].Data.(metricdata.Sum[int64])
	outcomes := map[string]int64{}
	for _, dp := range backfills.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		outcomes[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"created": 1, "DUPLICATE_ATTRIBUTION": 1}, outcomes)
}

type stubCounter struct {
	calls atomic.Int32
	err   error
}

func (s *stubCounter) CountMissingAttribution(context.Context) (string, int, error) {
	s.calls.Add(1)
	return "Sewing", 5, s.err
}

func TestAttributionMetrics_PeriodicCollection(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := telemetry.NewAttributionMetrics(provider.Meter("shopfloor"), zaptest.NewLogger(t))
	require.NoError(t, err)

	counter := &stubCounter{}
	m.StartPeriodicCollection(context.Background(), counter, 10*time.Millisecond)
	defer m.Stop()

	require.Eventually(t, func() bool { return counter.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	missing := collect(t, reader)["shopfloor_missing_attribution_items"].Data.(metricdata.Gauge[int64])
	require.Len(t, missing.DataPoints, 1)
	assert.Equal(t, int64(5), missing.DataPoints[0].Value)
}

func TestAttributionMetrics_PeriodicCollectionErrorKeepsRunning(t *testing.T) {
	_, provider := newTestMeter(t)
	m, err := telemetry.NewAttributionMetrics(provider.Meter("shopfloor"), zaptest.NewLogger(t))
	require.NoError(t, err)

	counter := &stubCounter{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartPeriodicCollection(ctx, counter, 10*time.Millisecond)

	require.Eventually(t, func() bool { return counter.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}
