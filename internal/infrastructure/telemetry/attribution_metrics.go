package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when metrics are constructed without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// MissingAttributionCounter reports how many finished-past-the-stage items
// lack an event at the detector's target station.
type MissingAttributionCounter interface {
	CountMissingAttribution(ctx context.Context) (station string, missing int, err error)
}

// AttributionMetrics records engine activity. A nil *AttributionMetrics is
// valid and records nothing, so services can run without a meter.
type AttributionMetrics struct {
	logger *zap.Logger

	reportsTotal    *Counter
	reportDuration  *Histogram
	warningsTotal   *Counter
	backfillsTotal  *Counter
	detectionsTotal *Counter
	missingItems    *Gauge
	qualityScore    *FloatGauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// NewAttributionMetrics registers the engine instruments on the meter.
func NewAttributionMetrics(meter metric.Meter, logger *zap.Logger) (*AttributionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &AttributionMetrics{
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	var err error
	if m.reportsTotal, err = NewCounter(meter,
		"shopfloor_reports_total",
		"Productivity reports served",
		"{reports}",
	); err != nil {
		return nil, err
	}
	if m.reportDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "shopfloor_report_duration_seconds",
		Description: "Time to produce a productivity report",
		Unit:        "s",
		Boundaries:  ReportDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.warningsTotal, err = NewCounter(meter,
		"shopfloor_data_warnings_total",
		"Data-quality warnings raised while computing reports",
		"{warnings}",
	); err != nil {
		return nil, err
	}
	if m.backfillsTotal, err = NewCounter(meter,
		"shopfloor_backfills_total",
		"Manual attribution backfill attempts by outcome",
		"{backfills}",
	); err != nil {
		return nil, err
	}
	if m.detectionsTotal, err = NewCounter(meter,
		"shopfloor_detections_total",
		"Missing-attribution detection runs",
		"{runs}",
	); err != nil {
		return nil, err
	}
	if m.missingItems, err = NewGauge(meter,
		"shopfloor_missing_attribution_items",
		"Items past a station without an event at that station",
		"{items}",
	); err != nil {
		return nil, err
	}
	if m.qualityScore, err = NewFloatGauge(meter,
		"shopfloor_report_quality_score",
		"Data-quality score of the most recent computed report",
		"1",
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordReport counts one report and its latency.
func (m *AttributionMetrics) RecordReport(ctx context.Context, policy, status string, cacheHit bool, d time.Duration) {
	if m == nil {
		return
	}
	m.reportsTotal.Inc(ctx,
		AttrPolicy.String(policy),
		AttrStatus.String(status),
		AttrCacheHit.Bool(cacheHit),
	)
	m.reportDuration.RecordDuration(ctx, d,
		AttrPolicy.String(policy),
		AttrCacheHit.Bool(cacheHit),
	)
}

// RecordWarnings adds warning counts keyed by warning kind.
func (m *AttributionMetrics) RecordWarnings(ctx context.Context, byKind map[string]int) {
	if m == nil {
		return
	}
	for kind, n := range byKind {
		if n <= 0 {
			continue
		}
		m.warningsTotal.Add(ctx, int64(n), AttrWarningKind.String(kind))
	}
}

// RecordQuality stores the score of a freshly computed report.
func (m *AttributionMetrics) RecordQuality(ctx context.Context, policy string, score float64) {
	if m == nil {
		return
	}
	m.qualityScore.Record(ctx, score, AttrPolicy.String(policy))
}

// RecordDetection counts a detector run and updates the missing-items gauge.
func (m *AttributionMetrics) RecordDetection(ctx context.Context, station string, missing int) {
	if m == nil {
		return
	}
	m.detectionsTotal.Inc(ctx, AttrStation.String(station))
	m.missingItems.Record(ctx, int64(missing), AttrStation.String(station))
}

// RecordBackfill counts a backfill attempt. Outcome is "created" or an error code.
func (m *AttributionMetrics) RecordBackfill(ctx context.Context, station, outcome string) {
	if m == nil {
		return
	}
	m.backfillsTotal.Inc(ctx,
		AttrStation.String(station),
		AttrOutcome.String(outcome),
	)
}

// StartPeriodicCollection refreshes the missing-items gauge every interval
// (default 5 minutes) until Stop is called or ctx is done. Non-blocking.
func (m *AttributionMetrics) StartPeriodicCollection(ctx context.Context, counter MissingAttributionCounter, interval time.Duration) {
	if m == nil || counter == nil {
		return
	}
	m.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go m.runPeriodicCollection(ctx, counter, interval)
	})
}

func (m *AttributionMetrics) runPeriodicCollection(ctx context.Context, counter MissingAttributionCounter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collectMissing(ctx, counter)

	for {
		select {
		case <-m.stopChan:
			m.logger.Info("Stopping periodic attribution metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectMissing(ctx, counter)
		}
	}
}

func (m *AttributionMetrics) collectMissing(ctx context.Context, counter MissingAttributionCounter) {
	station, missing, err := counter.CountMissingAttribution(ctx)
	if err != nil {
		m.logger.Warn("Failed to count missing attributions", zap.Error(err))
		return
	}
	m.missingItems.Record(ctx, int64(missing), AttrStation.String(station))
}

// Stop ends periodic collection.
func (m *AttributionMetrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}
