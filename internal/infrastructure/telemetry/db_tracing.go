package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	DBSystem        string        // "postgresql" or "sqlite"
	SlowQueryThresh time.Duration // default 200ms
	WithVariables   bool          // include bound values in db.statement (dev only)
}

// DBTracingPlugin registers otelgorm and marks slow or failed statements on
// the span that otelgorm opened.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a tracing plugin. Zero thresholds default to 200ms.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// Register installs the otelgorm plugin and the timing callbacks on db.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("db tracing disabled")
		return nil
	}

	// Registered ahead of otelgorm so the after hooks run while its span is still open.
	cb := db.Callback()
	if err := errors.Join(
		cb.Create().Before("gorm:create").Register("shopfloor_timing:before_create", markQueryStart),
		cb.Create().After("gorm:create").Register("shopfloor_timing:after_create", p.annotateSpan),
		cb.Query().Before("gorm:query").Register("shopfloor_timing:before_query", markQueryStart),
		cb.Query().After("gorm:query").Register("shopfloor_timing:after_query", p.annotateSpan),
		cb.Update().Before("gorm:update").Register("shopfloor_timing:before_update", markQueryStart),
		cb.Update().After("gorm:update").Register("shopfloor_timing:after_update", p.annotateSpan),
		cb.Delete().Before("gorm:delete").Register("shopfloor_timing:before_delete", markQueryStart),
		cb.Delete().After("gorm:delete").Register("shopfloor_timing:after_delete", p.annotateSpan),
		cb.Row().Before("gorm:row").Register("shopfloor_timing:before_row", markQueryStart),
		cb.Row().After("gorm:row").Register("shopfloor_timing:after_row", p.annotateSpan),
		cb.Raw().Before("gorm:raw").Register("shopfloor_timing:before_raw", markQueryStart),
		cb.Raw().After("gorm:raw").Register("shopfloor_timing:after_raw", p.annotateSpan),
	); err != nil {
		return err
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.WithVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	p.logger.Info("db tracing enabled",
		zap.String("db_system", p.config.DBSystem),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	started, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(started); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
