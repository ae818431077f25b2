package event

import (
	"context"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/erp/shopfloor/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogAuditHandler records audit events in the service log. Used when no
// Kafka sink is configured.
type LogAuditHandler struct {
	logger *zap.Logger
}

// NewLogAuditHandler creates a log-backed audit handler
func NewLogAuditHandler(log *zap.Logger) *LogAuditHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogAuditHandler{logger: log.Named("audit")}
}

// EventTypes implements shared.EventHandler
func (h *LogAuditHandler) EventTypes() []string {
	return []string{production.EventTypeAttributionBackfilled}
}

// Handle implements shared.EventHandler
func (h *LogAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
	}
	if e, ok := event.(*production.AttributionBackfilledEvent); ok {
		fields = append(fields,
			zap.String("station_id", e.StationID.String()),
			zap.String("employee_id", e.EmployeeID.String()),
			zap.String("actor_id", e.ActorID),
			zap.Time("window_start", e.WindowStart),
			zap.Time("window_end", e.WindowEnd),
			zap.Bool("used_fallback", e.UsedFallback),
		)
	}
	logger.WithTraceContext(ctx, h.logger).Info("attribution backfilled", fields...)
	return nil
}

// Close is a no-op; the handler owns no connection
func (h *LogAuditHandler) Close() error {
	return nil
}

var _ shared.EventHandler = (*LogAuditHandler)(nil)
