package production

import (
	"time"

	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types emitted by the production domain
const (
	EventTypeAttributionBackfilled = "AttributionBackfilled"

	AggregateTypeProductionItem = "ProductionItem"
)

// AttributionBackfilledEvent is published after a synthetic scan event has been stored
type AttributionBackfilledEvent struct {
	shared.BaseDomainEvent
	ScanEventID  uuid.UUID `json:"scan_event_id"`
	ItemID       uuid.UUID `json:"item_id"`
	StationID    uuid.UUID `json:"station_id"`
	EmployeeID   uuid.UUID `json:"employee_id"`
	ActorID      string    `json:"actor_id"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	UsedFallback bool      `json:"used_fallback"`
}

// NewAttributionBackfilledEvent creates the audit event for a stored synthetic scan
func NewAttributionBackfilledEvent(event ScanEvent, actorID string, usedFallback bool) *AttributionBackfilledEvent {
	e := &AttributionBackfilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAttributionBackfilled, AggregateTypeProductionItem, event.ItemID),
		ScanEventID:     event.ID,
		ItemID:          event.ItemID,
		StationID:       event.StationID,
		EmployeeID:      event.EmployeeID,
		ActorID:         actorID,
		UsedFallback:    usedFallback,
	}
	if event.StartTime != nil {
		e.WindowStart = *event.StartTime
	}
	if event.EndTime != nil {
		e.WindowEnd = *event.EndTime
	}
	return e
}
