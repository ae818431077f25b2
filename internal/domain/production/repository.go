package production

import (
	"context"

	"github.com/google/uuid"
)

// ScanEventRepository is the event store boundary
type ScanEventRepository interface {
	// FetchEvents returns raw events matching the filter, ordered by start time.
	// Events of items not flagged as produced are never returned.
	FetchEvents(ctx context.Context, filter EventFilter) ([]ScanEvent, error)
	// FetchEventsForItems returns every event of the given items regardless of date
	FetchEventsForItems(ctx context.Context, itemIDs []uuid.UUID) ([]ScanEvent, error)
	// InsertEvent stores an event unconditionally
	InsertEvent(ctx context.Context, event *ScanEvent) error
	// InsertIfAbsent atomically stores the event unless the item already has an
	// event at the event's station, in which case ErrDuplicateAttribution is returned.
	InsertIfAbsent(ctx context.Context, event *ScanEvent) error
}

// ProductionItemRepository reads production items
type ProductionItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductionItem, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]ProductionItem, error)
	// FindCandidateItems returns produced items whose status is one of statuses.
	// targetStationID is carried for adapters that can pre-exclude items already
	// attributed at that station.
	FindCandidateItems(ctx context.Context, targetStationID uuid.UUID, statuses []ItemStatus, filter ItemFilter) ([]ProductionItem, error)
}

// EmployeeRepository reads employee reference data
type EmployeeRepository interface {
	// FindByID returns shared.ErrNotFound when the employee does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Employee, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Employee, error)
}

// StationRepository reads station reference data
type StationRepository interface {
	// FindByID returns shared.ErrNotFound when the station does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Station, error)
	FindByName(ctx context.Context, name string) (*Station, error)
	FindAll(ctx context.Context) ([]Station, error)
}
