package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const scanEventOrder = "scan_events.start_time ASC, scan_events.created_at ASC, scan_events.id ASC"

// GormScanEventRepository implements ScanEventRepository using GORM
type GormScanEventRepository struct {
	db *gorm.DB
}

// NewGormScanEventRepository creates a new GormScanEventRepository
func NewGormScanEventRepository(db *gorm.DB) *GormScanEventRepository {
	return &GormScanEventRepository{db: db}
}

// FetchEvents returns events of produced items matching the filter, ordered by start time.
// Date bounds apply to the start time; DateTo is exclusive.
func (r *GormScanEventRepository) FetchEvents(ctx context.Context, filter production.EventFilter) ([]production.ScanEvent, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ScanEventModel{}).
		Select("scan_events.*").
		Joins("JOIN production_items ON production_items.id = scan_events.item_id").
		Where("production_items.is_produced = ?", true)

	if filter.DateFrom != nil {
		query = query.Where("scan_events.start_time >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("scan_events.start_time < ?", *filter.DateTo)
	}
	if filter.StationID != nil {
		query = query.Where("scan_events.station_id = ?", *filter.StationID)
	}
	if filter.EmployeeID != nil {
		query = query.Where("scan_events.employee_id = ?", *filter.EmployeeID)
	}
	if len(filter.ItemIDs) > 0 {
		query = query.Where("scan_events.item_id IN ?", filter.ItemIDs)
	}

	var rows []models.ScanEventModel
	if err := query.Order(scanEventOrder).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch scan events: %w", err)
	}
	return toScanEvents(rows), nil
}

// FetchEventsForItems returns every event of the given items regardless of date
func (r *GormScanEventRepository) FetchEventsForItems(ctx context.Context, itemIDs []uuid.UUID) ([]production.ScanEvent, error) {
	if len(itemIDs) == 0 {
		return []production.ScanEvent{}, nil
	}
	var rows []models.ScanEventModel
	if err := r.db.WithContext(ctx).
		Where("item_id IN ?", itemIDs).
		Order(scanEventOrder).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch item events: %w", err)
	}
	return toScanEvents(rows), nil
}

// InsertEvent stores an event unconditionally
func (r *GormScanEventRepository) InsertEvent(ctx context.Context, event *production.ScanEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(models.ScanEventModelFromDomain(*event)).Error; err != nil {
		return fmt.Errorf("insert scan event: %w", err)
	}
	return nil
}

// InsertIfAbsent stores a synthesized event unless the item already has an
// event at its station. The existence check and the insert share a
// transaction, and the unique backfill key rejects a concurrent twin.
func (r *GormScanEventRepository) InsertIfAbsent(ctx context.Context, event *production.ScanEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	model := models.ScanEventModelFromDomain(*event)
	key := models.BackfillKeyFor(event.ItemID, event.StationID)
	model.BackfillKey = &key

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.ScanEventModel{}).
			Where("item_id = ? AND station_id = ?", event.ItemID, event.StationID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: item %s already has %d event(s) at station %s",
				production.ErrDuplicateAttribution, event.ItemID, existing, event.StationID)
		}
		return tx.Create(model).Error
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, production.ErrDuplicateAttribution):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: concurrent backfill of item %s", production.ErrDuplicateAttribution, event.ItemID)
	default:
		return fmt.Errorf("insert backfill event: %w", err)
	}
}

func toScanEvents(rows []models.ScanEventModel) []production.ScanEvent {
	out := make([]production.ScanEvent, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

var _ production.ScanEventRepository = (*GormScanEventRepository)(nil)
