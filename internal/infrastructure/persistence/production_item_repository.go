package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/erp/shopfloor/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductionItemRepository implements ProductionItemRepository using GORM
type GormProductionItemRepository struct {
	db *gorm.DB
}

// NewGormProductionItemRepository creates a new GormProductionItemRepository
func NewGormProductionItemRepository(db *gorm.DB) *GormProductionItemRepository {
	return &GormProductionItemRepository{db: db}
}

// FindByID finds an item by its ID
func (r *GormProductionItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionItem, error) {
	var m models.ProductionItemModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: production item %s", shared.ErrNotFound, id)
		}
		return nil, err
	}
	item := m.ToDomain()
	return &item, nil
}

// FindByIDs finds items by ID. Unknown IDs are skipped.
func (r *GormProductionItemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]production.ProductionItem, error) {
	if len(ids) == 0 {
		return []production.ProductionItem{}, nil
	}
	var rows []models.ProductionItemModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toItems(rows), nil
}

// FindCandidateItems returns produced items in one of the given statuses that
// have no event at the target station yet, oldest status change first.
func (r *GormProductionItemRepository) FindCandidateItems(
	ctx context.Context,
	targetStationID uuid.UUID,
	statuses []production.ItemStatus,
	filter production.ItemFilter,
) ([]production.ProductionItem, error) {
	if len(statuses) == 0 {
		return []production.ProductionItem{}, nil
	}
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.String())
	}

	query := r.db.WithContext(ctx).
		Model(&models.ProductionItemModel{}).
		Where("is_produced = ?", true).
		Where("status IN ?", names)
	if targetStationID != uuid.Nil {
		query = query.Where(
			"NOT EXISTS (SELECT 1 FROM scan_events se WHERE se.item_id = production_items.id AND se.station_id = ?)",
			targetStationID,
		)
	}
	if filter.UpdatedFrom != nil {
		query = query.Where("status_updated_at >= ?", *filter.UpdatedFrom)
	}
	if filter.UpdatedTo != nil {
		query = query.Where("status_updated_at < ?", *filter.UpdatedTo)
	}

	var rows []models.ProductionItemModel
	if err := query.Order("status_updated_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find candidate items: %w", err)
	}
	return toItems(rows), nil
}

// Save creates or updates an item
func (r *GormProductionItemRepository) Save(ctx context.Context, item *production.ProductionItem) error {
	m := models.ProductionItemModelFromDomain(*item)
	item.ID = m.EnsureID()
	return r.db.WithContext(ctx).Save(m).Error
}

func toItems(rows []models.ProductionItemModel) []production.ProductionItem {
	out := make([]production.ProductionItem, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

var _ production.ProductionItemRepository = (*GormProductionItemRepository)(nil)
