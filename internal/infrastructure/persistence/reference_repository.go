package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/erp/shopfloor/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEmployeeRepository implements EmployeeRepository using GORM
type GormEmployeeRepository struct {
	db *gorm.DB
}

// NewGormEmployeeRepository creates a new GormEmployeeRepository
func NewGormEmployeeRepository(db *gorm.DB) *GormEmployeeRepository {
	return &GormEmployeeRepository{db: db}
}

// FindByID finds an employee by ID
func (r *GormEmployeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.Employee, error) {
	var m models.EmployeeModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: employee %s", shared.ErrNotFound, id)
		}
		return nil, err
	}
	e := m.ToDomain()
	return &e, nil
}

// FindByIDs finds employees by ID, active or not
func (r *GormEmployeeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]production.Employee, error) {
	if len(ids) == 0 {
		return []production.Employee{}, nil
	}
	var rows []models.EmployeeModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]production.Employee, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates an employee
func (r *GormEmployeeRepository) Save(ctx context.Context, e *production.Employee) error {
	m := models.EmployeeModelFromDomain(*e)
	e.ID = m.EnsureID()
	return r.db.WithContext(ctx).Save(m).Error
}

// GormStationRepository implements StationRepository using GORM
type GormStationRepository struct {
	db *gorm.DB
}

// NewGormStationRepository creates a new GormStationRepository
func NewGormStationRepository(db *gorm.DB) *GormStationRepository {
	return &GormStationRepository{db: db}
}

// FindByID finds a station by ID
func (r *GormStationRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.Station, error) {
	var m models.StationModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: station %s", shared.ErrNotFound, id)
		}
		return nil, err
	}
	st := m.ToDomain()
	return &st, nil
}

// FindByName finds a station by name, ignoring case
func (r *GormStationRepository) FindByName(ctx context.Context, name string) (*production.Station, error) {
	var m models.StationModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: station %q", shared.ErrNotFound, name)
		}
		return nil, err
	}
	st := m.ToDomain()
	return &st, nil
}

// FindAll returns every station ordered by name. Inactive stations are
// included so historical events still resolve.
func (r *GormStationRepository) FindAll(ctx context.Context) ([]production.Station, error) {
	var rows []models.StationModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]production.Station, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates a station
func (r *GormStationRepository) Save(ctx context.Context, st *production.Station) error {
	m := models.StationModelFromDomain(*st)
	st.ID = m.EnsureID()
	return r.db.WithContext(ctx).Save(m).Error
}

var (
	_ production.EmployeeRepository = (*GormEmployeeRepository)(nil)
	_ production.StationRepository  = (*GormStationRepository)(nil)
)
