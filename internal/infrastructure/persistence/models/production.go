package models

import (
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/google/uuid"
)

// StationModel is the persistence model for floor stations.
// The workflow stage is resolved from the station name.
type StationModel struct {
	BaseModel
	Name   string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Active bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (StationModel) TableName() string {
	return "stations"
}

// ToDomain converts the model to a domain Station
func (m *StationModel) ToDomain() production.Station {
	return production.Station{
		ID:     m.ID,
		Name:   m.Name,
		Stage:  production.ParseStage(m.Name),
		Active: m.Active,
	}
}

// StationModelFromDomain converts a domain Station to its model
func StationModelFromDomain(s production.Station) *StationModel {
	return &StationModel{BaseModel: BaseModel{ID: s.ID}, Name: s.Name, Active: s.Active}
}

// EmployeeModel is the persistence model for floor workers
type EmployeeModel struct {
	BaseModel
	Name   string `gorm:"type:varchar(200);not null"`
	Active bool   `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (EmployeeModel) TableName() string {
	return "employees"
}

// ToDomain converts the model to a domain Employee
func (m *EmployeeModel) ToDomain() production.Employee {
	return production.Employee{ID: m.ID, Name: m.Name, Active: m.Active}
}

// EmployeeModelFromDomain converts a domain Employee to its model
func EmployeeModelFromDomain(e production.Employee) *EmployeeModel {
	return &EmployeeModel{BaseModel: BaseModel{ID: e.ID}, Name: e.Name, Active: e.Active}
}

// ProductionItemModel is the persistence model for order line items on the floor
type ProductionItemModel struct {
	BaseModel
	OrderID         uuid.UUID `gorm:"type:uuid;index"`
	OrderNumber     string    `gorm:"type:varchar(50);not null;index"`
	CustomerName    string    `gorm:"type:varchar(200)"`
	Description     string    `gorm:"type:text"`
	Status          string    `gorm:"type:varchar(20);not null;index"`
	IsProduced      bool      `gorm:"not null;default:false;index"`
	StatusUpdatedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ProductionItemModel) TableName() string {
	return "production_items"
}

// ToDomain converts the model to a domain ProductionItem.
// An unrecognised status reads as NotStarted.
func (m *ProductionItemModel) ToDomain() production.ProductionItem {
	status, _ := production.ParseItemStatus(m.Status)
	return production.ProductionItem{
		ID:              m.ID,
		OrderID:         m.OrderID,
		OrderNumber:     m.OrderNumber,
		CustomerName:    m.CustomerName,
		Description:     m.Description,
		Status:          status,
		IsProduced:      m.IsProduced,
		StatusUpdatedAt: m.StatusUpdatedAt,
	}
}

// ProductionItemModelFromDomain converts a domain ProductionItem to its model
func ProductionItemModelFromDomain(it production.ProductionItem) *ProductionItemModel {
	return &ProductionItemModel{
		BaseModel:       BaseModel{ID: it.ID},
		OrderID:         it.OrderID,
		OrderNumber:     it.OrderNumber,
		CustomerName:    it.CustomerName,
		Description:     it.Description,
		Status:          it.Status.String(),
		IsProduced:      it.IsProduced,
		StatusUpdatedAt: it.StatusUpdatedAt,
	}
}

// ScanEventModel is the persistence model for station scans.
// BackfillKey is set only on synthesized events and is unique per (item, station).
type ScanEventModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ItemID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	StationID       *uuid.UUID `gorm:"type:uuid;index"`
	EmployeeID      *uuid.UUID `gorm:"type:uuid;index"`
	StartTime       *time.Time `gorm:"index"`
	EndTime         *time.Time
	DurationSeconds *int64
	Note            string    `gorm:"type:text"`
	BackfillKey     *string   `gorm:"type:varchar(80);uniqueIndex"`
	CreatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ScanEventModel) TableName() string {
	return "scan_events"
}

// ToDomain converts the model to a domain ScanEvent. Null identifiers become uuid.Nil.
func (m *ScanEventModel) ToDomain() production.ScanEvent {
	e := production.ScanEvent{
		ID:              m.ID,
		ItemID:          m.ItemID,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		DurationSeconds: m.DurationSeconds,
		Note:            m.Note,
		CreatedAt:       m.CreatedAt,
	}
	if m.StationID != nil {
		e.StationID = *m.StationID
	}
	if m.EmployeeID != nil {
		e.EmployeeID = *m.EmployeeID
	}
	return e
}

// ScanEventModelFromDomain converts a domain ScanEvent to its model
func ScanEventModelFromDomain(e production.ScanEvent) *ScanEventModel {
	m := &ScanEventModel{
		ID:              e.ID,
		ItemID:          e.ItemID,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		DurationSeconds: e.DurationSeconds,
		Note:            e.Note,
		CreatedAt:       e.CreatedAt,
	}
	if e.StationID != uuid.Nil {
		id := e.StationID
		m.StationID = &id
	}
	if e.EmployeeID != uuid.Nil {
		id := e.EmployeeID
		m.EmployeeID = &id
	}
	return m
}

// BackfillKeyFor returns the uniqueness key of a synthesized event
func BackfillKeyFor(itemID, stationID uuid.UUID) string {
	return itemID.String() + ":" + stationID.String()
}

// AllModels returns every model in dependency order, for AutoMigrate
func AllModels() []any {
	return []any{
		&StationModel{},
		&EmployeeModel{},
		&ProductionItemModel{},
		&ScanEventModel{},
	}
}
