package attribution

import (
	"time"

	domain "github.com/erp/shopfloor/internal/domain/attribution"
	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/google/uuid"
)

// ReportStatus tells callers whether a report carries data
type ReportStatus string

const (
	ReportStatusOK     ReportStatus = "ok"
	ReportStatusNoData ReportStatus = "no_data"
)

// ReportQuery is the input of report operations
type ReportQuery struct {
	Filter production.EventFilter
	// Policy names a registered time-credit policy; empty selects the default
	Policy string
	// BypassCache forces a fresh computation
	BypassCache bool
}

// ProductivityReport is the result of ComputeProductivity
type ProductivityReport struct {
	Status         ReportStatus                   `json:"status"`
	Message        string                         `json:"message,omitempty"`
	Policy         string                         `json:"policy"`
	DateFrom       *time.Time                     `json:"date_from,omitempty"`
	DateTo         *time.Time                     `json:"date_to,omitempty"`
	Rows           []domain.EmployeeStationMetric `json:"rows"`
	Summary        domain.Summary                 `json:"summary"`
	Warnings       []domain.Warning               `json:"warnings"`
	ExcludedEvents int                            `json:"excluded_events"`
	Quality        domain.DataQuality             `json:"quality"`
	GeneratedAt    time.Time                      `json:"generated_at"`
	CacheHit       bool                           `json:"-"`
}

// HasData reports whether the report is backed by at least one valid event
func (r *ProductivityReport) HasData() bool {
	return r.Status == ReportStatusOK
}

// EmployeeItem is one drill-down row: an item an employee was credited for at a station
type EmployeeItem struct {
	ItemID                  uuid.UUID        `json:"item_id"`
	StationID               uuid.UUID        `json:"station_id"`
	StationName             string           `json:"station_name"`
	Stage                   production.Stage `json:"stage"`
	OrderNumber             string           `json:"order_number"`
	CustomerName            string           `json:"customer_name"`
	Description             string           `json:"description"`
	CreditedDurationSeconds int64            `json:"credited_duration_seconds"`
	ScanCount               int              `json:"scan_count"`
	LastScanAt              time.Time        `json:"last_scan_at"`
}

// BackfillCommand asks for a synthetic attribution of an item at a station
type BackfillCommand struct {
	ItemID          uuid.UUID
	TargetStationID uuid.UUID
	EmployeeID      uuid.UUID
	ActorID         string
}

// PolicyInfo describes a registered time-credit policy
type PolicyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}
