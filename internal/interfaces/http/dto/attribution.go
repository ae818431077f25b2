package dto

import (
	"fmt"
	"time"

	app "github.com/erp/shopfloor/internal/application/attribution"
	domain "github.com/erp/shopfloor/internal/domain/attribution"
	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ReportRequest binds the query string of the productivity endpoints.
// Dates accept YYYY-MM-DD or RFC3339; a bare date_to covers that whole day.
type ReportRequest struct {
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
	StationID  string `form:"station_id" binding:"omitempty,uuid"`
	EmployeeID string `form:"employee_id" binding:"omitempty,uuid"`
	Policy     string `form:"policy" binding:"omitempty,max=64"`
	Refresh    bool   `form:"refresh"`
}

// ToQuery converts the request to a service query
func (r ReportRequest) ToQuery() (app.ReportQuery, error) {
	from, to, err := parseRange(r.DateFrom, r.DateTo)
	if err != nil {
		return app.ReportQuery{}, err
	}
	q := app.ReportQuery{
		Filter: production.EventFilter{
			DateFrom:   from,
			DateTo:     to,
			StationID:  optionalUUID(r.StationID),
			EmployeeID: optionalUUID(r.EmployeeID),
		},
		Policy:      r.Policy,
		BypassCache: r.Refresh,
	}
	return q, nil
}

// DetectRequest binds the query string of the missing-attribution endpoint.
// station_id wins over stage when both are given.
type DetectRequest struct {
	StationID   string `form:"station_id" binding:"omitempty,uuid"`
	Stage       string `form:"stage" binding:"omitempty,stage"`
	UpdatedFrom string `form:"updated_from"`
	UpdatedTo   string `form:"updated_to"`
}

// ToFilter converts the status update window to an item filter
func (r DetectRequest) ToFilter() (production.ItemFilter, error) {
	from, to, err := parseRange(r.UpdatedFrom, r.UpdatedTo)
	if err != nil {
		return production.ItemFilter{}, err
	}
	return production.ItemFilter{UpdatedFrom: from, UpdatedTo: to}, nil
}

// BackfillRequest is the body of a manual backfill.
// An empty target_station_id selects the configured target station.
type BackfillRequest struct {
	ItemID          string `json:"item_id" binding:"required,uuid"`
	TargetStationID string `json:"target_station_id" binding:"omitempty,uuid"`
	EmployeeID      string `json:"employee_id" binding:"required,uuid"`
}

// ToCommand converts the request to a service command
func (r BackfillRequest) ToCommand(actorID string) app.BackfillCommand {
	cmd := app.BackfillCommand{
		ItemID:     uuid.MustParse(r.ItemID),
		EmployeeID: uuid.MustParse(r.EmployeeID),
		ActorID:    actorID,
	}
	if id := optionalUUID(r.TargetStationID); id != nil {
		cmd.TargetStationID = *id
	}
	return cmd
}

// MetricRowResponse is one (employee, station) productivity row
type MetricRowResponse struct {
	EmployeeID             uuid.UUID       `json:"employee_id"`
	EmployeeName           string          `json:"employee_name"`
	StationID              uuid.UUID       `json:"station_id"`
	StationName            string          `json:"station_name"`
	Stage                  string          `json:"stage"`
	ItemsProcessed         int             `json:"items_processed"`
	TotalDurationSeconds   int64           `json:"total_duration_seconds"`
	TotalHours             decimal.Decimal `json:"total_hours"`
	AvgDurationSeconds     decimal.Decimal `json:"avg_duration_seconds"`
	EfficiencyItemsPerHour decimal.Decimal `json:"efficiency_items_per_hour"`
}

// SummaryResponse holds report-wide totals
type SummaryResponse struct {
	DistinctEmployees    int             `json:"distinct_employees"`
	TotalItems           int             `json:"total_items"`
	DistinctItems        int             `json:"distinct_items"`
	TotalDurationSeconds int64           `json:"total_duration_seconds"`
	TotalHours           decimal.Decimal `json:"total_hours"`
	AverageEfficiency    decimal.Decimal `json:"average_efficiency"`
}

// QualityResponse is the data-quality block of a report
type QualityResponse struct {
	TotalEvents           int             `json:"total_events"`
	ValidEvents           int             `json:"valid_events"`
	OpenEvents            int             `json:"open_events"`
	ExcludedEvents        int             `json:"excluded_events"`
	NonForwardTransitions int             `json:"non_forward_transitions"`
	WarningsByKind        map[string]int  `json:"warnings_by_kind"`
	Score                 decimal.Decimal `json:"score"`
	Grade                 string          `json:"grade"`
}

// ReportResponse is the productivity report body
type ReportResponse struct {
	Status         string              `json:"status"`
	Message        string              `json:"message,omitempty"`
	Policy         string              `json:"policy"`
	DateFrom       *time.Time          `json:"date_from,omitempty"`
	DateTo         *time.Time          `json:"date_to,omitempty"`
	Rows           []MetricRowResponse `json:"rows"`
	Summary        SummaryResponse     `json:"summary"`
	Warnings       []domain.Warning    `json:"warnings"`
	ExcludedEvents int                 `json:"excluded_events"`
	Quality        QualityResponse     `json:"quality"`
	GeneratedAt    time.Time           `json:"generated_at"`
	CacheHit       bool                `json:"cache_hit"`
}

// NewReportResponse converts a report, rounding derived figures to two places
func NewReportResponse(r *app.ProductivityReport) ReportResponse {
	rows := make([]MetricRowResponse, 0, len(r.Rows))
	for _, m := range r.Rows {
		rows = append(rows, MetricRowResponse{
			EmployeeID:             m.EmployeeID,
			EmployeeName:           m.EmployeeName,
			StationID:              m.StationID,
			StationName:            m.StationName,
			Stage:                  m.Stage.String(),
			ItemsProcessed:         m.ItemsProcessed,
			TotalDurationSeconds:   m.TotalDurationSeconds,
			TotalHours:             hours(m.TotalDurationSeconds),
			AvgDurationSeconds:     round2(m.AvgDurationSeconds),
			EfficiencyItemsPerHour: round2(m.EfficiencyItemsPerHour),
		})
	}

	warnings := r.Warnings
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	byKind := make(map[string]int, len(r.Quality.WarningsByKind))
	for kind, n := range r.Quality.WarningsByKind {
		byKind[string(kind)] = n
	}

	return ReportResponse{
		Status:   string(r.Status),
		Message:  r.Message,
		Policy:   r.Policy,
		DateFrom: r.DateFrom,
		DateTo:   r.DateTo,
		Rows:     rows,
		Summary: SummaryResponse{
			DistinctEmployees:    r.Summary.DistinctEmployees,
			TotalItems:           r.Summary.TotalItems,
			DistinctItems:        r.Summary.DistinctItems,
			TotalDurationSeconds: r.Summary.TotalDurationSeconds,
			TotalHours:           hours(r.Summary.TotalDurationSeconds),
			AverageEfficiency:    round2(r.Summary.AverageEfficiency),
		},
		Warnings:       warnings,
		ExcludedEvents: r.ExcludedEvents,
		Quality: QualityResponse{
			TotalEvents:           r.Quality.TotalEvents,
			ValidEvents:           r.Quality.ValidEvents,
			OpenEvents:            r.Quality.OpenEvents,
			ExcludedEvents:        r.Quality.ExcludedEvents,
			NonForwardTransitions: r.Quality.NonForwardTransitions,
			WarningsByKind:        byKind,
			Score:                 round2(r.Quality.Score),
			Grade:                 r.Quality.Grade,
		},
		GeneratedAt: r.GeneratedAt,
		CacheHit:    r.CacheHit,
	}
}

// EmployeeItemResponse is one drill-down row
type EmployeeItemResponse struct {
	app.EmployeeItem
	CreditedHours decimal.Decimal `json:"credited_hours"`
}

// NewEmployeeItemsResponse converts drill-down rows
func NewEmployeeItemsResponse(items []app.EmployeeItem) []EmployeeItemResponse {
	out := make([]EmployeeItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, EmployeeItemResponse{
			EmployeeItem:  it,
			CreditedHours: hours(it.CreditedDurationSeconds),
		})
	}
	return out
}

// MissingItemResponse is one item flagged by the missing-attribution detector
type MissingItemResponse struct {
	ItemID              uuid.UUID  `json:"item_id"`
	OrderNumber         string     `json:"order_number"`
	CustomerName        string     `json:"customer_name"`
	Description         string     `json:"description"`
	Status              string     `json:"status"`
	StatusUpdatedAt     time.Time  `json:"status_updated_at"`
	CurrentStationID    *uuid.UUID `json:"current_station_id,omitempty"`
	CurrentStationName  string     `json:"current_station_name,omitempty"`
	CurrentEmployeeID   *uuid.UUID `json:"current_employee_id,omitempty"`
	CurrentEmployeeName string     `json:"current_employee_name,omitempty"`
	EventCount          int        `json:"event_count"`
}

// MissingAttributionResponse wraps the detector output with its target
type MissingAttributionResponse struct {
	TargetStationID *uuid.UUID            `json:"target_station_id,omitempty"`
	Count           int                   `json:"count"`
	Items           []MissingItemResponse `json:"items"`
}

// NewMissingAttributionResponse converts detector output
func NewMissingAttributionResponse(target *uuid.UUID, items []domain.MissingAttributionItem) MissingAttributionResponse {
	out := make([]MissingItemResponse, 0, len(items))
	for _, m := range items {
		row := MissingItemResponse{
			ItemID:              m.Item.ID,
			OrderNumber:         m.Item.OrderNumber,
			CustomerName:        m.Item.CustomerName,
			Description:         m.Item.Description,
			Status:              m.Item.Status.String(),
			StatusUpdatedAt:     m.Item.StatusUpdatedAt,
			CurrentEmployeeName: m.CurrentEmployeeName,
			EventCount:          len(m.Events),
		}
		if m.CurrentStation != nil {
			id := m.CurrentStation.ID
			row.CurrentStationID = &id
			row.CurrentStationName = m.CurrentStation.Name
		}
		if m.CurrentEmployeeID != uuid.Nil {
			id := m.CurrentEmployeeID
			row.CurrentEmployeeID = &id
		}
		out = append(out, row)
	}
	return MissingAttributionResponse{TargetStationID: target, Count: len(out), Items: out}
}

// ScanEventResponse is a stored scan event
type ScanEventResponse struct {
	ID              uuid.UUID  `json:"id"`
	ItemID          uuid.UUID  `json:"item_id"`
	StationID       uuid.UUID  `json:"station_id"`
	EmployeeID      uuid.UUID  `json:"employee_id"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *int64     `json:"duration_seconds"`
	Note            string     `json:"note,omitempty"`
}

// NewScanEventResponse converts a scan event
func NewScanEventResponse(e *production.ScanEvent) ScanEventResponse {
	return ScanEventResponse{
		ID:              e.ID,
		ItemID:          e.ItemID,
		StationID:       e.StationID,
		EmployeeID:      e.EmployeeID,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		DurationSeconds: e.DurationSeconds,
		Note:            e.Note,
	}
}

func round2(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

func hours(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(decimal.NewFromInt(3600)).Round(2)
}

func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// parseRange parses an optional [from, to) window. A date-only upper bound
// is moved to the start of the following day.
func parseRange(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	from, _, err := parseTime("date_from", fromRaw)
	if err != nil {
		return nil, nil, err
	}
	to, dateOnly, err := parseTime("date_to", toRaw)
	if err != nil {
		return nil, nil, err
	}
	if to != nil && dateOnly {
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, fmt.Errorf("%w: date_from must be before date_to", shared.ErrInvalidInput)
	}
	return from, to, nil
}

func parseTime(field, raw string) (*time.Time, bool, error) {
	if raw == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s must be YYYY-MM-DD or RFC3339", shared.ErrInvalidInput, field)
	}
	return &t, false, nil
}
