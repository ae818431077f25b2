package attribution

import (
	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/google/uuid"
)

// MissingAttributionItem is a produced item past the target station with no
// event recorded at it
type MissingAttributionItem struct {
	Item                production.ProductionItem `json:"item"`
	CurrentStation      *production.Station       `json:"current_station,omitempty"`
	CurrentEmployeeID   uuid.UUID                 `json:"current_employee_id"`
	CurrentEmployeeName string                    `json:"current_employee_name,omitempty"`
	Events              []production.ScanEvent    `json:"events"`
}

// Detector finds items whose lifecycle status implies the target station was
// completed while no event names it.
type Detector struct {
	catalog *production.StationCatalog
}

// NewDetector creates a detector
func NewDetector(catalog *production.StationCatalog) *Detector {
	return &Detector{catalog: catalog}
}

// Detect checks each candidate against its raw events, valid or not.
// Candidates come back in input order.
func (d *Detector) Detect(
	target production.Station,
	candidates []production.ProductionItem,
	eventsByItem map[uuid.UUID][]production.ScanEvent,
	employees map[uuid.UUID]production.Employee,
) []MissingAttributionItem {
	missing := make([]MissingAttributionItem, 0)
	for _, item := range candidates {
		if !item.IsProduced {
			continue
		}
		events := append([]production.ScanEvent(nil), eventsByItem[item.ID]...)
		if namesStation(events, target.ID) {
			continue
		}
		SortChronologically(events)

		entry := MissingAttributionItem{Item: item, Events: events}
		if latest, ok := latestStarted(events); ok {
			if st, found := d.catalog.Lookup(latest.StationID); found {
				station := st
				entry.CurrentStation = &station
			}
			entry.CurrentEmployeeID = latest.EmployeeID
			if emp, found := employees[latest.EmployeeID]; found {
				entry.CurrentEmployeeName = emp.Name
			}
		}
		missing = append(missing, entry)
	}
	return missing
}

func namesStation(events []production.ScanEvent, stationID uuid.UUID) bool {
	for _, e := range events {
		if e.StationID == stationID {
			return true
		}
	}
	return false
}

// latestStarted expects events sorted chronologically
func latestStarted(events []production.ScanEvent) (production.ScanEvent, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].StartTime != nil {
			return events[i], true
		}
	}
	return production.ScanEvent{}, false
}
