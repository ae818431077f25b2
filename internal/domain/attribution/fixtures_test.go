package attribution

import (
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/google/uuid"
)

var (
	cuttingStation     = production.Station{ID: uuid.MustParse("00000000-0000-0000-0000-0000000000c1"), Name: "Cutting", Stage: production.StageCutting, Active: true}
	sewingStation      = production.Station{ID: uuid.MustParse("00000000-0000-0000-0000-0000000000c2"), Name: "Sewing", Stage: production.StageSewing, Active: true}
	foamCuttingStation = production.Station{ID: uuid.MustParse("00000000-0000-0000-0000-0000000000c3"), Name: "Foam Cutting", Stage: production.StageFoamCutting, Active: true}
	stuffingStation    = production.Station{ID: uuid.MustParse("00000000-0000-0000-0000-0000000000c4"), Name: "Stuffing", Stage: production.StageStuffing, Active: true}
	packagingStation   = production.Station{ID: uuid.MustParse("00000000-0000-0000-0000-0000000000c5"), Name: "Packaging", Stage: production.StagePackaging, Active: true}
	officeStation      = production.Station{ID: uuid.MustParse("00000000-0000-0000-0000-0000000000c6"), Name: "Office", Stage: production.StageOffice, Active: true}
)

var baseDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func testCatalog() *production.StationCatalog {
	return production.NewStationCatalog([]production.Station{
		cuttingStation, sewingStation, foamCuttingStation, stuffingStation, packagingStation, officeStation,
	})
}

// at returns baseDay at hh:mm
func at(hour, minute int) time.Time {
	return baseDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// completed builds a closed event over [start, end]
func completed(itemID uuid.UUID, station production.Station, employeeID uuid.UUID, start, end time.Time) production.ScanEvent {
	e := production.NewCompletedScanEvent(itemID, station.ID, employeeID, start, end, "")
	e.CreatedAt = start
	return e
}

func openEvent(itemID uuid.UUID, station production.Station, employeeID uuid.UUID, start time.Time) production.ScanEvent {
	return production.ScanEvent{
		ID:         uuid.New(),
		ItemID:     itemID,
		StationID:  station.ID,
		EmployeeID: employeeID,
		StartTime:  &start,
		CreatedAt:  start,
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// findCredit returns the credit of a (employee, station, item) triple
func findCredit(credits []Credit, employeeID, stationID, itemID uuid.UUID) (Credit, bool) {
	for _, c := range credits {
		if c.EmployeeID == employeeID && c.StationID == stationID && c.ItemID == itemID {
			return c, true
		}
	}
	return Credit{}, false
}

func findRow(rows []EmployeeStationMetric, employeeID, stationID uuid.UUID) (EmployeeStationMetric, bool) {
	for _, r := range rows {
		if r.EmployeeID == employeeID && r.StationID == stationID {
			return r, true
		}
	}
	return EmployeeStationMetric{}, false
}
