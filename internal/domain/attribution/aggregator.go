package attribution

import (
	"sort"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/google/uuid"
)

// EmployeeStationMetric is the productivity of one employee at one station
type EmployeeStationMetric struct {
	EmployeeID             uuid.UUID        `json:"employee_id"`
	EmployeeName           string           `json:"employee_name"`
	StationID              uuid.UUID        `json:"station_id"`
	StationName            string           `json:"station_name"`
	Stage                  production.Stage `json:"stage"`
	ItemsProcessed         int              `json:"items_processed"`
	TotalDurationSeconds   int64            `json:"total_duration_seconds"`
	AvgDurationSeconds     float64          `json:"avg_duration_seconds"`
	EfficiencyItemsPerHour float64          `json:"efficiency_items_per_hour"`
}

// Summary holds report-wide totals
type Summary struct {
	DistinctEmployees    int     `json:"distinct_employees"`
	TotalItems           int     `json:"total_items"`
	DistinctItems        int     `json:"distinct_items"`
	TotalDurationSeconds int64   `json:"total_duration_seconds"`
	AverageEfficiency    float64 `json:"average_efficiency"`
}

type metricKey struct {
	employeeID uuid.UUID
	stationID  uuid.UUID
}

// Aggregate reduces credits into per (employee, station) metrics and a summary.
// Employee names come from the lookup map; unknown employees keep an empty name.
func Aggregate(credits []Credit, employees map[uuid.UUID]production.Employee, catalog *production.StationCatalog) ([]EmployeeStationMetric, Summary) {
	type bucket struct {
		items    map[uuid.UUID]struct{}
		duration int64
	}
	buckets := make(map[metricKey]*bucket)
	order := make([]metricKey, 0)

	for _, c := range credits {
		key := metricKey{employeeID: c.EmployeeID, stationID: c.StationID}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{items: make(map[uuid.UUID]struct{})}
			buckets[key] = b
			order = append(order, key)
		}
		b.items[c.ItemID] = struct{}{}
		b.duration += c.CreditedDurationSeconds
	}

	rows := make([]EmployeeStationMetric, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		row := EmployeeStationMetric{
			EmployeeID:           key.employeeID,
			StationID:            key.stationID,
			Stage:                production.StageUnknown,
			ItemsProcessed:       len(b.items),
			TotalDurationSeconds: b.duration,
		}
		if emp, ok := employees[key.employeeID]; ok {
			row.EmployeeName = emp.Name
		}
		if catalog != nil {
			if st, ok := catalog.Lookup(key.stationID); ok {
				row.StationName = st.Name
				row.Stage = st.Stage
			}
		}
		if row.ItemsProcessed > 0 {
			row.AvgDurationSeconds = float64(row.TotalDurationSeconds) / float64(row.ItemsProcessed)
		}
		if row.TotalDurationSeconds > 0 {
			row.EfficiencyItemsPerHour = float64(row.ItemsProcessed) * 3600 / float64(row.TotalDurationSeconds)
		}
		rows = append(rows, row)
	}

	SortMetrics(rows)
	return rows, Summarize(rows, credits)
}

// SortMetrics orders rows by items desc, then efficiency desc. Remaining ties
// fall back to employee name, employee ID and workflow position.
func SortMetrics(rows []EmployeeStationMetric) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ItemsProcessed != b.ItemsProcessed {
			return a.ItemsProcessed > b.ItemsProcessed
		}
		if a.EfficiencyItemsPerHour != b.EfficiencyItemsPerHour {
			return a.EfficiencyItemsPerHour > b.EfficiencyItemsPerHour
		}
		if a.EmployeeName != b.EmployeeName {
			return a.EmployeeName < b.EmployeeName
		}
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID.String() < b.EmployeeID.String()
		}
		return a.Stage.Index() < b.Stage.Index()
	})
}

// Summarize derives report totals. DistinctItems counts the items behind the
// given credits, while TotalItems sums per-row counts.
func Summarize(rows []EmployeeStationMetric, credits []Credit) Summary {
	var s Summary
	employees := make(map[uuid.UUID]struct{})
	var efficiencySum float64
	var efficiencyRows int
	for _, row := range rows {
		employees[row.EmployeeID] = struct{}{}
		s.TotalItems += row.ItemsProcessed
		s.TotalDurationSeconds += row.TotalDurationSeconds
		if row.EfficiencyItemsPerHour > 0 {
			efficiencySum += row.EfficiencyItemsPerHour
			efficiencyRows++
		}
	}
	s.DistinctEmployees = len(employees)

	items := make(map[uuid.UUID]struct{})
	for _, c := range credits {
		items[c.ItemID] = struct{}{}
	}
	s.DistinctItems = len(items)

	if efficiencyRows > 0 {
		s.AverageEfficiency = efficiencySum / float64(efficiencyRows)
	}
	return s
}

// FilterRows keeps rows matching the optional station and employee filters
func FilterRows(rows []EmployeeStationMetric, stationID, employeeID *uuid.UUID) []EmployeeStationMetric {
	if stationID == nil && employeeID == nil {
		return rows
	}
	out := make([]EmployeeStationMetric, 0, len(rows))
	for _, row := range rows {
		if stationID != nil && row.StationID != *stationID {
			continue
		}
		if employeeID != nil && row.EmployeeID != *employeeID {
			continue
		}
		out = append(out, row)
	}
	return out
}

// FilterCredits keeps credits matching the optional station and employee filters
func FilterCredits(credits []Credit, stationID, employeeID *uuid.UUID) []Credit {
	if stationID == nil && employeeID == nil {
		return credits
	}
	out := make([]Credit, 0, len(credits))
	for _, c := range credits {
		if stationID != nil && c.StationID != *stationID {
			continue
		}
		if employeeID != nil && c.EmployeeID != *employeeID {
			continue
		}
		out = append(out, c)
	}
	return out
}
