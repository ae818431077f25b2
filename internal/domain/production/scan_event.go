package production

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ManualAttributionMarker prefixes the note of every synthesized event
const ManualAttributionMarker = "[manual-attribution]"

// MaxEventDurationSeconds is the longest plausible single scan, one working day
const MaxEventDurationSeconds int64 = 24 * 60 * 60

// ScanEvent records an employee finishing work on an item at a station.
//
// StartTime, EndTime and DurationSeconds are optional: EndTime and
// DurationSeconds stay nil while work is in progress. A uuid.Nil identifier
// means the source row did not carry it.
type ScanEvent struct {
	ID              uuid.UUID  `json:"id"`
	ItemID          uuid.UUID  `json:"item_id"`
	StationID       uuid.UUID  `json:"station_id"`
	EmployeeID      uuid.UUID  `json:"employee_id"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	Note            string     `json:"note,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsOpen reports whether the event has started but carries no completion data
func (e ScanEvent) IsOpen() bool {
	return e.StartTime != nil && e.EndTime == nil && e.DurationSeconds == nil
}

// HasDuration reports whether the event carries a positive completed duration
func (e ScanEvent) HasDuration() bool {
	return e.EndTime != nil && e.DurationSeconds != nil && *e.DurationSeconds > 0
}

// Duration returns the recorded duration in seconds, 0 when absent
func (e ScanEvent) Duration() int64 {
	if e.DurationSeconds == nil {
		return 0
	}
	return *e.DurationSeconds
}

// StartedAt returns the start time or the zero time when missing
func (e ScanEvent) StartedAt() time.Time {
	if e.StartTime == nil {
		return time.Time{}
	}
	return *e.StartTime
}

// IsManualAttribution reports whether the event was synthesized by a backfill
func (e ScanEvent) IsManualAttribution() bool {
	return strings.HasPrefix(e.Note, ManualAttributionMarker)
}

// ManualAttributionNote builds the audit note stored on synthesized events
func ManualAttributionNote(actorID string, at time.Time) string {
	return fmt.Sprintf("%s by %s at %s", ManualAttributionMarker, actorID, at.UTC().Format(time.RFC3339))
}

// NewCompletedScanEvent creates a closed event spanning [start, end]
func NewCompletedScanEvent(itemID, stationID, employeeID uuid.UUID, start, end time.Time, note string) ScanEvent {
	duration := int64(end.Sub(start) / time.Second)
	return ScanEvent{
		ID:              uuid.New(),
		ItemID:          itemID,
		StationID:       stationID,
		EmployeeID:      employeeID,
		StartTime:       &start,
		EndTime:         &end,
		DurationSeconds: &duration,
		Note:            note,
		CreatedAt:       time.Now(),
	}
}
