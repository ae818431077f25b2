package attribution

import (
	"sort"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/google/uuid"
)

// Timeline is the believed chronological path of one item through the stations
type Timeline struct {
	ItemID uuid.UUID
	Events []production.ScanEvent
}

// Len returns the number of events in the timeline
func (t Timeline) Len() int {
	return len(t.Events)
}

// Last returns the most recent event of the timeline
func (t Timeline) Last() (production.ScanEvent, bool) {
	if len(t.Events) == 0 {
		return production.ScanEvent{}, false
	}
	return t.Events[len(t.Events)-1], true
}

// BuildTimelines groups events by item and stable-sorts each group by start time.
// Events without a start time sort last. Timelines are ordered by item ID.
func BuildTimelines(events []production.ScanEvent) []Timeline {
	groups := make(map[uuid.UUID][]production.ScanEvent)
	for _, e := range events {
		groups[e.ItemID] = append(groups[e.ItemID], e)
	}

	timelines := make([]Timeline, 0, len(groups))
	for itemID, group := range groups {
		SortChronologically(group)
		timelines = append(timelines, Timeline{ItemID: itemID, Events: group})
	}
	sort.Slice(timelines, func(i, j int) bool {
		return timelines[i].ItemID.String() < timelines[j].ItemID.String()
	})
	return timelines
}

// SortChronologically stable-sorts events ascending by start time in place
func SortChronologically(events []production.ScanEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].StartTime, events[j].StartTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
